package main

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvReplacer replaces `-` to `_`.
// This is used to map flag like `--my-param` to environment variables like `MY_PARAM`.
var envReplacer = strings.NewReplacer("-", "_")

func init() {
	viper.SetEnvPrefix("BRIDGED")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(envReplacer)
}

// fromEnv returns the flag value when set, or the matching BRIDGED_ env var.
func fromEnv(value, key string) string {
	if value != "" {
		return value
	}
	return viper.GetString(key)
}
