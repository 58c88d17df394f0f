package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/arkade-os/bridged/internal/config"
	httpservice "github.com/arkade-os/bridged/internal/interface/http"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version will be set during build time
var Version string

func main() {
	loadDotEnv()

	app := cli.NewApp()
	app.Name = "bridged"
	app.Version = Version
	app.Usage = "cross-chain bridge routing daemon"
	app.Flags = config.Flags
	app.Action = mainAction
	app.Commands = cli.Commands{
		tokenCmd,
		protocolsCmd,
		routesCmd,
		assetsCmd,
		preferencesCmd,
		statsCmd,
		chainsCmd,
		transfersCmd,
		feeProgramCmd,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func mainAction(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}

	svcConfig := httpservice.Config{
		Port:               cfg.Port,
		AdminPort:          cfg.AdminPort,
		AdminJWTSecret:     cfg.AdminJWTSecret,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}

	svc, err := httpservice.NewService(Version, svcConfig, cfg)
	if err != nil {
		return err
	}

	log.Infof("bridged config: %s", cfg)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	log.RegisterExitHandler(svc.Stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}

// loadDotEnv sources a .env file from the working dir, then one from the
// datadir pointed by BRIDGED_DATADIR. Already exported vars take precedence.
func loadDotEnv() {
	files := []string{".env"}
	if datadir := os.Getenv("BRIDGED_DATADIR"); datadir != "" {
		files = append(files, filepath.Join(datadir, ".env"))
	}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			log.WithError(err).Warnf("failed to load %s", file)
		}
	}
}
