package httpservice

import (
	"fmt"
	"net"
)

type Config struct {
	Port               uint32
	AdminPort          uint32
	AdminJWTSecret     string
	RateLimitPerMinute int
}

func (c Config) Validate() error {
	lis, err := net.Listen("tcp", c.address())
	if err != nil {
		return fmt.Errorf("invalid port: %s", err)
	}
	// nolint:all
	lis.Close()

	if c.hasAdminPort() {
		lis, err := net.Listen("tcp", c.adminAddress())
		if err != nil {
			return fmt.Errorf("invalid admin port: %s", err)
		}
		// nolint:all
		lis.Close()
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) adminAddress() string {
	return fmt.Sprintf(":%d", c.AdminPort)
}

func (c Config) hasAdminPort() bool {
	return c.AdminPort > 0 && c.AdminPort != c.Port
}
