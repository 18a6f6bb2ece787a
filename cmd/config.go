package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"db-sync/internal/engine"
)

type EndpointConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
}

func resolveEndpoint(key string) (engine.Endpoint, error) {
	var ec EndpointConfig
	if err := viper.UnmarshalKey(key, &ec); err != nil {
		return engine.Endpoint{}, fmt.Errorf("failed to parse %s config: %w", key, err)
	}
	if ec.DSN == "" {
		return engine.Endpoint{}, fmt.Errorf("%s.dsn is required (via flag or config)", key)
	}
	if ec.Driver == "" {
		ec.Driver = guessDriver(ec.DSN)
	}
	return engine.Endpoint{
		Name:   key,
		Driver: ec.Driver,
		DSN:    ec.DSN,
		Schema: ec.Schema,
	}, nil
}

// guessDriver infers the driver from DSN shape when the config omits it.
func guessDriver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.Contains(dsn, "sslmode"):
		return "postgres"
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(dsn, "oracle://"):
		return "oracle"
	}
	return "mysql"
}

// openSession connects both configured endpoints and introspects them.
// Callers own the returned session and must Close it.
func openSession() (*engine.Session, error) {
	source, err := resolveEndpoint("source")
	if err != nil {
		return nil, err
	}
	target, err := resolveEndpoint("target")
	if err != nil {
		return nil, err
	}
	return engine.Open(source, target, logger)
}
