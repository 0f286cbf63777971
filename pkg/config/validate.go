package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// provider.backend_url is required.
	if c.Provider.BackendURL == "" {
		errs = append(errs, fmt.Errorf("provider.backend_url is required"))
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// session.type must be a known value.
	switch c.Session.Type {
	case "sqlite", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("session.type must be \"sqlite\" or \"postgres\", got %q", c.Session.Type))
	}

	// If session.type is "sqlite", sqlite_path must be set.
	if c.Session.Type == "sqlite" && c.Session.SQLitePath == "" {
		errs = append(errs, fmt.Errorf("session.sqlite_path is required when session.type is \"sqlite\""))
	}

	// If session.type is "postgres", DSN or DSNFile must be set.
	if c.Session.Type == "postgres" {
		if c.Session.Postgres.DSN == "" && c.Session.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("session.postgres.dsn or session.postgres.dsn_file is required when session.type is \"postgres\""))
		}
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "apikey":
		// valid
	case "jwt":
		if c.Auth.JWT.JWKSURL == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Provider.IterationCeiling <= 0 {
		errs = append(errs, fmt.Errorf("provider.iteration_ceiling must be > 0, got %d", c.Provider.IterationCeiling))
	}

	return errors.Join(errs...)
}
