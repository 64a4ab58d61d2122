package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/esimwe/esimnew/internal/logger"
)

const (
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Default logging level
	LogLevel string

	// Database to connect to
	DatabaseDSN string

	// Environment
	Environment string

	// Referral code length override; 0 defers to system settings
	CodeLength int

	// Cap on unique code resolution attempts; 0 uses the service default
	MaxAttempts int
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		Environment: defaultEnvironment,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"DATABASE_URI":          setString(&c.DatabaseDSN),
		"LOG_LEVEL":             setString(&c.LogLevel),
		"ENVIRONMENT":           setString(&c.Environment),
		"REFERRAL_CODE_LENGTH":  setInt(&c.CodeLength),
		"REFERRAL_MAX_ATTEMPTS": setInt(&c.MaxAttempts),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

// ParseFlags reads flags and returns the remaining positional arguments:
// the command and its parameters
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("esimrewards", pflag.ContinueOnError)

	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.IntVar(&c.CodeLength, "code-length", c.CodeLength, "Referral code length (0 defers to system settings)")
	fs.IntVar(&c.MaxAttempts, "max-attempts", c.MaxAttempts, "Cap on unique code resolution attempts")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}

	return fs.Args(), nil
}
