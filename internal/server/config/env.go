package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/idgate/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv loads the dotenv file named by -env (or ./.env when present) into
// the process environment without overriding variables that are already
// set, then copies IDGATE_* variables onto config. Unset variables leave
// the current values alone.
func parseEnv(config *Config, args []string) error {
	path := flagx.EnvFilePath(args)
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err == nil {
			path = defaultEnvFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return err
		}
	}

	return env.Parse(config)
}
