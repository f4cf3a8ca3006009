package configutil

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// loads a .env file from the cwd into the process environment if one
// exists. secrets (upstream credentials, smtp passwords) come in this
// way so they stay out of config files that get committed.
func LoadDotenv() {
	err := godotenv.Load()
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		slog.Warn("failed to load .env", "err", err)
		return
	}
	slog.Debug("loaded .env into process environment")
}
