package env

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Load reads a .env file when one is present. Worker VMs are configured
// entirely through a generated .env, so absence is not an error.
func Load() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Error().Err(err).Msg("error loading .env file")
	}
}
