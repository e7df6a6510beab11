package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/centsible/centsible/statesweeper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
	if err := statesweeper.Run(); err != nil {
		log.Error().Err(err).Msg("state-sweeper exited with error")
		os.Exit(1)
	}
}
