package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/centsible/centsible/assistantservice"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
	if err := assistantservice.Run(); err != nil {
		log.Error().Err(err).Msg("assistant-service exited with error")
		os.Exit(1)
	}
}
