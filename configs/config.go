package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var loaded bool

func Config(key string) string {
	if !loaded {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
		loaded = true
	}

	return os.Getenv(key)
}
