package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	API      string
	Token    string
	Room     string
	LogLevel string
}

// Load reads `.env` if present, then the environment.
func Load() Config {
	_ = godotenv.Load()

	c := Config{}
	c.API = getenv("ANTENNA_API", "http://localhost:10405")
	c.Token = os.Getenv("ANTENNA_TOKEN")
	c.Room = os.Getenv("ANTENNA_ROOM")
	c.LogLevel = getenv("ANTENNA_LOG_LEVEL", "info")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
