// Package config loads env-tagged structs from the process environment.
//
// It wraps github.com/joho/godotenv (an optional .env file in the working
// directory is read once) and github.com/caarlos0/env/v11 (tag based parsing).
// Load caches each config type, LoadWithPrefix parses a prefixed copy without
// caching, and MustLoad panics for configuration the program cannot start without.
//
//	type Config struct {
//	    Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
