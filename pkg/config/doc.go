// Package config loads configuration structs from environment variables
// using `env` struct tags, with optional .env file support for local
// development.
package config
