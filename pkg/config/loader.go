package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer is returned when a nil config pointer is passed.
	ErrNilPointer = errors.New("config.errors.nil_pointer")
	// ErrParsingConfig wraps env parsing failures.
	ErrParsingConfig = errors.New("config.errors.parsing_config")
)

var defaultEnvLoaded sync.Once

// Load populates the configuration struct from environment variables based
// on its `env` field tags. The default .env file, if present, is loaded
// into the environment once per process before the first parse.
//
// Example:
//
//	var cfg notification.Config
//	if err := config.Load(&cfg); err != nil {
//	    // handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional; a missing file is not an error.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Useful for configurations the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}
