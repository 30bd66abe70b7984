package configs

import "time"

type Commands struct {
	Prefix     string        `env:"COMMAND_PREFIX" envDefault:"!poll"`
	MaxLength  int           `env:"COMMAND_MAX_LENGTH" envDefault:"300"`
	MaxTokens  int           `env:"COMMAND_MAX_TOKENS" envDefault:"6"`
	RateWindow time.Duration `env:"COMMAND_RATE_WINDOW" envDefault:"1m"`
	RateLimit  int           `env:"COMMAND_RATE_LIMIT" envDefault:"5"`
}
