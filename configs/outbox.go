package configs

import "time"

type Outbox struct {
	BaseDelay   time.Duration `env:"OUTBOX_BASE_DELAY" envDefault:"5s"`
	MaxDelay    time.Duration `env:"OUTBOX_MAX_DELAY" envDefault:"10m"`
	MaxAttempts int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"8"`
	SendTimeout time.Duration `env:"OUTBOX_SEND_TIMEOUT" envDefault:"15s"`
	BatchSize   int           `env:"OUTBOX_BATCH_SIZE" envDefault:"20"`
}
