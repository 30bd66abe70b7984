package configs

import (
	"time"

	"weekly_poll_bot/internal/week"
)

type Poll struct {
	Allowlist        []string      `env:"POLL_ALLOWLIST,notEmpty" envSeparator:","`
	RequiredVoters   int           `env:"POLL_REQUIRED_VOTERS" envDefault:"4"`
	CloseHours       int           `env:"POLL_CLOSE_HOURS" envDefault:"48"`
	TieOverrideHours int           `env:"POLL_TIE_OVERRIDE_HOURS" envDefault:"6"`
	SlotTemplate     string        `env:"POLL_SLOT_TEMPLATE"`
	Question         string        `env:"POLL_QUESTION" envDefault:"Which slot works for this week's game?"`
	WeeklyCron       string        `env:"POLL_WEEKLY_CRON" envDefault:"0 12 * * 1"`
	MaxTimerDelay    time.Duration `env:"POLL_MAX_TIMER_DELAY" envDefault:"24h"`
}

func (c Poll) CloseAfter() time.Duration {
	return time.Duration(c.CloseHours) * time.Hour
}

func (c Poll) TieOverrideWindow() time.Duration {
	return time.Duration(c.TieOverrideHours) * time.Hour
}

func (c Poll) Template() ([]week.Slot, error) {
	return week.ParseTemplate(c.SlotTemplate)
}
