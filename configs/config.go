package configs

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type WeeklyPollBotConfig struct {
	App      App
	Bot      Bot
	DB       DB
	Logger   Logger
	Poll     Poll
	Commands Commands
	Outbox   Outbox
	HTTP     HTTP
}

func LoadWeeklyPollBotConfig() (WeeklyPollBotConfig, error) {
	return loadWeeklyPollBotConfig(env.Options{})
}

func loadWeeklyPollBotConfig(options env.Options) (WeeklyPollBotConfig, error) {
	var config WeeklyPollBotConfig

	if err := env.Parse(&config, options); err != nil {
		return WeeklyPollBotConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return WeeklyPollBotConfig{}, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Location returns the configured timezone. Validate guarantees it loads.
func (c WeeklyPollBotConfig) Location() *time.Location {
	location, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}

func (c WeeklyPollBotConfig) Validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.App.Timezone, err)
	}

	if _, err := c.Poll.Template(); err != nil {
		return fmt.Errorf("slot template: %w", err)
	}

	if c.Poll.RequiredVoters < 1 {
		return errors.New("required voters must be at least 1")
	}
	if c.Poll.RequiredVoters > len(c.Poll.Allowlist) {
		return fmt.Errorf("required voters %d exceeds allowlist size %d", c.Poll.RequiredVoters, len(c.Poll.Allowlist))
	}
	if c.Poll.CloseHours <= 0 || c.Poll.TieOverrideHours <= 0 {
		return errors.New("poll close and tie override hours must be positive")
	}
	if c.Poll.MaxTimerDelay <= 0 {
		return errors.New("max timer delay must be positive")
	}

	if c.Commands.Prefix == "" {
		return errors.New("command prefix must not be empty")
	}
	if c.Commands.RateWindow <= 0 || c.Commands.RateLimit <= 0 {
		return errors.New("command rate window and limit must be positive")
	}

	if c.Outbox.BaseDelay <= 0 || c.Outbox.MaxDelay < c.Outbox.BaseDelay {
		return errors.New("outbox delays must be positive and base must not exceed max")
	}
	if c.Outbox.MaxAttempts < 1 || c.Outbox.BatchSize < 1 || c.Outbox.SendTimeout <= 0 {
		return errors.New("outbox attempts, batch size and send timeout must be positive")
	}

	return nil
}
