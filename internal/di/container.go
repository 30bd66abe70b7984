package di

import (
	"context"
	"time"

	"weekly_poll_bot/configs"
	"weekly_poll_bot/internal/services"

	zaploki "github.com/paul-milne/zap-loki"
	"go.uber.org/zap"
)

func NewLogger(config configs.Logger) *zap.SugaredLogger {
	if config.URL == "" {
		return zap.Must(zap.NewProduction()).Sugar()
	}

	ctx := context.Background()
	lokiConfig := zaploki.Config{
		Url:          config.URL,
		BatchMaxSize: 1000,
		BatchMaxWait: 10 * time.Second,
		Labels:       map[string]string{"app": config.AppName},
	}
	return zap.Must(zaploki.New(ctx, lokiConfig).WithCreateLogger(zap.NewProductionConfig())).Sugar()
}

// NewPollServiceConfig expects a config that already passed Validate.
func NewPollServiceConfig(config configs.WeeklyPollBotConfig) (services.PollServiceConfig, error) {
	template, err := config.Poll.Template()
	if err != nil {
		return services.PollServiceConfig{}, err
	}

	return services.PollServiceConfig{
		GroupID:        config.App.GroupID,
		OwnerID:        config.App.OwnerID,
		Location:       config.Location(),
		Template:       template,
		Question:       config.Poll.Question,
		RequiredVoters: config.Poll.RequiredVoters,
		CloseAfter:     config.Poll.CloseAfter(),
		TieWindow:      config.Poll.TieOverrideWindow(),
		MaxTimerDelay:  config.Poll.MaxTimerDelay,
		SendTimeout:    config.Outbox.SendTimeout,
		CommandPrefix:  config.Commands.Prefix,
	}, nil
}
