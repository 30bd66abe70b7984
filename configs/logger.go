package configs

type Logger struct {
	AppName string `env:"LOGGER_APP_NAME" envDefault:"weekly-poll-bot"`
	URL     string `env:"LOKI_URL"`
}
