package configs

type App struct {
	Environment string `env:"ENVIRONMENT,notEmpty"`
	GroupID     string `env:"GROUP_ID,notEmpty"`
	OwnerID     string `env:"OWNER_ID,notEmpty"`
	Timezone    string `env:"TIMEZONE" envDefault:"Europe/Berlin"`
}

func (c App) IsDevEnvironment() bool {
	return c.Environment == "dev"
}
