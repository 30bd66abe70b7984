package configs

type HTTP struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}
