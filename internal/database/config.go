package database

type Config struct {
	FileName string `envconfig:"VW_DB_FILE" default:"vw.db"`
}

func (c *Config) DatabaseConfig() *Config {
	return c
}
