package config

import "os"

type Config struct {
	DBSource      string
	Port          string
	Env           string
	AdminPassword string
}

// Load reads configuration from the environment. An empty DB_SOURCE
// selects the in-memory store, which suits local development only.
func Load() (*Config, error) {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin"
	}

	return &Config{
		DBSource:      os.Getenv("DB_SOURCE"),
		Port:          port,
		Env:           env,
		AdminPassword: adminPassword,
	}, nil
}
