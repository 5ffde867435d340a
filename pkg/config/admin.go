package config

// AdminConfig describes the first administrator account created by
// cmd/init-admin, or at startup when the memory driver is selected.
// An empty password is replaced by a generated one.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME" env-default:"admin"`
	Email    string `env:"ADMIN_EMAIL" env-default:"admin@example.com"`
	Password string `env:"ADMIN_PASSWORD" env-default:""`
	Role     string `env:"ADMIN_ROLE" env-default:"admin"`
}
