package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// LoadConfig reads the TOML config at path. A .env file next to the binary is
// loaded first so that ${VAR} style secrets can stay out of the config file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return &cfg, nil
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	Web    WebConfig    `toml:"web"`
	DB     DBConfig     `toml:"db"`
	Spaces SpacesConfig `toml:"spaces"`
	Mail   MailConfig   `toml:"mail"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type WebConfig struct {
	Host         string      `toml:"host"`
	Port         int         `toml:"port"`
	PublicURL    string      `toml:"public_url"`
	SessionKey   string      `toml:"session_key"`
	AdminUserIDs []string    `toml:"admin_user_ids"`
	OAuth        OAuthConfig `toml:"oauth"`
}

type OAuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURL  string   `toml:"redirect_url"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	UserInfoURL  string   `toml:"userinfo_url"`
	Scopes       []string `toml:"scopes"`
}

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type SpacesConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	CardRoot string `toml:"cardroot"`
}

type MailConfig struct {
	APIKey      string `toml:"api_key"`
	SenderEmail string `toml:"sender_email"`
	SenderName  string `toml:"sender_name"`
}

// applyEnvOverrides lets deployment secrets win over whatever is committed in
// the TOML file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NZ_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("NZ_SESSION_KEY"); v != "" {
		c.Web.SessionKey = v
	}
	if v := os.Getenv("NZ_OAUTH_CLIENT_SECRET"); v != "" {
		c.Web.OAuth.ClientSecret = v
	}
	if v := os.Getenv("NZ_SPACES_SECRET"); v != "" {
		c.Spaces.Secret = v
	}
	if v := os.Getenv("NZ_MAIL_API_KEY"); v != "" {
		c.Mail.APIKey = v
	}
}
