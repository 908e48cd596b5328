package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Redis    RedisConfig    `yaml:"redis"`
	Uploads  UploadConfig   `yaml:"uploads"`
	Limits   LimitsConfig   `yaml:"limits"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// OAuthConfig describes the external identity provider. The endpoint URLs
// default to Google's but any authorization-code provider with a userinfo
// endpoint works.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserinfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
}

// SMTPConfig for best-effort invitation emails. Disabled when Host is empty.
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	UseTLS   bool   `yaml:"use_tls"`
}

// RedisConfig for the optional async task queue.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type UploadConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int64  `yaml:"max_size_mb"`
}

// LimitsConfig holds the hard ceilings enforced at write time.
type LimitsConfig struct {
	MaxProjectsPerUser        int `yaml:"max_projects_per_user"`
	MaxMembersPerProject      int `yaml:"max_members_per_project"`
	MaxNotificationsPerUser   int `yaml:"max_notifications_per_user"`
	NotificationRetentionDays int `yaml:"notification_retention_days"`

	// Per-IP throttle on the auth endpoints.
	AuthRequestsPerSecond float64 `yaml:"auth_requests_per_second"`
	AuthBurst             int     `yaml:"auth_burst"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.applyDefaults()
	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "issueless.db",
		},
		JWT: JWTConfig{
			Secret:     "issueless-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero values that have sensible fallbacks.
func (c *Config) applyDefaults() {
	if c.OAuth.AuthURL == "" {
		c.OAuth.AuthURL = "https://accounts.google.com/o/oauth2/v2/auth"
	}
	if c.OAuth.TokenURL == "" {
		c.OAuth.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if c.OAuth.UserinfoURL == "" {
		c.OAuth.UserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	}
	if len(c.OAuth.Scopes) == 0 {
		c.OAuth.Scopes = []string{"openid", "email", "profile"}
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.MaxSizeMB == 0 {
		c.Uploads.MaxSizeMB = 10
	}
	if c.Limits.MaxProjectsPerUser == 0 {
		c.Limits.MaxProjectsPerUser = 8
	}
	if c.Limits.MaxMembersPerProject == 0 {
		c.Limits.MaxMembersPerProject = 30
	}
	if c.Limits.MaxNotificationsPerUser == 0 {
		c.Limits.MaxNotificationsPerUser = 50
	}
	if c.Limits.NotificationRetentionDays == 0 {
		c.Limits.NotificationRetentionDays = 30
	}
	if c.Limits.AuthRequestsPerSecond == 0 {
		c.Limits.AuthRequestsPerSecond = 5
	}
	if c.Limits.AuthBurst == 0 {
		c.Limits.AuthBurst = 10
	}
	if c.JWT.ExpireHour == 0 {
		c.JWT.ExpireHour = 24
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if id := os.Getenv("OAUTH_CLIENT_ID"); id != "" {
		c.OAuth.ClientID = id
	}
	if secret := os.Getenv("OAUTH_CLIENT_SECRET"); secret != "" {
		c.OAuth.ClientSecret = secret
	}
	if redirect := os.Getenv("OAUTH_REDIRECT_URL"); redirect != "" {
		c.OAuth.RedirectURL = redirect
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		c.Uploads.Dir = dir
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
