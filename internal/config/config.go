package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/harrylevesque/listqr/internal/utils"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	PublicOrigin string `mapstructure:"public_origin"`
	TLSCert      string `mapstructure:"tls_cert"`
	TLSKey       string `mapstructure:"tls_key"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	MasterKeyHex  string        `mapstructure:"master_key_hex"`
	MasterKeyFile string        `mapstructure:"master_key_file"`
	SessionMaxAge time.Duration `mapstructure:"session_max_age"`
	RefreshAfter  time.Duration `mapstructure:"refresh_after"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
}

type LogConfig struct {
	Path   string `mapstructure:"path"`
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type ClientConfig struct {
	Server string `mapstructure:"server"`
}

var (
	loadOnce sync.Once
	loaded   Config
	loadErr  error
)

// Get loads the configuration once per process.
func Get() (Config, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Load()
	})
	return loaded, loadErr
}

// Load reads configuration from file and env. Env var overrides use prefix LISTQR_.
func Load() (Config, error) {
	v := viper.New()

	dataDir := utils.GetDataDir()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.public_origin", "http://localhost:8080")
	v.SetDefault("server.tls_cert", "")
	v.SetDefault("server.tls_key", "")
	v.SetDefault("database.path", filepath.Join(dataDir, "listqr.db"))
	v.SetDefault("auth.master_key_hex", "")
	v.SetDefault("auth.master_key_file", "master.key")
	v.SetDefault("auth.session_max_age", 30*24*time.Hour)
	v.SetDefault("auth.refresh_after", time.Hour)
	v.SetDefault("auth.secure_cookies", false)
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("client.server", "http://localhost:8080")

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("LISTQR_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("listqr")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "listqr"))
	}

	v.SetEnvPrefix("LISTQR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// MASTER_KEY_HEX is what genmasterkey tells operators to export.
	if err := v.BindEnv("auth.master_key_hex", "LISTQR_AUTH_MASTER_KEY_HEX", "MASTER_KEY_HEX"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Server.PublicOrigin = strings.TrimRight(c.Server.PublicOrigin, "/")
	return c, nil
}
