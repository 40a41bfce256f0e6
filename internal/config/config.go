package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
	"time"
)

const (
	RoleHub = "hub"
	RoleCPO = "cpo"
	RoleEMP = "emp"
)

const (
	defaultServerName = "evroaming"
	defaultFileName   = "config.yml"
)

type Listen struct {
	BindIP   string `yaml:"bind_ip" env:"LISTEN_BIND_IP" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"LISTEN_PORT" env-default:"5000"`
	TLS      bool   `yaml:"tls_enabled" env:"LISTEN_TLS" env-default:"false"`
	CertFile string `yaml:"cert_file" env-default:""`
	KeyFile  string `yaml:"key_file" env-default:""`
}

// Partner describes one counterparty reachable over the outbound client.
type Partner struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Url     string `yaml:"url"`
	Token   string `yaml:"token"`
	Version string `yaml:"version" env-default:"2.3.0"`
}

type Config struct {
	IsDebug        bool          `yaml:"is_debug" env:"IS_DEBUG" env-default:"false"`
	ServerName     string        `yaml:"server_name" env:"SERVER_NAME" env-default:"evroaming"`
	Role           string        `yaml:"role" env:"ROLE" env-default:"hub"`
	TimeZone       string        `yaml:"time_zone" env:"TIME_ZONE" env-default:"UTC"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"20s"`
	Listen         Listen        `yaml:"listen"`
	Metrics        struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
		BindIP  string `yaml:"bind_ip" env-default:"0.0.0.0"`
		Port    string `yaml:"port" env:"METRICS_PORT" env-default:"9100"`
	} `yaml:"metrics"`
	Monitor struct {
		Enabled bool `yaml:"enabled" env:"MONITOR_ENABLED" env-default:"false"`
	} `yaml:"monitor"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:""`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"roaming"`
	} `yaml:"mongo"`
	Telegram struct {
		Enabled bool    `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
		ApiKey  string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		ChatIDs []int64 `yaml:"chat_ids"`
	} `yaml:"telegram"`
	Nats struct {
		Enabled bool   `yaml:"enabled" env:"NATS_ENABLED" env-default:"false"`
		Url     string `yaml:"url" env:"NATS_URL" env-default:"nats://127.0.0.1:4222"`
		Subject string `yaml:"subject" env:"NATS_SUBJECT" env-default:"roaming.events"`
	} `yaml:"nats"`
	Pusher struct {
		Enabled bool   `yaml:"enabled" env:"PUSHER_ENABLED" env-default:"false"`
		AppID   string `yaml:"app_id" env:"PUSHER_APP_ID" env-default:""`
		Key     string `yaml:"key" env:"PUSHER_KEY" env-default:""`
		Secret  string `yaml:"secret" env:"PUSHER_SECRET" env-default:""`
		Cluster string `yaml:"cluster" env:"PUSHER_CLUSTER" env-default:"eu"`
	} `yaml:"pusher"`
	Protocol struct {
		Version    string `yaml:"version" env-default:"2.3.0"`
		Constraint string `yaml:"constraint" env:"PROTOCOL_CONSTRAINT" env-default:"~2.3"`
	} `yaml:"protocol"`
	// hub role
	Operators []Partner `yaml:"operators"`
	Providers []Partner `yaml:"providers"`
	// leaf roles talk to a single upstream partner, usually the hub, and
	// optionally hand partner calls to a local backend
	Upstream Partner `yaml:"upstream"`
	Backend  Partner `yaml:"backend"`
}

var instance *Config
var once sync.Once

// GetConfig reads the configuration file once; later calls return the same instance.
func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = Load(path)
	})
	if instance == nil && err == nil {
		err = fmt.Errorf("configuration not loaded")
	}
	return instance, err
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultFileName
	}
	log.Println("reading config " + path)
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		log.Println(desc)
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Validate() error {
	switch c.Role {
	case RoleHub:
	case RoleCPO, RoleEMP:
		if c.Upstream.Url == "" {
			return fmt.Errorf("role %s requires upstream.url", c.Role)
		}
	default:
		return fmt.Errorf("unknown role: %q", c.Role)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.ServerName == "" {
		c.ServerName = defaultServerName
	}
	if c.Telegram.Enabled && c.Telegram.ApiKey == "" {
		return fmt.Errorf("telegram enabled without api_key")
	}
	return nil
}
