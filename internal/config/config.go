package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
	Run      RunConfig       `mapstructure:"run"`
	Geetest  GeetestConfig   `mapstructure:"geetest"`
	Push     PushConfig      `mapstructure:"push"`
	Accounts []AccountConfig `mapstructure:"accounts" validate:"dive"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	ApiKey         string        `mapstructure:"apiKey"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// RunConfig carries the numeric knobs of a run: retry budget, fixed retry
// delay, per-account cooldown between tasks, and the cap on how many
// accounts execute at once.
type RunConfig struct {
	Timeout               time.Duration `mapstructure:"timeout"`
	MaxRetries            int           `mapstructure:"maxRetries" validate:"min=0"`
	RetryInterval         time.Duration `mapstructure:"retryInterval"`
	SleepTime             time.Duration `mapstructure:"sleepTime"`
	MaxConcurrentAccounts int           `mapstructure:"maxConcurrentAccounts" validate:"min=1"`
}

// GeetestConfig is the opaque solver-backend template. Params are extra
// query parameters sent alongside gt and challenge; Body is a JSON template
// whose string values may contain {gt} and {challenge} placeholders.
type GeetestConfig struct {
	URL    string            `mapstructure:"url" validate:"omitempty,url"`
	Params map[string]string `mapstructure:"params"`
	Body   map[string]string `mapstructure:"body"`
}

type PushConfig struct {
	Enable        bool     `mapstructure:"enable"`
	ErrorPushOnly bool     `mapstructure:"errorPushOnly"`
	BlockKeys     []string `mapstructure:"blockKeys"`

	Telegram TelegramConfig `mapstructure:"telegram"`
	DingTalk DingTalkConfig `mapstructure:"dingtalk"`
	Feishu   FeishuConfig   `mapstructure:"feishu"`
	Bark     BarkConfig     `mapstructure:"bark"`
	Gotify   GotifyConfig   `mapstructure:"gotify"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

type TelegramConfig struct {
	ApiURL   string `mapstructure:"apiUrl"`
	BotToken string `mapstructure:"botToken"`
	ChatID   string `mapstructure:"chatId"`
}

type DingTalkConfig struct {
	Webhook string `mapstructure:"webhook"`
	Secret  string `mapstructure:"secret"`
}

type FeishuConfig struct {
	Webhook string `mapstructure:"webhook"`
}

type BarkConfig struct {
	ApiURL string `mapstructure:"apiUrl"`
	Token  string `mapstructure:"token"`
	Icon   string `mapstructure:"icon"`
}

type GotifyConfig struct {
	ApiURL   string `mapstructure:"apiUrl"`
	Token    string `mapstructure:"token"`
	Priority int    `mapstructure:"priority"`
}

type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

type AccountConfig struct {
	ID       string   `mapstructure:"id" validate:"required"`
	Cookie   string   `mapstructure:"cookie" validate:"required"`
	SToken   string   `mapstructure:"stoken"`
	DeviceID string   `mapstructure:"deviceId"`
	Platform string   `mapstructure:"platform" validate:"oneof=ios android"`
	Games    []string `mapstructure:"games" validate:"min=1"`
	Tasks    []string `mapstructure:"tasks" validate:"min=1"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "15s")
	v.SetDefault("server.idleTimeout", "60s")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.apiKey", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("run.timeout", "10s")
	v.SetDefault("run.maxRetries", 3)
	v.SetDefault("run.retryInterval", "2s")
	v.SetDefault("run.sleepTime", "2s")
	v.SetDefault("run.maxConcurrentAccounts", 3)

	v.SetDefault("geetest.body", map[string]string{
		"gt":        "{gt}",
		"challenge": "{challenge}",
	})

	v.SetDefault("push.enable", true)
	v.SetDefault("push.errorPushOnly", false)
	v.SetDefault("push.gotify.priority", 5)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.hoyosign")
		v.AddConfigPath("/etc/hoyosign")
	}

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("HOYOSIGN")

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// Account entries without a platform default to ios so the oneof
	// validation does not reject them.
	for i := range cfg.Accounts {
		if cfg.Accounts[i].Platform == "" {
			cfg.Accounts[i].Platform = "ios"
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
