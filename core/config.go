package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Storage engines
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type (
	APIConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	StorageConfig struct {
		Engine        string
		Path          string // sqlite file
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		RedisPrefix   string
	}

	QuizConfig struct {
		WarningThreshold time.Duration
		DangerThreshold  time.Duration
	}

	Config struct {
		Env            string // DEV (local; default), TEST, QA, PROD
		Debug          bool
		TestMode       bool
		AppName        string
		Build          string
		WorkDir        string
		RollbarToken   string
		SendgridApiKey string
		PortalBaseURL  string

		API     APIConfig
		Storage StorageConfig
		Quiz    QuizConfig

		fromEmail string
	}
)

// NewConfig loads the configuration from the environment.
// Every key can be overridden with an env variable prefixed by the current env, eg: DEV_API_BASEURL.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "LMS")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "LMS <noreply@localhost>")
	v.SetDefault("portalBaseURL", "http://localhost:3000")
	v.SetDefault("api.baseURL", "http://localhost:5000")
	v.SetDefault("api.timeout", 8*time.Second)
	v.SetDefault("storage.engine", StorageSQLite)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.redisAddr", "localhost:6379")
	v.SetDefault("storage.redisPassword", "")
	v.SetDefault("storage.redisDB", 0)
	v.SetDefault("storage.redisPrefix", "lms:")
	v.SetDefault("quiz.warningThreshold", 5*time.Minute)
	v.SetDefault("quiz.dangerThreshold", 1*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:            env,
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		AppName:        v.GetString("appName"),
		Build:          v.GetString("build"),
		WorkDir:        wd,
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		PortalBaseURL:  strings.TrimRight(v.GetString("portalBaseURL"), "/"),
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("api.baseURL"), "/"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Storage: StorageConfig{
			Engine:        CleanString(v.GetString("storage.engine"), true /* lower */),
			Path:          v.GetString("storage.path"),
			RedisAddr:     v.GetString("storage.redisAddr"),
			RedisPassword: v.GetString("storage.redisPassword"),
			RedisDB:       v.GetInt("storage.redisDB"),
			RedisPrefix:   v.GetString("storage.redisPrefix"),
		},
		Quiz: QuizConfig{
			WarningThreshold: v.GetDuration("quiz.warningThreshold"),
			DangerThreshold:  v.GetDuration("quiz.dangerThreshold"),
		},
		fromEmail: v.GetString("defaultFromEmail"),
	}
	if conf.Storage.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = wd
		}
		conf.Storage.Path = filepath.Join(home, ".lms", "session.db")
	}

	switch conf.Storage.Engine {
	case StorageMemory, StorageSQLite, StorageRedis:
	default:
		return nil, errors.Errorf("unknown storage engine %q", conf.Storage.Engine)
	}
	return conf, nil
}

func (conf *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(conf.fromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: conf.AppName, Address: conf.fromEmail}
}
