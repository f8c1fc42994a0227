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

type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (default) | TEST | QA | PROD
	Build    string

	AppName          string
	SecretKey        []byte
	FrontendBaseURL  string
	DefaultFromEmail mail.Address

	Server struct {
		Host                      string
		Addr                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		URI  string
		Name string
	}

	GoogleClientID string
	SendgridAPIKey string
	RollbarToken   string
}

// LoadConfig reads configuration from the environment (and an optional
// config/.env.<env> file) with sane development defaults.
func LoadConfig() (*Config, error) {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Darasa")
	conf.SetDefault("secretKey", "o2x&9#dz$+57=poq5-wer)enb(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("frontendBaseURL", "http://localhost:5173")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("databaseURI", "mongodb://localhost:27017")
	conf.SetDefault("databaseName", "darasa")

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	conf.AutomaticEnv()

	c := &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         env == "TEST",
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        []byte(conf.GetString("secretKey")),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		GoogleClientID:   conf.GetString("googleClientID"),
		SendgridAPIKey:   conf.GetString("sendgridAPIKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
	}
	c.Server.Host = conf.GetString("serverHost")
	c.Server.Addr = conf.GetString("serverAddr")
	c.Server.JWTExpirationDelta = conf.GetDuration("jwtExpirationDelta")
	c.Server.JWTRefreshExpirationDelta = conf.GetDuration("jwtRefreshExpirationDelta")
	c.Database.URI = conf.GetString("databaseURI")
	c.Database.Name = conf.GetString("databaseName")
	return c, nil
}
