package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		Server   ServerConfig
		Database DatabaseConfig
		Kafka    KafkaConfig
		Ledger   LedgerConfig
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		Name          string
		DisableTLS    bool
		Path          string // sqlite3 only
	}

	KafkaConfig struct {
		Brokers     []string
		TopicPrefix string
	}

	// LedgerConfig holds the period used by outer layers when none is given explicitly.
	LedgerConfig struct {
		CurrentTerm    string
		CurrentSession string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

func (dbc DatabaseConfig) IsSQLite() bool {
	return dbc.Engine == "sqlite3"
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the upper-cased env, e.g. DEV_DATABASE_ENGINE.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Yano School")
	v.SetDefault("secretKey", "k3v!9x@l2m$w7q#t0z^p8r&e5n*y4u(j6b)h1c+f-d=a")
	v.SetDefault("build", "develop")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Yano School <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.user", "yano")
	v.SetDefault("database.password", "yano")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "yano")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", filepath.Join("data", "yano.db"))

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topicPrefix", "")

	v.SetDefault("ledger.currentTerm", "")
	v.SetDefault("ledger.currentSession", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		Env:              env,
		Build:            v.GetString("build"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *fromEmail,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Kafka: KafkaConfig{
			Brokers:     cleanList(v.GetStringSlice("kafka.brokers")),
			TopicPrefix: v.GetString("kafka.topicPrefix"),
		},
		Ledger: LedgerConfig{
			CurrentTerm:    v.GetString("ledger.currentTerm"),
			CurrentSession: v.GetString("ledger.currentSession"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: sqlite3 in `dir`, no external services.
func NewTestConfig(dir string) *Config {
	return &Config{
		Debug:            false,
		TestMode:         true,
		AppName:          "Yano School",
		SecretKey:        "test-secret-key",
		Env:              "TEST",
		Build:            "test",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Yano School", Address: "noreply@localhost"},
		Server: ServerConfig{
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Database: DatabaseConfig{
			Engine: "sqlite3",
			Path:   filepath.Join(dir, "test.db"),
		},
	}
}

func (c Config) String() string {
	return fmt.Sprintf("%s (env=%s build=%s db=%s)", c.AppName, c.Env, c.Build, c.Database.Engine)
}

// cleanList drops blank items; env vars like "a, b," end up with empty or padded elements.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = CleanString(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
