package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// App identifies which of the served applications is being configured.
type App string

const (
	AppDaily     App = "daily"
	AppDashboard App = "dashboard"
	AppAdmin     App = "admin"
)

// Database engines
const (
	EnginePostgres = "postgres"
	EngineMongoDB  = "mongodb"
	EngineInMem    = "inmem"
)

// Session stores
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type (
	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		Build        string
		AppName      string
		SecretKey    string
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Admin    AdminConfig
		Session  SessionConfig
		Advisory AdvisoryConfig
		Mail     MailConfig
	}

	ServerConfig struct {
		Host            string
		DailyAddr       string
		DashboardAddr   string
		DebugAddr       string // expvar & pprof; disabled when empty
		ShutdownTimeout time.Duration
		SessionTTL      time.Duration
		SessionCookie   string
		SecureCookie    bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		Name          string
		DisableTLS    bool
		MongoURI      string
		MongoDatabase string
	}

	AdminConfig struct {
		Emails []string
		Token  string
	}

	SessionConfig struct {
		Store            string
		RedisURL         string
		ResetAfterSubmit bool
	}

	AdvisoryConfig struct {
		Enabled bool
		APIKey  string
		BaseURL string
		Model   string
		Timeout time.Duration
	}

	MailConfig struct {
		SendReceipts     bool
		SendgridAPIKey   string
		DefaultFromEmail string
	}
)

func (dbc DatabaseConfig) Address() string {
	return dbc.Host + ":" + dbc.Port
}

// NewConfig reads the process configuration once. Values come from the environment (prefixed by ENV)
// and from `config/.env.<env>` when that file exists.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Dailies")
	v.SetDefault("secretKey", "k2s1-zq)e4b$+57=dx&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.dailyAddr", ":8000")
	v.SetDefault("server.dashboardAddr", ":8001")
	v.SetDefault("server.debugAddr", "")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.sessionTTL", 12*time.Hour)
	v.SetDefault("server.sessionCookie", "dailies_session")
	v.SetDefault("server.secureCookie", false)

	v.SetDefault("database.engine", EnginePostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "daily_db")
	v.SetDefault("database.disableTLS", false)
	v.SetDefault("database.mongoURI", "")
	v.SetDefault("database.mongoDatabase", "daily_db")

	v.SetDefault("admin.emails", "")
	v.SetDefault("admin.token", "")

	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.redisURL", "")
	v.SetDefault("session.resetAfterSubmit", false)

	v.SetDefault("advisory.enabled", true)
	v.SetDefault("advisory.apiKey", "")
	v.SetDefault("advisory.baseURL", "https://api.openai.com/v1")
	v.SetDefault("advisory.model", "gpt-4o-mini")
	v.SetDefault("advisory.timeout", 30*time.Second)

	v.SetDefault("mail.sendReceipts", false)
	v.SetDefault("mail.sendgridApiKey", "")
	v.SetDefault("mail.defaultFromEmail", "noreply@localhost")

	v.SetDefault("rollbarToken", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DailyAddr:       v.GetString("server.dailyAddr"),
			DashboardAddr:   v.GetString("server.dashboardAddr"),
			DebugAddr:       v.GetString("server.debugAddr"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			SessionTTL:      v.GetDuration("server.sessionTTL"),
			SessionCookie:   v.GetString("server.sessionCookie"),
			SecureCookie:    v.GetBool("server.secureCookie"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MongoURI:      v.GetString("database.mongoURI"),
			MongoDatabase: v.GetString("database.mongoDatabase"),
		},
		Admin: AdminConfig{
			Emails: SplitList(v.GetString("admin.emails")),
			Token:  v.GetString("admin.token"),
		},
		Session: SessionConfig{
			Store:            strings.ToLower(v.GetString("session.store")),
			RedisURL:         v.GetString("session.redisURL"),
			ResetAfterSubmit: v.GetBool("session.resetAfterSubmit"),
		},
		Advisory: AdvisoryConfig{
			Enabled: v.GetBool("advisory.enabled"),
			APIKey:  v.GetString("advisory.apiKey"),
			BaseURL: strings.TrimSuffix(v.GetString("advisory.baseURL"), "/"),
			Model:   v.GetString("advisory.model"),
			Timeout: v.GetDuration("advisory.timeout"),
		},
		Mail: MailConfig{
			SendReceipts:     v.GetBool("mail.sendReceipts"),
			SendgridAPIKey:   v.GetString("mail.sendgridApiKey"),
			DefaultFromEmail: v.GetString("mail.defaultFromEmail"),
		},
	}, nil
}

// Require checks that every value `app` cannot start without is set.
// It returns a *ConfigError listing all the missing keys.
func (c *Config) Require(app App) error {
	var missing []string
	need := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	need("secretKey", c.SecretKey)

	switch c.Database.Engine {
	case EnginePostgres:
		need("database.host", c.Database.Host)
		need("database.port", c.Database.Port)
		need("database.user", c.Database.User)
		need("database.name", c.Database.Name)
	case EngineMongoDB:
		need("database.mongoURI", c.Database.MongoURI)
		need("database.mongoDatabase", c.Database.MongoDatabase)
	case EngineInMem:
	default:
		missing = append(missing, "database.engine")
	}

	if app == AppAdmin {
		return newConfigError(missing)
	}

	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		need("session.redisURL", c.Session.RedisURL)
	default:
		missing = append(missing, "session.store")
	}

	if app == AppDashboard {
		if len(c.Admin.Emails) == 0 {
			missing = append(missing, "admin.emails")
		}
		need("admin.token", c.Admin.Token)
		if c.Advisory.Enabled && !c.Debug {
			need("advisory.apiKey", c.Advisory.APIKey)
		}
	}

	if app == AppDaily && c.Mail.SendReceipts && !c.Debug {
		need("mail.sendgridApiKey", c.Mail.SendgridAPIKey)
	}
	return newConfigError(missing)
}

// SplitList splits a comma-separated list, dropping blank items.
func SplitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = CleanString(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
