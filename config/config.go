package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Listing ListingConfig `yaml:"listing"`
	Session SessionConfig `yaml:"session"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Events  EventsConfig  `yaml:"events"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BackendConfig points at the SW360 REST API. BaseURL is the resource root
// (e.g. http://sw360:8080/resource/api) and AuthURL the authorization server
// (e.g. http://sw360:8080/authorization).
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	AuthURL string        `yaml:"auth_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ListingConfig holds the defaults every list screen starts from.
type ListingConfig struct {
	PageEntries int `yaml:"page_entries"`
	// ProcessingDelay is how long a refresh may run before the processing
	// indicator shows up when rows are already on screen.
	ProcessingDelay time.Duration `yaml:"processing_delay"`
	PageSizes       []int         `yaml:"page_sizes"`
	// RenderWait bounds how long a page request waits for a fetch before
	// answering with the processing view.
	RenderWait time.Duration `yaml:"render_wait"`
	// FlashTTL is how long an undismissed notification stays visible.
	FlashTTL time.Duration `yaml:"flash_ttl"`
}

type SessionConfig struct {
	// Store is "memory" or "mongo".
	Store      string        `yaml:"store"`
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
	// SweepInterval is how often screens of ended or idle sessions are released.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// IdleTimeout releases a session's screens after this long without a
	// request. It defaults to TTL.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// Secret signs the session cookie. A random one is generated when empty,
	// which signs everyone out on restart.
	Secret string `yaml:"secret"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

// EventsConfig enables the Kafka relay that mirrors sign-outs between console
// instances sharing a session store. Brokers empty means a single instance.
type EventsConfig struct {
	Brokers    string `yaml:"brokers"`
	Topic      string `yaml:"topic"`
	Partitions int    `yaml:"partitions"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	config = &c
}

// Parse decodes a config.yaml document, applies environment overrides and
// fills in defaults for anything left blank.
func Parse(data []byte) (AppConfig, error) {
	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return AppConfig{}, err
	}
	applyEnv(&c)
	applyDefaults(&c)
	return c, nil
}

func applyEnv(c *AppConfig) {
	if v := os.Getenv("SW360_API_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("SW360_AUTH_URL"); v != "" {
		c.Backend.AuthURL = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		c.Events.Brokers = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func applyDefaults(c *AppConfig) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8080/resource/api"
	}
	if c.Backend.AuthURL == "" {
		c.Backend.AuthURL = "http://localhost:8080/authorization"
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Listing.PageEntries <= 0 {
		c.Listing.PageEntries = 10
	}
	if c.Listing.ProcessingDelay <= 0 {
		c.Listing.ProcessingDelay = 700 * time.Millisecond
	}
	if c.Listing.RenderWait <= 0 {
		c.Listing.RenderWait = 1500 * time.Millisecond
	}
	if c.Listing.FlashTTL <= 0 {
		c.Listing.FlashTTL = 2 * time.Minute
	}
	if len(c.Listing.PageSizes) == 0 {
		c.Listing.PageSizes = []int{10, 25, 50, 100}
	}
	if c.Session.Store == "" {
		c.Session.Store = "memory"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sw360_session"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 8 * time.Hour
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Session.IdleTimeout <= 0 {
		c.Session.IdleTimeout = c.Session.TTL
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "sw360-console.session.events"
	}
	if c.Events.Partitions <= 0 {
		c.Events.Partitions = 1
	}
	if c.Mongo.DBName == "" {
		c.Mongo.DBName = "sw360console"
	}
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
