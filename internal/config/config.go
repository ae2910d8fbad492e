package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"webcal/internal/model"
)

// Local development fallbacks.
const (
	DefaultMongoURI   = "mongodb://localhost:27017/calendar"
	DefaultPort       = 5000
	DefaultHost       = "0.0.0.0"
	DefaultDatabase   = "calendar"
	DefaultCollection = "events"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API and views.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ThemeConfig is passed explicitly into the HTML view renderer.
type ThemeConfig struct {
	// PrimaryColor highlights today and the header.
	PrimaryColor string `yaml:"primary_color" json:"primary_color"`
	// DimColor is the background of days outside the displayed month.
	DimColor string `yaml:"dim_color" json:"dim_color"`
	// FontFamily is applied to the whole page.
	FontFamily string `yaml:"font_family" json:"font_family"`
	// HourHeight is the pixel height of one hour row in week/day views.
	HourHeight int `yaml:"hour_height" json:"hour_height"`
	// Calendars are the sidebar entries; their colors seed the default filter.
	Calendars []model.CalendarEntry `yaml:"calendars" json:"calendars"`
}

// Config is the top-level server configuration.
type Config struct {
	// Host and Port form the HTTP listen address.
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// Store selects the persistence backend: "mongo" (default) or "memory".
	Store string `yaml:"store" json:"store"`

	// MongoURI is the document store connection string.
	MongoURI   string `yaml:"mongo_uri" json:"mongo_uri"`
	Database   string `yaml:"database" json:"database"`
	Collection string `yaml:"collection" json:"collection"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CORSOrigins lists allowed browser origins. Empty means any origin.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	Theme ThemeConfig `yaml:"theme" json:"theme"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		Store:       "mongo",
		MongoURI:    DefaultMongoURI,
		Database:    DefaultDatabase,
		Collection:  DefaultCollection,
		WeekStart:   "sunday",
		LogLevel:    "info",
		CORSOrigins: []string{},
		Theme:       defaultTheme(),
	}
}

func defaultTheme() ThemeConfig {
	return ThemeConfig{
		PrimaryColor: "#1a73e8",
		DimColor:     "#f5f5f5",
		FontFamily:   "Google Sans, Roboto, Arial, sans-serif",
		HourHeight:   60,
		Calendars:    append([]model.CalendarEntry(nil), model.DefaultCalendars...),
	}
}

// Listen returns the host:port listen address.
func (c *Config) Listen() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Normalize fills in missing/zero values with defaults so partially-filled
// files still behave.
func (c *Config) Normalize() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port <= 0 || c.Port > 65535 {
		c.Port = DefaultPort
	}
	switch c.Store {
	case "mongo", "memory":
	default:
		c.Store = "mongo"
	}
	if c.MongoURI == "" {
		c.MongoURI = DefaultMongoURI
	}
	if c.Database == "" {
		c.Database = databaseFromURI(c.MongoURI)
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "sunday"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}

	def := defaultTheme()
	if c.Theme.PrimaryColor == "" {
		c.Theme.PrimaryColor = def.PrimaryColor
	}
	if c.Theme.DimColor == "" {
		c.Theme.DimColor = def.DimColor
	}
	if c.Theme.FontFamily == "" {
		c.Theme.FontFamily = def.FontFamily
	}
	if c.Theme.HourHeight <= 0 {
		c.Theme.HourHeight = def.HourHeight
	}
	if len(c.Theme.Calendars) == 0 {
		c.Theme.Calendars = def.Calendars
	}
}

// databaseFromURI returns the path component of a mongodb:// URI
// ("mongodb://host/calendar" -> "calendar").
func databaseFromURI(uri string) string {
	rest := uri
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	i := strings.Index(rest, "/")
	if i < 0 {
		return DefaultDatabase
	}
	db := rest[i+1:]
	if j := strings.IndexAny(db, "?#"); j >= 0 {
		db = db[:j]
	}
	if db == "" {
		return DefaultDatabase
	}
	return db
}

// Load reads the YAML file at path, then applies a .env file (if present) and
// environment overrides.
//
//   - An empty path skips the file and starts from DefaultConfig.
//   - A missing file is created with defaults (0600).
//   - MONGO_URI, PORT, HOST, CALENDAR_STORE, CALENDAR_DATABASE, LOG_LEVEL
//     override file values.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}
	applyEnv(cfg)
	cfg.Normalize()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := getEnv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
		cfg.Database = ""
	}
	if v := getEnv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := getEnv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := getEnv("CALENDAR_STORE"); v != "" {
		cfg.Store = v
	}
	if v := getEnv("CALENDAR_DATABASE"); v != "" {
		cfg.Database = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".webcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
