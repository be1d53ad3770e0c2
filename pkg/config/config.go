package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when present; environment variables always win.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for the BD Daily server.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (app secret, redis password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"4000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// StaticDir is served at "/" when it exists (the built frontend).
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR" env-default:"./dist"`

	// CORSOrigins restricts browser origins. Empty reflects any origin.
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:","`

	Feishu    FeishuConfig    `yaml:"feishu"`
	Cache     CacheConfig     `yaml:"cache"`
	Redis     RedisConfig     `yaml:"redis"`
	Dates     DatesConfig     `yaml:"dates"`
	Reminders RemindersConfig `yaml:"reminders"`

	// BuildID identifies this process in /api/debug-env.
	BuildID string `yaml:"-"`
}

// FeishuConfig holds Feishu Open API credentials and Bitable table coordinates.
// Missing tokens or table ids are not a startup error: the affected endpoints
// answer 500 with a descriptive message instead.
type FeishuConfig struct {
	BaseURL    string `yaml:"base_url" env:"FEISHU_BASE_URL" env-default:"https://open.feishu.cn"`
	AppID      string `yaml:"app_id" env:"FEISHU_APP_ID"`
	AppSecret  string `yaml:"-" env:"FEISHU_APP_SECRET"` // Secret - not in YAML
	UserIDType string `yaml:"user_id_type" env:"FEISHU_USER_ID_TYPE" env-default:""`

	// Customer table (the legacy single-table configuration).
	BitableAppToken string `yaml:"bitable_app_token" env:"FEISHU_BITABLE_APP_TOKEN"`
	BitableTableID  string `yaml:"bitable_table_id" env:"FEISHU_BITABLE_TABLE_ID"`

	// Project table. App token falls back to BitableAppToken.
	ProjectAppToken string `yaml:"project_app_token" env:"FEISHU_PROJECT_APP_TOKEN"`
	ProjectTableID  string `yaml:"project_table_id" env:"FEISHU_BITABLE_PROJECT_TABLE_ID"`

	// Deal (立项) table. App token falls back to ProjectAppToken.
	DealAppToken string `yaml:"deal_app_token" env:"FEISHU_DEAL_APP_TOKEN"`
	DealTableID  string `yaml:"deal_table_id" env:"FEISHU_BITABLE_DEAL_TABLE_ID"`

	// Kanban placeholder target. App token falls back to BitableAppToken.
	KanbanAppToken string `yaml:"kanban_app_token" env:"FEISHU_KANBAN_APP_TOKEN"`
	KanbanBoardID  string `yaml:"kanban_board_id" env:"FEISHU_KANBAN_BOARD_ID"`

	DashboardEmbedURL string `yaml:"dashboard_embed_url" env:"FEISHU_DASHBOARD_EMBED_URL"`

	// PersonIDMapStr is a JSON object of display name -> user id overrides.
	// FEISHU_USER_ID_MAP is accepted as a legacy alias.
	PersonIDMapStr string `yaml:"person_id_map" env:"FEISHU_PERSON_ID_MAP"`

	// PersonIDMap is the parsed form of PersonIDMapStr (not from config file).
	PersonIDMap map[string]string `yaml:"-"`
}

// CacheConfig holds cache lifetimes and the bounded scan size used for lookups.
type CacheConfig struct {
	FieldMapTTL    time.Duration `yaml:"field_map_ttl" env:"FIELD_MAP_TTL" env-default:"60s"`
	PersonIndexTTL time.Duration `yaml:"person_index_ttl" env:"PERSON_INDEX_TTL" env-default:"5m"`
	// ScanPageSize bounds person index builds and business id lookups.
	ScanPageSize int `yaml:"scan_page_size" env:"SCAN_PAGE_SIZE" env-default:"200"`
}

// RedisConfig holds the optional shared cache backend.
// When Host is empty caches stay in process memory.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"bddaily:"`
}

// DatesConfig calibrates the spreadsheet serial-date detection window.
// Numbers strictly inside (SerialMin, SerialMax) are read as day counts.
type DatesConfig struct {
	SerialMin float64 `yaml:"serial_min" env:"DATE_SERIAL_MIN" env-default:"20000"`
	SerialMax float64 `yaml:"serial_max" env:"DATE_SERIAL_MAX" env-default:"60000"`
}

// RemindersConfig holds follow-up reminder settings.
type RemindersConfig struct {
	StaleDays int `yaml:"stale_days" env:"REMINDER_STALE_DAYS" env-default:"5"`
}

// IsLocal reports whether the server runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// Load reads configuration from config.yaml (when present) with environment
// variable overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
		BuildID: "BDdaily-" + time.Now().UTC().Format(time.RFC3339),
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	cfg.applyFallbacks()
	cfg.parseComplexFields()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyFallbacks fills table tokens from their documented fallbacks.
func (c *Config) applyFallbacks() {
	f := &c.Feishu
	if f.ProjectAppToken == "" {
		f.ProjectAppToken = f.BitableAppToken
	}
	if f.DealAppToken == "" {
		f.DealAppToken = f.ProjectAppToken
	}
	if f.KanbanAppToken == "" {
		f.KanbanAppToken = f.BitableAppToken
	}
	if f.PersonIDMapStr == "" {
		f.PersonIDMapStr = os.Getenv("FEISHU_USER_ID_MAP")
	}
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.Feishu.PersonIDMap = ParsePersonIDMap(c.Feishu.PersonIDMapStr)
}

// maxDateSerial is the serial day count of 9999-12-31.
const maxDateSerial = 2958465

func (c *Config) validate() error {
	if c.Cache.ScanPageSize <= 0 {
		return fmt.Errorf("scan_page_size must be positive, got %d", c.Cache.ScanPageSize)
	}
	if c.Dates.SerialMin >= c.Dates.SerialMax {
		return fmt.Errorf("date serial window is empty: (%v, %v)", c.Dates.SerialMin, c.Dates.SerialMax)
	}
	if c.Dates.SerialMin < 0 || c.Dates.SerialMax > maxDateSerial {
		return fmt.Errorf("date serial window (%v, %v) must lie within [0, %d]", c.Dates.SerialMin, c.Dates.SerialMax, maxDateSerial)
	}
	if c.Reminders.StaleDays < 0 {
		return fmt.Errorf("reminder stale_days must not be negative, got %d", c.Reminders.StaleDays)
	}
	return nil
}

// ParsePersonIDMap parses a name -> user id object. The JSON object form used in
// the environment is valid YAML, so both spellings are accepted. Anything that does
// not parse into a mapping yields an empty map; a bad override never fails startup.
func ParsePersonIDMap(raw string) map[string]string {
	result := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(raw), &parsed); err != nil {
		return result
	}

	for name, v := range parsed {
		id := strings.TrimSpace(fmt.Sprint(v))
		if v == nil || id == "" {
			continue
		}
		result[name] = id
	}
	return result
}

// Addr returns the address the HTTP server listens on.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// Addr returns the Redis address, rewritten for Docker when needed.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port)
}

// Enabled reports whether a Redis backend is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}
