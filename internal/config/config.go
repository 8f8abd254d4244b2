package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/surveillance/internal/platform/connector"
	"github.com/ehr/surveillance/internal/platform/cql"
)

// DefaultConfigName is the config file looked up in the working directory
// when no explicit path is given.
const DefaultConfigName = "surveillance"

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	TimeRangeYears int           `mapstructure:"TIME_RANGE_YEARS"`
	OutputDir      string        `mapstructure:"OUTPUT_DIR"`
	OutputJSON     bool          `mapstructure:"OUTPUT_JSON"`
	OutputCSV      bool          `mapstructure:"OUTPUT_CSV"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	Servers []ServerConfig `mapstructure:"servers"`
	Queries []QueryConfig  `mapstructure:"queries"`
}

// ServerConfig describes one remote FHIR server. Enabled defaults to true
// when omitted.
type ServerConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
	Enabled *bool  `mapstructure:"enabled"`
}

func (s ServerConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// QueryConfig describes one surveillance query. Name is the query label.
// Enabled defaults to true when omitted.
type QueryConfig struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Enabled     *bool  `mapstructure:"enabled"`
}

func (q QueryConfig) IsEnabled() bool { return q.Enabled == nil || *q.Enabled }

// DefaultQueries is used when the configuration lists no queries.
var DefaultQueries = []QueryConfig{
	{ID: "covid19", Name: "COVID-19 Monitor", Description: "COVID-19 confirmed cases and positive SARS-CoV-2 lab results"},
	{ID: "influenza", Name: "Influenza Watch", Description: "Influenza diagnoses and positive influenza lab results"},
	{ID: "conjunctivitis", Name: "Conjunctivitis (紅眼症)", Description: "Adenoviral conjunctivitis surveillance"},
	{ID: "enterovirus", Name: "Enterovirus (腸病毒)", Description: "Enterovirus, coxsackie and hand, foot and mouth disease"},
	{ID: "diarrhea", Name: "Diarrhea (腹瀉)", Description: "Rotavirus and norovirus gastroenteritis"},
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL", "TIME_RANGE_YEARS", "OUTPUT_DIR",
	"OUTPUT_JSON", "OUTPUT_CSV", "REQUEST_TIMEOUT", "FHIR_SERVERS",
}

// Load reads configuration from an optional YAML file, an optional .env file,
// and the environment, in increasing order of precedence. An explicit path
// must exist; otherwise surveillance.yaml in the working directory is used
// when present.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TIME_RANGE_YEARS", 2)
	v.SetDefault("OUTPUT_DIR", "./results")
	v.SetDefault("OUTPUT_JSON", true)
	v.SetDefault("OUTPUT_CSV", true)
	v.SetDefault("REQUEST_TIMEOUT", "5m")

	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// .env is optional and only fills keys the environment leaves unset.
	dotenv := viper.New()
	dotenv.SetConfigFile(".env")
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err == nil {
		if err := v.MergeConfigMap(dotenv.AllSettings()); err != nil {
			return nil, fmt.Errorf("merge .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if s := v.GetString("FHIR_SERVERS"); s != "" {
		servers, err := ParseServerList(s)
		if err != nil {
			return nil, err
		}
		cfg.Servers = servers
	}
	if len(cfg.Queries) == 0 {
		cfg.Queries = append([]QueryConfig(nil), DefaultQueries...)
	}

	return cfg, nil
}

// ParseServerList parses the FHIR_SERVERS shorthand "name=url,name=url". An
// item without a name uses its URL host as the name.
func ParseServerList(s string) ([]ServerConfig, error) {
	var out []ServerConfig
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, raw, found := strings.Cut(item, "=")
		if !found {
			raw, name = name, ""
		}
		name, raw = strings.TrimSpace(name), strings.TrimSpace(raw)

		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("FHIR_SERVERS: invalid url %q", raw)
		}
		if name == "" {
			name = u.Host
		}
		out = append(out, ServerConfig{Name: name, BaseURL: raw})
	}
	return out, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// EnabledServers returns the enabled servers as connector descriptors, in
// configuration order.
func (c *Config) EnabledServers() []connector.ServerDescriptor {
	var out []connector.ServerDescriptor
	for _, s := range c.Servers {
		if !s.IsEnabled() {
			continue
		}
		out = append(out, connector.ServerDescriptor{Name: s.Name, BaseURL: s.BaseURL, Enabled: true})
	}
	return out
}

// Catalog builds the query catalog from every configured query.
func (c *Config) Catalog() *cql.Catalog {
	cat := cql.NewCatalog()
	for _, q := range c.Queries {
		_ = cat.Register(cql.Indicator{
			ID:          q.ID,
			Name:        q.Name,
			Description: q.Description,
			Enabled:     q.IsEnabled(),
		})
	}
	return cat
}

// EnabledQueryLabels returns the labels of the enabled queries.
func (c *Config) EnabledQueryLabels() []string {
	cat := c.Catalog()
	var out []string
	for _, ind := range cat.Enabled() {
		out = append(out, cat.Label(ind.ID))
	}
	return out
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.TimeRangeYears <= 0 {
		return fmt.Errorf("TIME_RANGE_YEARS must be positive, got %d", c.TimeRangeYears)
	}

	enabled := 0
	for i, s := range c.Servers {
		if !s.IsEnabled() {
			continue
		}
		enabled++
		if strings.TrimSpace(s.BaseURL) == "" {
			return fmt.Errorf("server %d (%q) has an empty base_url", i, s.Name)
		}
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("server %d has an empty name", i)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no enabled FHIR server configured; set servers in the config file or FHIR_SERVERS")
	}

	for _, q := range c.Queries {
		if q.IsEnabled() && strings.TrimSpace(q.Name+q.ID) != "" {
			return nil
		}
	}
	return fmt.Errorf("no enabled query configured")
}
