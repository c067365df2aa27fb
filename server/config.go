package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/callcenter/endpoint"
	"github.com/tailored-agentic-units/callcenter/industries"
	"github.com/tailored-agentic-units/callcenter/relay"
	"github.com/tailored-agentic-units/callcenter/session"
	"github.com/tailored-agentic-units/callcenter/store"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds initialization parameters for the server and every
// subsystem it composes.
type Config struct {
	Addr            string        `yaml:"addr"`
	Industry        string        `yaml:"industry"`
	Observer        string        `yaml:"observer"`
	LogLevel        string        `yaml:"log_level,omitempty"`
	KnowledgePath   string        `yaml:"knowledge_path,omitempty"`
	KnowledgeBaseID string        `yaml:"knowledge_base_id,omitempty"`
	DeploymentEnv   string        `yaml:"deployment_env,omitempty"`
	VPCID           string        `yaml:"vpc_id,omitempty"`
	Origins         []string      `yaml:"origins,omitempty"` // accepted WebSocket origin patterns
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`

	Relay    relay.Config    `yaml:"relay"`
	Session  session.Config  `yaml:"session"`
	Store    store.Config    `yaml:"store"`
	Endpoint endpoint.Config `yaml:"endpoint"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Addr:            defaultAddr,
		Industry:        industries.Default,
		Observer:        "slog",
		ShutdownTimeout: defaultShutdownTimeout,
		Relay:           relay.DefaultConfig(),
		Session:         session.DefaultConfig(),
		Store:           store.DefaultConfig(),
		Endpoint:        endpoint.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Relay.Merge(&source.Relay)
	c.Session.Merge(&source.Session)
	c.Store.Merge(&source.Store)
	c.Endpoint.Merge(&source.Endpoint)

	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.Industry != "" {
		c.Industry = source.Industry
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
	if source.KnowledgePath != "" {
		c.KnowledgePath = source.KnowledgePath
	}
	if source.KnowledgeBaseID != "" {
		c.KnowledgeBaseID = source.KnowledgeBaseID
	}
	if source.DeploymentEnv != "" {
		c.DeploymentEnv = source.DeploymentEnv
	}
	if source.VPCID != "" {
		c.VPCID = source.VPCID
	}
	if len(source.Origins) > 0 {
		c.Origins = source.Origins
	}
	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}
}

// LoadConfig reads a YAML config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// Environment variables read by ApplyEnv.
const (
	EnvDeployment    = "DEPLOYMENT_ENV"
	EnvVPCID         = "VPC_ID"
	EnvKnowledgeBase = "KNOWLEDGE_BASE_ID"
	EnvTable         = "DYNAMODB_TABLE_NAME"
	EnvBookings      = "DYNAMODB_BOOKINGS_TABLE"
	EnvAccommodation = "DYNAMODB_ACCOMMODATION_TABLE"
	EnvVehicles      = "DYNAMODB_VEHICLES_TABLE"
	EnvRegion        = "AWS_REGION"
	EnvPort          = "PORT"
	EnvLogLevel      = "LOGLEVEL"
)

var envKeys = []string{
	EnvDeployment, EnvVPCID, EnvKnowledgeBase,
	EnvTable, EnvBookings, EnvAccommodation, EnvVehicles,
	EnvRegion, EnvPort, EnvLogLevel,
}

// LoadEnv reads an industry .env file and overlays the process environment,
// which takes precedence. An empty path reads the process environment only.
func LoadEnv(path string) (map[string]string, error) {
	env := make(map[string]string)
	if path != "" {
		file, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		env = file
	}

	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

// ApplyEnv overlays environment-derived settings onto c. Empty values are
// ignored. DYNAMODB_TABLE_NAME names the industry's main table: flights for
// the airline industry, customers otherwise. Set Industry before calling.
func (c *Config) ApplyEnv(env map[string]string) {
	set := func(key string, apply func(string)) {
		if v := strings.TrimSpace(env[key]); v != "" {
			apply(v)
		}
	}

	set(EnvDeployment, func(v string) { c.DeploymentEnv = v })
	set(EnvVPCID, func(v string) { c.VPCID = v })
	set(EnvKnowledgeBase, func(v string) { c.KnowledgeBaseID = v })
	set(EnvTable, func(v string) { c.setTable(c.mainTable(), v) })
	set(EnvBookings, func(v string) { c.setTable(store.TableBookings, v) })
	set(EnvAccommodation, func(v string) { c.setTable(store.TableAccommodation, v) })
	set(EnvVehicles, func(v string) { c.setTable(store.TableVehicles, v) })
	set(EnvRegion, func(v string) {
		c.Store.Region = v
		c.Endpoint.Region = v
	})
	set(EnvPort, func(v string) { c.Addr = ":" + v })
	set(EnvLogLevel, func(v string) { c.LogLevel = v })
}

func (c *Config) mainTable() string {
	if c.Industry == industries.Airline {
		return store.TableFlights
	}
	return store.TableCustomers
}

func (c *Config) setTable(name, physical string) {
	c.Store.Merge(&store.Config{Tables: map[string]store.TableConfig{
		name: {Name: physical},
	}})
}
