package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/roomgen/internal/database"
	"github.com/lawnchairsociety/roomgen/internal/layout"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the top-level roomgen configuration file.
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Output    OutputConfig    `yaml:"output"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
}

// GeneratorConfig describes the layout to generate.
type GeneratorConfig struct {
	// Seed drives every random decision. 0 picks a time-based seed.
	Seed int64 `yaml:"seed"`

	// Bounds optionally confines the layout to a rectangle of cells.
	Bounds *BoundsConfig `yaml:"bounds"`

	// Steps are applied in order, each adding Count rooms.
	Steps []StepConfig `yaml:"steps"`
}

// BoundsConfig is an inclusive cell rectangle.
type BoundsConfig struct {
	MinX int `yaml:"min_x"`
	MinY int `yaml:"min_y"`
	MaxX int `yaml:"max_x"`
	MaxY int `yaml:"max_y"`
}

// StepConfig is one batch of rooms.
type StepConfig struct {
	// Kind is "solid" (alias "merged") or "partitioned".
	Kind      string `yaml:"kind"`
	Count     int    `yaml:"count"`
	MinBlocks int    `yaml:"min_blocks"`
	MaxBlocks int    `yaml:"max_blocks"`

	// Door is the state of the side pair joining the room to the layout:
	// "door" (default), "open" or "wall".
	Door string `yaml:"door"`
}

// OutputConfig controls where generated layouts are written.
type OutputConfig struct {
	// Path of the YAML layout file. Empty writes nothing.
	Path string `yaml:"path"`
}

// StorageConfig selects the layout database.
type StorageConfig struct {
	// Driver is "sqlite", "postgres" or "" for no database.
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// ServerConfig holds settings for the generation server.
type ServerConfig struct {
	Address     string            `yaml:"address"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`

	// MaxRoomsPerRequest caps the total room count of one request.
	MaxRoomsPerRequest int `yaml:"max_rooms_per_request"`

	// MaxBlocksPerRoom caps max_blocks of every requested step.
	MaxBlocksPerRoom int `yaml:"max_blocks_per_room"`
}

// ConnectionsConfig holds connection limit settings. 0 means unlimited.
type ConnectionsConfig struct {
	MaxPerIP int `yaml:"max_per_ip"`
	MaxTotal int `yaml:"max_total"`

	// TrustProxyHeaders keys per-IP limits on X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns a small mixed layout with no database.
func DefaultConfig() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Steps: []StepConfig{
				{Kind: "solid", Count: 6, MinBlocks: 2, MaxBlocks: 8, Door: "door"},
				{Kind: "partitioned", Count: 4, MinBlocks: 4, MaxBlocks: 10, Door: "door"},
			},
		},
		Storage: StorageConfig{
			SQLitePath: "data/layouts.db",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Server: ServerConfig{
			Address: ":8080",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{},
				MaxMessageSize: 16384,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 4,
				MaxTotal: 100,
			},
			MaxRoomsPerRequest: 200,
			MaxBlocksPerRoom:   64,
		},
	}
}

// LoadConfig loads configuration from a YAML file over the defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return config, nil
}

// Validate checks every step and the storage and server sections.
func (c *Config) Validate() error {
	if _, err := c.Generator.LayoutSteps(); err != nil {
		return err
	}
	if b := c.Generator.Bounds; b != nil && (b.MaxX < b.MinX || b.MaxY < b.MinY) {
		return fmt.Errorf("%w: bounds max (%d,%d) below min (%d,%d)", ErrInvalidConfig, b.MaxX, b.MaxY, b.MinX, b.MinY)
	}

	switch c.Storage.Driver {
	case "":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite storage needs sqlite_path", ErrInvalidConfig)
		}
	case "postgres":
		if c.Storage.Postgres.Host == "" || c.Storage.Postgres.Database == "" {
			return fmt.Errorf("%w: postgres storage needs host and database", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Server.MaxRoomsPerRequest < 0 || c.Server.MaxBlocksPerRoom < 0 {
		return fmt.Errorf("%w: server limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LayoutSteps converts the configured steps into generator steps.
func (g GeneratorConfig) LayoutSteps() ([]layout.Step, error) {
	steps := make([]layout.Step, 0, len(g.Steps))
	for i, s := range g.Steps {
		step, err := s.LayoutStep()
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidConfig, i, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// LayoutStep converts one configured step, defaulting the door to "door".
func (s StepConfig) LayoutStep() (layout.Step, error) {
	kind, err := layout.ParseRoomKind(s.Kind)
	if err != nil {
		return layout.Step{}, err
	}
	door := layout.Door
	if s.Door != "" {
		if door, err = layout.ParseSideState(s.Door); err != nil {
			return layout.Step{}, err
		}
	}
	step := layout.Step{
		Kind:      kind,
		Count:     s.Count,
		MinBlocks: s.MinBlocks,
		MaxBlocks: s.MaxBlocks,
		Door:      door,
	}
	return step, step.Validate()
}

// Options returns the generator options for the seed and bounds.
func (g GeneratorConfig) Options() []layout.Option {
	var opts []layout.Option
	if g.Seed != 0 {
		opts = append(opts, layout.WithSeed(g.Seed))
	}
	if b := g.Bounds; b != nil {
		opts = append(opts, layout.WithBounds(layout.Rect{
			Min: layout.Coord{X: b.MinX, Y: b.MinY},
			Max: layout.Coord{X: b.MaxX, Y: b.MaxY},
		}))
	}
	return opts
}

// DatabaseConfig converts the storage section for database.Open.
func (s StorageConfig) DatabaseConfig() database.Config {
	if s.Driver == "postgres" {
		pg := database.DefaultPostgresConfig()
		pg.Host = s.Postgres.Host
		if s.Postgres.Port != 0 {
			pg.Port = s.Postgres.Port
		}
		pg.User = s.Postgres.User
		pg.Password = s.Postgres.Password
		pg.Database = s.Postgres.Database
		if s.Postgres.SSLMode != "" {
			pg.SSLMode = s.Postgres.SSLMode
		}
		return database.Config{Driver: "postgres", Postgres: pg}
	}
	return database.DefaultConfig(s.SQLitePath)
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // Non-browser clients send no Origin header
	}

	host := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		host = origin[idx+3:]
	}
	return strings.TrimSuffix(host, "/") == requestHost
}
