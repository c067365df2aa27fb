package session

// Config holds session initialization parameters.
type Config struct {
	// MaxToolCallLog bounds the per-session tool call log. Zero disables it.
	MaxToolCallLog int `yaml:"max_tool_call_log"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{MaxToolCallLog: 64}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.MaxToolCallLog > 0 {
		c.MaxToolCallLog = source.MaxToolCallLog
	}
}

// New creates a Session from configuration.
func New(cfg *Config) (Session, error) {
	return NewMemorySession(cfg.MaxToolCallLog), nil
}
