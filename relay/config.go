package relay

import "time"

// Config holds relay behavior parameters.
type Config struct {
	// ForwardToolUse also forwards toolUse events to the client, for UIs
	// that display tool activity.
	ForwardToolUse bool `yaml:"forward_tool_use"`
	// DispatchOnToolUse runs the tool as soon as the toolUse event arrives
	// instead of waiting for the model to close the TOOL content block.
	DispatchOnToolUse bool `yaml:"dispatch_on_tool_use"`
	// ToolTimeout is the deadline for a single tool call. The handler's
	// context carries it, and a call still running when it passes is
	// answered with an error result. Zero means no deadline.
	ToolTimeout time.Duration `yaml:"tool_timeout"`
}

// DefaultConfig returns the default relay configuration.
func DefaultConfig() Config {
	return Config{ToolTimeout: 30 * time.Second}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.ForwardToolUse {
		c.ForwardToolUse = true
	}
	if source.DispatchOnToolUse {
		c.DispatchOnToolUse = true
	}
	if source.ToolTimeout > 0 {
		c.ToolTimeout = source.ToolTimeout
	}
}
