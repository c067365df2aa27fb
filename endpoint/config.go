package endpoint

// Config holds model endpoint parameters.
type Config struct {
	Kind    string `yaml:"kind"`
	ModelID string `yaml:"model_id,omitempty"`
	Region  string `yaml:"region,omitempty"`
	URL     string `yaml:"url,omitempty"` // websocket gateway address
}

// DefaultConfig returns the Bedrock Nova Sonic configuration.
func DefaultConfig() Config {
	return Config{
		Kind:    KindBedrock,
		ModelID: "amazon.nova-sonic-v1:0",
		Region:  "us-east-1",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Kind != "" {
		c.Kind = source.Kind
	}
	if source.ModelID != "" {
		c.ModelID = source.ModelID
	}
	if source.Region != "" {
		c.Region = source.Region
	}
	if source.URL != "" {
		c.URL = source.URL
	}
}
