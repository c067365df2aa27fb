package store

// Backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendDynamoDB = "dynamodb"
)

// Logical table names used by the industry tool sets.
const (
	TableCustomers     = "customers"
	TableBookings      = "bookings"
	TableVehicles      = "vehicles"
	TableAccommodation = "accommodation"
	TableFlights       = "flights"
)

// TableConfig describes one logical table.
type TableConfig struct {
	Name  string `yaml:"name"`            // physical table name or directory
	Key   string `yaml:"key"`             // partition key attribute
	Sort  string `yaml:"sort,omitempty"`  // sort key attribute, optional
	Index string `yaml:"index,omitempty"` // attribute served by the "<name>-index" GSI
}

// IndexName returns the secondary index name used for Index queries.
func (t TableConfig) IndexName() string {
	return t.Name + "-index"
}

// Config holds store initialization parameters.
type Config struct {
	Backend  string                 `yaml:"backend"`
	Path     string                 `yaml:"path,omitempty"`     // file backend root directory
	Region   string                 `yaml:"region,omitempty"`   // dynamodb region
	Endpoint string                 `yaml:"endpoint,omitempty"` // dynamodb endpoint override (local)
	Cache    bool                   `yaml:"cache,omitempty"`    // write-through cache over file and dynamodb tables
	Tables   map[string]TableConfig `yaml:"tables,omitempty"`
}

// DefaultConfig returns an in-memory configuration with the table layouts
// the industry tool sets expect.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Tables: map[string]TableConfig{
			TableCustomers:     {Name: "callcenter_customers", Key: "phone_number"},
			TableBookings:      {Name: "thl_customer_bookings", Key: "contact_phone", Sort: "booking_ref", Index: "booking_ref"},
			TableVehicles:      {Name: "thl_vehicle_information", Key: "registration"},
			TableAccommodation: {Name: "thl_accommodation_options", Key: "id"},
			TableFlights:       {Name: "airline_customers", Key: "frequentFlyerNumber", Sort: "bookingReference", Index: "bookingReference"},
		},
	}
}

// Merge applies non-zero values from source into c. Table entries merge
// field by field.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Region != "" {
		c.Region = source.Region
	}
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.Cache {
		c.Cache = true
	}

	if len(source.Tables) > 0 && c.Tables == nil {
		c.Tables = make(map[string]TableConfig, len(source.Tables))
	}
	for name, src := range source.Tables {
		t := c.Tables[name]
		if src.Name != "" {
			t.Name = src.Name
		}
		if src.Key != "" {
			t.Key = src.Key
		}
		if src.Sort != "" {
			t.Sort = src.Sort
		}
		if src.Index != "" {
			t.Index = src.Index
		}
		c.Tables[name] = t
	}
}
