package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Providers  []ProviderStatus  `json:"providers"`
	Cache      *CacheStatus      `json:"cache,omitempty"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus represents the status of an upstream data provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState,omitempty"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Failures      int          `json:"failures,omitempty"`
}

// CacheStatus describes the offline snapshot cache.
type CacheStatus struct {
	HasData   bool       `json:"hasData"`
	Fresh     bool       `json:"fresh"`
	Online    bool       `json:"online"`
	Location  string     `json:"location,omitempty"`
	Source    string     `json:"source,omitempty"`
	WrittenAt *Timestamp `json:"writtenAt,omitempty"`
}
