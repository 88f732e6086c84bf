package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Backend  string          `json:"backend"`
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	Error       string `json:"error,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// OpsMetrics is returned by GET /v1/ops/metrics.
type OpsMetrics struct {
	TotalRequests     int64   `json:"totalRequests"`
	ErrorRate         float64 `json:"errorRate"`
	Renewals          int64   `json:"renewals"`
	ImportedCustomers int64   `json:"importedCustomers"`
	BackendErrors     int64   `json:"backendErrors"`
	CacheHitRate      float64 `json:"cacheHitRate"`
	SnapshotStale     bool    `json:"snapshotStale"`
	SnapshotAgeSec    float64 `json:"snapshotAgeSec"`
	CustomersTracked  int     `json:"customersTracked"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Notice  Notice `json:"notice"`
}

// ImportResult answers POST /v1/customers/import.
type ImportResult struct {
	Imported int    `json:"importados"`
	Notice   Notice `json:"notice"`
}
