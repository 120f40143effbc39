package domain

// HealthStatusHealthy is the only status the health endpoint reports
const HealthStatusHealthy = "healthy"

// NetworkInterface is one reachable IPv4 address of the host
type NetworkInterface struct {
	Interface string `json:"interface"`
	IP        string `json:"ip"`
	URL       string `json:"url"`
}

// NetworkInfo lists the URLs under which the server can be reached
type NetworkInfo struct {
	Localhost string             `json:"localhost"`
	Hostname  string             `json:"hostname,omitempty"`
	PrimaryIP string             `json:"primaryIp,omitempty"`
	Networks  []NetworkInterface `json:"networks"`
}

// MemoryStats is a snapshot of host-wide virtual memory, in bytes. Fields
// the platform does not report are zero.
type MemoryStats struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Percent   float64 `json:"percent"`
	Used      uint64  `json:"used"`
	Free      uint64  `json:"free"`
	Active    uint64  `json:"active"`
	Inactive  uint64  `json:"inactive"`
	Buffers   uint64  `json:"buffers"`
	Cached    uint64  `json:"cached"`
	Shared    uint64  `json:"shared"`
	Slab      uint64  `json:"slab"`
}

// HealthReport is the body of a successful health check.
//
// Uptime carries the host boot time in Unix seconds, not a duration.
type HealthReport struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Uptime    uint64      `json:"uptime"`
	Memory    MemoryStats `json:"memory"`
	ClientIP  string      `json:"clientIp"`
	ServerIP  NetworkInfo `json:"serverIp"`
}
