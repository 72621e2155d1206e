package models

import "time"

// SystemMetrics is a JSON-friendly digest of the Prometheus registry.
type SystemMetrics struct {
	RequestsTotal            uint64            `json:"requestsTotal"`
	AverageRequestDurationMs float64           `json:"averageRequestDurationMs"`
	CacheHits                uint64            `json:"cacheHits"`
	CacheMisses              uint64            `json:"cacheMisses"`
	CacheHitRatio            float64           `json:"cacheHitRatio"`
	Transitions              map[string]uint64 `json:"transitions"`
	VersionsUploaded         map[string]uint64 `json:"versionsUploaded"`
	ExpirationsReconciled    map[string]uint64 `json:"expirationsReconciled"`
	BackendErrors            map[string]uint64 `json:"backendErrors"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generatedAt"`
}
