package models

import "time"

// SystemMetrics is a point-in-time snapshot of service instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64            `json:"requestsTotal"`
	AverageRequestDurationMs float64           `json:"averageRequestDurationMs"`
	CacheHits                uint64            `json:"cacheHits"`
	CacheMisses              uint64            `json:"cacheMisses"`
	CacheHitRatio            float64           `json:"cacheHitRatio"`
	Transitions              map[string]uint64 `json:"transitions"`
	AttestationsIssued       uint64            `json:"attestationsIssued"`
	AttestationsDenied       uint64            `json:"attestationsDenied"`
	AttestationFailures      map[string]uint64 `json:"attestationFailures"`
	ScopeDenials             uint64            `json:"scopeDenials"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generatedAt"`
}
