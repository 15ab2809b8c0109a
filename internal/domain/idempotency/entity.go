package idempotency

import "time"

// Status represents the lifecycle of an idempotency key record
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	MinKeyLength = 16
	MaxKeyLength = 64

	// DefaultTTL is how long a key record stays valid; past ExpiresAt the
	// record is treated as absent.
	DefaultTTL = 24 * time.Hour
)

// Record caches the outcome of one client-initiated mutating request,
// scoped to (key, tenant).
type Record struct {
	Key            string
	TenantID       string
	RequestPath    string
	RequestMethod  string
	Status         Status
	ResponseStatus int
	ResponseBody   []byte
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Expired reports whether the record is past its lifetime at t.
func (r Record) Expired(t time.Time) bool {
	return !r.ExpiresAt.After(t)
}

// ValidKey reports whether a client-supplied key has an acceptable length.
func ValidKey(key string) bool {
	return len(key) >= MinKeyLength && len(key) <= MaxKeyLength
}
