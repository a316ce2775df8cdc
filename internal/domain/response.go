package domain

import "time"

// CachedResponse is a converted envelope kept for reuse by identical requests.
type CachedResponse struct {
	ID         string    `json:"id"`
	CacheKey   string    `json:"cacheKey"`
	Entity     string    `json:"entity"`
	Query      string    `json:"query"`
	Body       string    `json:"body"` // envelope JSON
	Rows       int       `json:"rows"`
	DurationMs int       `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// ResponseCache stores converted responses by cache key.
type ResponseCache interface {
	Put(r *CachedResponse) error
	Get(cacheKey string) (*CachedResponse, error)
	PurgeExpired() (int64, error)
}
