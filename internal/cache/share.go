package cache

import (
	"time"

	"github.com/google/uuid"
)

const maxShareLinks = 256

// ShareLinks maps short-lived public tokens to history entry IDs.
type ShareLinks struct {
	links *LRU[string]
}

func NewShareLinks(ttl time.Duration) *ShareLinks {
	return &ShareLinks{links: NewLRU[string](maxShareLinks, ttl)}
}

// Create mints a token for historyID.
func (s *ShareLinks) Create(historyID string) (token string, expiresAt time.Time) {
	token = uuid.NewString()
	return token, s.links.Set(token, historyID)
}

// Resolve returns the history ID behind a live token.
func (s *ShareLinks) Resolve(token string) (string, bool) {
	return s.links.Get(token)
}

// Revoke invalidates a token before it expires.
func (s *ShareLinks) Revoke(token string) {
	s.links.Delete(token)
}

func (s *ShareLinks) CleanExpired() int {
	return s.links.CleanExpired()
}
