package usecase

import (
	"sync"
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
)

const (
	authCacheTTL = 5 * time.Minute
)

type cachedPrincipal struct {
	principal auth.Principal
	expiresAt time.Time
}

// authCache keeps verified tokens so repeated requests skip signature checks
type authCache struct {
	cache sync.Map
}

func newAuthCache() *authCache {
	return &authCache{}
}

func (c *authCache) get(key string, now time.Time) (auth.Principal, bool) {
	val, ok := c.cache.Load(key)
	if !ok {
		return auth.Principal{}, false
	}

	cached := val.(*cachedPrincipal)
	if now.After(cached.expiresAt) {
		c.cache.Delete(key)
		return auth.Principal{}, false
	}

	return cached.principal, true
}

// set stores the principal until the token expires or the TTL passes, whichever is first
func (c *authCache) set(key string, p auth.Principal, tokenExpiry, now time.Time) {
	expiresAt := now.Add(authCacheTTL)
	if !tokenExpiry.IsZero() && tokenExpiry.Before(expiresAt) {
		expiresAt = tokenExpiry
	}
	c.cache.Store(key, &cachedPrincipal{
		principal: p,
		expiresAt: expiresAt,
	})
}
