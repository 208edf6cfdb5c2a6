// Package session owns the single vendor access token shared by every request.
package session

import (
	"context"
	"sync"

	"github.com/Domenick1991/airbroker/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Authenticator performs the vendor login exchange.
type Authenticator interface {
	Login(ctx context.Context) (string, error)
}

// TokenSource hands out a vendor access token.
type TokenSource interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
	// InvalidateIf drops the cached token only if it is still token, so a
	// late rejection of an old token keeps a newer one.
	InvalidateIf(token string) bool
}

// Cache keeps the access token in memory. Concurrent callers that find the
// cache empty share one login. Forced refreshes share a separate login that
// never short-circuits to the cached value.
type Cache struct {
	auth Authenticator

	mu    sync.RWMutex
	token string
	// gen counts stored logins.
	gen uint64

	logins singleflight.Group
}

func NewCache(auth Authenticator) *Cache {
	return &Cache{auth: auth}
}

// Token returns the cached token, logging in when none is cached. With
// forceRefresh the cached token is dropped first. Login errors are returned
// as is and nothing is cached.
func (c *Cache) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if forceRefresh {
		c.Invalidate()
	} else if token := c.cached(); token != "" {
		return token, nil
	}

	key := "login"
	if forceRefresh {
		key = "refresh"
	}
	v, err, _ := c.logins.Do(key, func() (any, error) {
		c.mu.RLock()
		current, startGen := c.token, c.gen
		c.mu.RUnlock()
		if !forceRefresh && current != "" {
			return current, nil
		}
		// Detached so that one caller giving up does not fail the others
		// waiting on the same login; the vendor client bounds the call.
		token, err := c.auth.Login(context.WithoutCancel(ctx))
		if err != nil {
			metrics.VendorLogins.WithLabelValues("error").Inc()
			log.Warn().Err(err).Msg("vendor login failed")
			return "", err
		}
		metrics.VendorLogins.WithLabelValues("ok").Inc()

		c.mu.Lock()
		if !forceRefresh && c.gen != startGen && c.token != "" {
			// A forced refresh stored a newer token while this login ran.
			token = c.token
		} else {
			c.token = token
			c.gen++
		}
		c.mu.Unlock()
		log.Debug().Msg("vendor access token refreshed")
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate forgets the cached token. The next Token call logs in again.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Cache) InvalidateIf(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == "" || c.token != token {
		return false
	}
	c.token = ""
	return true
}

func (c *Cache) cached() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

var _ TokenSource = (*Cache)(nil)
