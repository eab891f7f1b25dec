// Package cookies keeps the cookies of credentialed requests across runs.
package cookies

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/net/publicsuffix"

	"github.com/artpar/requst/internal/storage"
)

// Jar implements http.CookieJar on top of an in-memory cookiejar, writing
// every change through to the cookies store.
type Jar struct {
	mu     sync.RWMutex
	jar    *cookiejar.Jar
	store  storage.Store
	logger hclog.Logger
	now    func() time.Time
}

// Option configures a Jar.
type Option func(*Jar)

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(j *Jar) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithClock sets the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(j *Jar) {
		j.now = now
	}
}

// NewJar creates a jar and loads every unexpired stored cookie into it.
func NewJar(ctx context.Context, store storage.Store, opts ...Option) (*Jar, error) {
	j := &Jar{
		store:  store,
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	if err := j.reload(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

// reload rebuilds the in-memory jar from the store. Callers hold mu or own j.
func (j *Jar) reload(ctx context.Context) error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}

	list, err := j.List(ctx)
	if err != nil {
		return err
	}

	// A host-only cookie is replayed against its exact host, so the jar
	// keeps it away from subdomains.
	byHost := make(map[string][]*http.Cookie)
	for _, c := range list {
		byHost[c.Domain] = append(byHost[c.Domain], c.ToHTTPCookie())
	}
	for host, cookies := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cookies)
	}

	j.jar = jar
	return nil
}

// SetCookies implements http.CookieJar. Expired and deleted cookies are removed
// from the store. Store failures are logged, since the interface cannot
// return them.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	ctx := context.Background()
	now := j.now()
	err := j.store.RunTransaction(ctx, []storage.Name{storage.Cookies}, storage.ReadWrite, func(tx storage.Tx) error {
		for _, hc := range cookies {
			c := FromHTTPCookie(u, hc, now)
			if c.IsExpired(now) {
				if err := tx.Delete(ctx, storage.Cookies, storage.StringKey(c.ID)); err != nil {
					return err
				}
				continue
			}
			if _, err := tx.Put(ctx, storage.Cookies, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		j.logger.Error("failed to persist cookies", "host", u.Hostname(), "error", err)
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// List returns every stored cookie that has not expired.
func (j *Jar) List(ctx context.Context) ([]Cookie, error) {
	all, err := storage.GetAllAs[Cookie](ctx, j.store, storage.Cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to list cookies: %w", err)
	}
	now := j.now()
	list := make([]Cookie, 0, len(all))
	for _, c := range all {
		if !c.IsExpired(now) {
			list = append(list, c)
		}
	}
	return list, nil
}

// Clear removes every cookie.
func (j *Jar) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.store.Clear(ctx, storage.Cookies); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return j.reload(ctx)
}

// ClearDomain removes the cookies stored for domain and returns how many
// were removed.
func (j *Jar) ClearDomain(ctx context.Context, domain string) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	removed, err := j.deleteWhere(ctx, func(c Cookie) bool { return c.Domain == domain })
	if err != nil {
		return 0, fmt.Errorf("failed to clear cookies for %s: %w", domain, err)
	}
	return removed, j.reload(ctx)
}

// DeleteExpired removes expired cookies from the store.
func (j *Jar) DeleteExpired(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	removed, err := j.deleteWhere(ctx, func(c Cookie) bool { return c.IsExpired(now) })
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cookies: %w", err)
	}
	if removed > 0 {
		j.logger.Debug("expired cookies removed", "count", removed)
	}
	return removed, nil
}

func (j *Jar) deleteWhere(ctx context.Context, match func(Cookie) bool) (int, error) {
	removed := 0
	err := j.store.RunTransaction(ctx, []storage.Name{storage.Cookies}, storage.ReadWrite, func(tx storage.Tx) error {
		all, err := storage.GetAllAs[Cookie](ctx, tx, storage.Cookies)
		if err != nil {
			return err
		}
		for _, c := range all {
			if !match(c) {
				continue
			}
			if err := tx.Delete(ctx, storage.Cookies, storage.StringKey(c.ID)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
