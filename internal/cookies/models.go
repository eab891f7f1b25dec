package cookies

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cookie is a stored cookie. ID is derived from domain, path and name.
type Cookie struct {
	ID       string    `json:"id"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"httpOnly"`
	HostOnly bool      `json:"hostOnly,omitempty"`
	SameSite string    `json:"sameSite,omitempty"`
	Expires  time.Time `json:"expires"`
}

// Key returns the store key of a cookie.
func Key(domain, path, name string) string {
	return domain + "|" + path + "|" + name
}

// IsExpired reports whether the cookie expired before now. Session cookies
// never expire.
func (c Cookie) IsExpired(now time.Time) bool {
	if c.Expires.IsZero() {
		return false
	}
	return now.After(c.Expires)
}

// IsSession reports whether this is a session cookie.
func (c Cookie) IsSession() bool {
	return c.Expires.IsZero()
}

// ToHTTPCookie converts to a standard http.Cookie. Host-only cookies carry no
// Domain attribute.
func (c Cookie) ToHTTPCookie() *http.Cookie {
	sameSite := http.SameSiteDefaultMode
	switch c.SameSite {
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	domain := c.Domain
	if c.HostOnly {
		domain = ""
	}

	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: sameSite,
		Expires:  c.Expires,
	}
}

// FromHTTPCookie builds a Cookie from a Set-Cookie received for u.
// A negative MaxAge yields an already expired cookie.
func FromHTTPCookie(u *url.URL, hc *http.Cookie, now time.Time) Cookie {
	domain := strings.TrimPrefix(hc.Domain, ".")
	if domain == "" {
		domain = u.Hostname()
	}
	path := hc.Path
	if path == "" {
		path = "/"
	}

	sameSite := ""
	switch hc.SameSite {
	case http.SameSiteLaxMode:
		sameSite = "lax"
	case http.SameSiteStrictMode:
		sameSite = "strict"
	case http.SameSiteNoneMode:
		sameSite = "none"
	}

	expires := hc.Expires
	switch {
	case hc.MaxAge > 0:
		expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
	case hc.MaxAge < 0:
		expires = time.Unix(0, 0).UTC()
	}

	return Cookie{
		ID:       Key(domain, path, hc.Name),
		Domain:   domain,
		Path:     path,
		Name:     hc.Name,
		Value:    hc.Value,
		Secure:   hc.Secure,
		HttpOnly: hc.HttpOnly,
		HostOnly: hc.Domain == "",
		SameSite: sameSite,
		Expires:  expires,
	}
}
