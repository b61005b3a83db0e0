// Package proxy hands out outbound proxy endpoints, one per browser session.
package proxy

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Rotator yields the configured proxies round-robin. An empty rotator
// always yields "", meaning a direct connection.
type Rotator struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

func New(proxies []string) *Rotator {
	r := &Rotator{}
	r.Configure(proxies)
	return r
}

// Configure replaces the pool and restarts from its first entry.
// Blank entries are ignored.
func (r *Rotator) Configure(proxies []string) {
	cleaned := make([]string, 0, len(proxies))
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxies = cleaned
	r.next = 0
}

// Next returns the next endpoint, wrapping after the last one.
func (r *Rotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.proxies) == 0 {
		return ""
	}
	p := r.proxies[r.next]
	r.next = (r.next + 1) % len(r.proxies)
	return p
}

func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// Endpoint is a proxy split into the parts a browser launcher needs.
type Endpoint struct {
	Server   string
	Username string
	Password string
}

// ParseEndpoint accepts "host:port" or "scheme://[user:pass@]host:port".
// A missing scheme defaults to http.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, fmt.Errorf("empty proxy endpoint")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("proxy %q has no host", raw)
	}

	ep := Endpoint{Server: u.Scheme + "://" + u.Host}
	if u.User != nil {
		ep.Username = u.User.Username()
		ep.Password, _ = u.User.Password()
	}
	return ep, nil
}

// Redact hides credentials so the endpoint can be logged.
func Redact(raw string) string {
	ep, err := ParseEndpoint(raw)
	if err != nil {
		return raw
	}
	if ep.Username == "" {
		return ep.Server
	}
	scheme, host, _ := strings.Cut(ep.Server, "://")
	return scheme + "://***@" + host
}
