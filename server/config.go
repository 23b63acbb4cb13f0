package server

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/weeksdev/duckfinder/browser"
	"github.com/weeksdev/duckfinder/shell"
)

// Config holds server configuration
type Config struct {
	// Server infrastructure (immutable, requires restart)
	Port int
	Host string
	Env  string // "development" or "production"

	// Browser settings
	StartDir      string
	DebounceDelay time.Duration

	// Shell settings
	Shell       string
	ShellPath   string
	CancelGrace time.Duration

	// Interactive terminal endpoint
	TerminalEnabled bool

	// Request guards
	AccessToken    string   // When set, API requests must present it
	AllowedOrigins []string // Extra origin patterns; host[:port] or scheme://host[:port]
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// ToShellConfig converts server config to shell runner config
func (c *Config) ToShellConfig() shell.Config {
	return shell.Config{
		Shell:       c.Shell,
		PathEnv:     c.ShellPath,
		CancelGrace: c.CancelGrace,
	}
}

// ToBrowserConfig converts server config to controller config
func (c *Config) ToBrowserConfig() browser.Config {
	return browser.Config{
		StartDir:      c.StartDir,
		DebounceDelay: c.DebounceDelay,
		Shell:         c.ToShellConfig(),
	}
}

// OriginPatterns returns the browser origins allowed to call the API besides
// the one a request was addressed to. Patterns follow path.Match syntax.
func (c *Config) OriginPatterns() []string {
	port := fmt.Sprint(c.Port)
	patterns := []string{
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("127.0.0.1", port),
		net.JoinHostPort("::1", port),
	}
	switch c.Host {
	case "", "0.0.0.0", "::", "localhost", "127.0.0.1", "::1":
	default:
		patterns = append(patterns, net.JoinHostPort(c.Host, port))
	}
	return append(patterns, c.AllowedOrigins...)
}

// OriginAllowed reports whether a request carrying the given Origin header
// may act on the API. Requests without an Origin (non-browser clients) and
// same-origin requests are always allowed.
func (c *Config) OriginAllowed(origin, requestHost string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, requestHost) {
		return true
	}
	for _, pattern := range c.OriginPatterns() {
		target := u.Host
		if strings.Contains(pattern, "://") {
			target = u.Scheme + "://" + u.Host
		}
		if ok, err := path.Match(strings.ToLower(pattern), strings.ToLower(target)); err == nil && ok {
			return true
		}
	}
	return false
}
