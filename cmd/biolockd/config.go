package main

import (
	"time"

	"github.com/go-errors/errors"
)

// Config is the daemon configuration, loaded from config.json. The signing
// secret has no default: the daemon refuses to start without one rather than
// run with a guessable key.
type Config struct {
	ListenAddress string `json:"listen_address"`

	// SigningSecret keys the session token MAC; at least 32 bytes.
	SigningSecret string `json:"signing_secret"`

	// Group selects the proof group: "demo" (61-bit, interop/testing only)
	// or "modp3072".
	Group string `json:"group"`

	// ChallengeTTLMinutes bounds how long an issued nonce stays consumable.
	ChallengeTTLMinutes int `json:"challenge_ttl_minutes"`

	// ChallengeDBPath, AuditDBPath and LinkDBPath select bolt-backed stores;
	// empty means in-memory (single instance only).
	ChallengeDBPath string `json:"challenge_db_path"`
	AuditDBPath     string `json:"audit_db_path"`
	LinkDBPath      string `json:"link_db_path"`

	// PublicDomain prefixes generated magic links; deployments behind a
	// proxy set it to the externally reachable origin.
	PublicDomain string `json:"public_domain"`

	// LinkTTLHours bounds how long an unredeemed magic link stays valid.
	LinkTTLHours int `json:"link_ttl_hours"`

	RateLimit            int  `json:"rate_limit"`
	RateLimitWindowSecs  int  `json:"rate_limit_window_seconds"`
	SecureCookies        bool `json:"secure_cookies"`
	PurgeIntervalMinutes int  `json:"purge_interval_minutes"`
}

func (c *Config) validate() error {
	if c.SigningSecret == "" {
		return errors.New("signing_secret is not set; refusing to start without one")
	}
	if c.ListenAddress == "" {
		c.ListenAddress = ":8080"
	}
	if c.Group == "" {
		c.Group = "modp3072"
	}
	if c.Group != "demo" && c.Group != "modp3072" {
		return errors.Errorf("unknown group %q", c.Group)
	}
	if c.ChallengeTTLMinutes <= 0 {
		c.ChallengeTTLMinutes = 5
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 10
	}
	if c.RateLimitWindowSecs <= 0 {
		c.RateLimitWindowSecs = 60
	}
	if c.PurgeIntervalMinutes <= 0 {
		c.PurgeIntervalMinutes = 10
	}
	if c.PublicDomain == "" {
		c.PublicDomain = "http://localhost:8080"
	}
	if c.LinkTTLHours <= 0 {
		c.LinkTTLHours = 24
	}
	return nil
}

func (c *Config) challengeTTL() time.Duration {
	return time.Duration(c.ChallengeTTLMinutes) * time.Minute
}

func (c *Config) rateWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSecs) * time.Second
}

func (c *Config) purgeInterval() time.Duration {
	return time.Duration(c.PurgeIntervalMinutes) * time.Minute
}

func (c *Config) linkTTL() time.Duration {
	return time.Duration(c.LinkTTLHours) * time.Hour
}
