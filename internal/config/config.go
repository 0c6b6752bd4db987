// Package config loads the csrfd configuration from YAML, an optional .env
// file and the process environment.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JeanGrijp/go-csrf-firewall/csrf"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Env   string `yaml:"env"`   // dev | prod
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	CSRF struct {
		Cookie   string `yaml:"cookie"`
		Length   *int   `yaml:"length"`   // absent => 16
		Lifetime *int   `yaml:"lifetime"` // absent or null => session cookie
		Secure   bool   `yaml:"secure"`
		Path     string `yaml:"path"`
		Domain   string `yaml:"domain"`
		SameSite string `yaml:"same_site"` // lax | strict | none
	} `yaml:"csrf"`

	Firewall struct {
		Header        string `yaml:"header"`
		Field         string `yaml:"field"`
		Strict        bool   `yaml:"strict"`
		EnforceOrigin bool   `yaml:"enforce_origin"`
		AllowedOrigin string `yaml:"allowed_origin"`
	} `yaml:"firewall"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML and applies defaults.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.CSRF.Cookie == "" {
		c.CSRF.Cookie = csrf.DefaultCookieName
	}
	if c.CSRF.Length == nil {
		n := csrf.DefaultTokenLength
		c.CSRF.Length = &n
	}
	if c.Firewall.Header == "" {
		c.Firewall.Header = csrf.DefaultHeaderName
	}
	if c.Firewall.Field == "" {
		c.Firewall.Field = csrf.DefaultFieldName
	}
}

// LoadEnv loads the given .env files into the process environment. Missing
// files are skipped; variables already set are not overridden.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides c with ADDR, APP_ENV, LOG_LEVEL and CSRF_* variables
// found through lookup (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("ADDR", &c.Server.Addr)
	str("APP_ENV", &c.Log.Env)
	str("LOG_LEVEL", &c.Log.Level)
	str("CSRF_COOKIE", &c.CSRF.Cookie)
	str("CSRF_SAME_SITE", &c.CSRF.SameSite)
	str("CSRF_HEADER", &c.Firewall.Header)
	str("CSRF_FIELD", &c.Firewall.Field)

	if v, ok := lookup("CSRF_LENGTH"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CSRF_LENGTH: %w", err)
		}
		c.CSRF.Length = &n
	}
	if v, ok := lookup("CSRF_LIFETIME"); ok && v != "" {
		switch strings.ToLower(v) {
		case "session", "null", "none":
			c.CSRF.Lifetime = nil
		default:
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: CSRF_LIFETIME: %w", err)
			}
			c.CSRF.Lifetime = &n
		}
	}
	if err := boolean("CSRF_SECURE", &c.CSRF.Secure); err != nil {
		return err
	}
	return boolean("CSRF_STRICT", &c.Firewall.Strict)
}

// Validate rejects configurations that would fail on every request.
func (c *Config) Validate() error {
	if n := c.tokenLength(); n <= 0 {
		return fmt.Errorf("config: csrf.length must be positive, got %d", n)
	}
	if c.CSRF.Lifetime != nil && *c.CSRF.Lifetime < 0 {
		return fmt.Errorf("config: csrf.lifetime must not be negative, got %d", *c.CSRF.Lifetime)
	}
	if _, err := parseSameSite(c.CSRF.SameSite); err != nil {
		return err
	}
	return nil
}

// IssuerConfig converts the csrf section to csrf.Config.
func (c *Config) IssuerConfig() (csrf.Config, error) {
	ss, err := parseSameSite(c.CSRF.SameSite)
	if err != nil {
		return csrf.Config{}, err
	}
	out := csrf.Config{
		CookieName:   c.CSRF.Cookie,
		CookiePath:   c.CSRF.Path,
		CookieDomain: c.CSRF.Domain,
		SameSite:     ss,
		Secure:       c.CSRF.Secure,
		TokenLength:  c.tokenLength(),
	}
	if c.CSRF.Lifetime != nil {
		lt := *c.CSRF.Lifetime
		out.Lifetime = &lt
	}
	return out, nil
}

// tokenLength treats an unset length as csrf.DefaultTokenLength, so a Config
// built without Parse or Default is still usable.
func (c *Config) tokenLength() int {
	if c.CSRF.Length == nil {
		return csrf.DefaultTokenLength
	}
	return *c.CSRF.Length
}

// FirewallConfig converts the firewall section to csrf.FirewallConfig.
func (c *Config) FirewallConfig() csrf.FirewallConfig {
	policy := csrf.ExemptSafeMethods()
	if c.Firewall.Strict {
		policy = csrf.AlwaysRequired
	}
	return csrf.FirewallConfig{
		HeaderName:         c.Firewall.Header,
		FieldName:          c.Firewall.Field,
		Policy:             policy,
		EnforceOriginCheck: c.Firewall.EnforceOrigin,
		AllowedOrigin:      c.Firewall.AllowedOrigin,
	}
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("config: unknown same_site %q", s)
}
