package csrf

import (
	"crypto/rand"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config describes the token cookie. It is read once by NewIssuer and never
// mutated afterwards.
type Config struct {
	// Cookie
	CookieName   string
	CookiePath   string // omitted from Set-Cookie when empty
	CookieDomain string // omitted from Set-Cookie when empty
	SameSite     http.SameSite
	Secure       bool

	// Lifetime in seconds; nil issues a session cookie (no Expires/Max-Age).
	Lifetime *int

	// TokenLength is the number of characters in a token. Values <= 0 make
	// every issuance fail with ErrRandomSource.
	TokenLength int
}

// DefaultConfig returns the configuration used when nothing is configured:
// cookie "csrf-token", 16 character tokens, session lifetime, not Secure.
func DefaultConfig() Config {
	return Config{
		CookieName:  DefaultCookieName,
		TokenLength: DefaultTokenLength,
	}
}

const (
	// DefaultCookieName is the token cookie name.
	DefaultCookieName = "csrf-token"
	// DefaultTokenLength is the token length in characters.
	DefaultTokenLength = 16
	// DefaultHeaderName is the header the firewall reads the submitted token from.
	DefaultHeaderName = "X-CSRF-Token"
	// DefaultFieldName is the body field read when the header is absent.
	DefaultFieldName = "csrf-token"
)

// FirewallConfig holds the names the firewall reads the submitted token from
// and the policy deciding which requests are validated.
type FirewallConfig struct {
	HeaderName string
	FieldName  string
	Policy     Policy

	// Extra security
	EnforceOriginCheck bool
	AllowedOrigin      string // if empty, uses r.Host
}

// ErrorHandler receives the fatal errors of a stage (ErrRandomSource,
// ErrMissingTokenAttribute). Rejections never reach it.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option customizes an Issuer or a Firewall.
type Option func(*settings)

type settings struct {
	log     *zap.Logger
	metrics *Metrics
	random  io.Reader
	now     func() time.Time
	onError ErrorHandler
}

func newSettings(opts []Option) settings {
	s := settings{
		log:    zap.NewNop(),
		random: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.onError == nil {
		s.onError = defaultErrorHandler(s.log)
	}
	return s
}

// WithLogger sets the logger used for issuance and validation events.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records issuance and validation outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithRandom replaces crypto/rand.Reader as the token entropy source.
// The reader must be safe for concurrent use.
func WithRandom(r io.Reader) Option {
	return func(s *settings) {
		if r != nil {
			s.random = r
		}
	}
}

// WithClock sets the clock used to compute the cookie Expires attribute.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithErrorHandler overrides the default handler (log + 500) for fatal errors.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *settings) { s.onError = h }
}

func defaultErrorHandler(log *zap.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("csrf stage failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
