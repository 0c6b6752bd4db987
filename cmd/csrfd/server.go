package main

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JeanGrijp/go-csrf-firewall/csrf"
	"github.com/JeanGrijp/go-csrf-firewall/internal/config"
)

var page = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<body>
<form method="post" action="/submit">
{{.Field}}
<button type="submit">Submit</button>
</form>
</body>
</html>
`))

// newServer wires the issuer and firewall in front of the demo routes.
// /metrics stays outside the CSRF group so scrapers need no token, and
// /csrf-token only runs the issuer so strict mode can still bootstrap a client.
func newServer(cfg *config.Config, log *zap.Logger, reg *prometheus.Registry) (http.Handler, error) {
	icfg, err := cfg.IssuerConfig()
	if err != nil {
		return nil, err
	}
	fcfg := cfg.FirewallConfig()

	m, err := csrf.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	opts := []csrf.Option{csrf.WithLogger(log), csrf.WithMetrics(m)}
	iss := csrf.NewIssuer(icfg, opts...)
	fw := csrf.NewFirewall(fcfg, opts...)

	log.Info("csrf protection configured",
		zap.String("cookie", icfg.CookieName),
		zap.Int("length", icfg.TokenLength),
		zap.Bool("secure", icfg.Secure),
		zap.Bool("strict", cfg.Firewall.Strict),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// endpoint for SPAs to fetch the token
	r.With(iss.Protect).Get("/csrf-token", csrf.TokenHandler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(iss.Protect, fw.Protect)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			page.Execute(w, struct{ Field template.HTML }{csrf.TemplateField(r.Context(), fcfg.FieldName)})
		})

		r.Post("/submit", func(w http.ResponseWriter, r *http.Request) {
			// reaching this point means the token matched
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("ok"))
		})
	})

	return r, nil
}
