// Package http arma el router del servicio: superficie OAuth2, superficie
// legacy y endpoints operacionales.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	accountctrl "github.com/dropDatabas3/doorman/internal/http/controllers/account"
	compatctrl "github.com/dropDatabas3/doorman/internal/http/controllers/compat"
	oauthctrl "github.com/dropDatabas3/doorman/internal/http/controllers/oauth"
	"github.com/dropDatabas3/doorman/internal/http/middlewares"
	accountsvc "github.com/dropDatabas3/doorman/internal/service/account"
	compatsvc "github.com/dropDatabas3/doorman/internal/service/compat"
	oauthsvc "github.com/dropDatabas3/doorman/internal/service/oauth"
	"github.com/dropDatabas3/doorman/internal/store"
)

// Deps contains everything the router needs.
type Deps[D model.Data] struct {
	DAL        store.DataAccessLayer[D]
	Grants     oauthsvc.Service[D]
	Login      compatsvc.LoginService
	Account    accountsvc.Service
	Homeserver string
}

// NewRouter builds the chi router with all routes registered.
func NewRouter[D model.Data](d Deps[D]) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middlewares.RequestLogger)
	r.Use(chimw.Recoverer)

	// operacional
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := d.DAL.Ping(req.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// OAuth2
	tc := oauthctrl.NewTokenController(d.Grants)
	r.Post("/oauth2/token", tc.Token)

	// autogestión de cuenta
	ec := accountctrl.NewEmailsController(d.Account)
	r.Route("/account/emails", func(sr chi.Router) {
		sr.Get("/", ec.List)
		sr.Post("/", ec.Add)
		sr.Post("/primary", ec.SetPrimary)
		sr.Delete("/{address}", ec.Remove)
	})

	// superficie legacy: mismas rutas en v3 y r0
	lc := compatctrl.NewLoginController(d.Login, d.Homeserver)
	for _, ver := range []string{"v3", "r0"} {
		r.Route("/_matrix/client/"+ver, func(sr chi.Router) {
			sr.Get("/login", lc.GetFlows)
			sr.Post("/login", lc.PostLogin)
		})
	}

	return r
}
