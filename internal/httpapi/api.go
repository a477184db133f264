package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"kortio.se/internal/audit"
	"kortio.se/internal/bank"
	"kortio.se/internal/obs"
)

// ReadyProbe reports whether the backing store can serve traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options configures the HTTP layer.
type Options struct {
	Store      bank.Store
	ReadyProbe ReadyProbe
	Version    string

	// DevMode lets 500 responses carry the underlying error text.
	DevMode bool

	// AuthSecret enables bearer-token auth when RequireAuth is set.
	AuthSecret  []byte
	TokenTTL    time.Duration
	RequireAuth bool

	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

// API is the HTTP layer over the store.
type API struct {
	mux        *http.ServeMux
	store      bank.Store
	readyProbe ReadyProbe
	version    string
	devMode    bool

	authSecret  []byte
	tokenTTL    time.Duration
	requireAuth bool

	rateRPS      float64
	rateBurst    int
	maxBodyBytes int64
}

func New(opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		store:        opts.Store,
		readyProbe:   opts.ReadyProbe,
		version:      opts.Version,
		devMode:      opts.DevMode,
		authSecret:   opts.AuthSecret,
		tokenTTL:     opts.TokenTTL,
		requireAuth:  opts.RequireAuth,
		rateRPS:      opts.RateLimitRPS,
		rateBurst:    opts.RateLimitBurst,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if a.version == "" {
		a.version = "dev"
	}
	if a.tokenTTL <= 0 {
		a.tokenTTL = time.Hour
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/companies", a.handleCompaniesCollection)
	a.mux.HandleFunc("/v1/companies/", a.handleCompanyScoped)
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountScoped)
	a.mux.HandleFunc("/v1/loans", a.handleLoansCollection)
	a.mux.HandleFunc("/v1/loans/", a.handleLoanScoped)
	a.mux.HandleFunc("/v1/cards", a.handleCardsCollection)
	a.mux.HandleFunc("/v1/cards/", a.handleCardScoped)
	a.mux.HandleFunc("/v1/transactions", a.handleTransactionsCollection)
	a.mux.HandleFunc("/v1/transactions/", a.handleTransactionScoped)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	if a.rateRPS > 0 && a.rateBurst > 0 {
		h = RateLimit(h, a.rateBurst, a.rateRPS)
	}
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "kortio-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "kortio-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// audit records an entity event, never failing the request on logger errors.
func (a *API) audit(ctx context.Context, event, entityID string, extra map[string]any) {
	fields := map[string]any{"id": entityID}
	for k, v := range extra {
		fields[k] = v
	}
	_ = audit.LogEvent(ctx, event, fields)
}
