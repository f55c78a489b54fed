// Package httpserver exposes the donation ledger over HTTP/JSON.
package httpserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/glimpsegive/glimpse-ledger/internal/auth"
	"github.com/glimpsegive/glimpse-ledger/internal/metrics"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
	"github.com/glimpsegive/glimpse-ledger/internal/service"
)

// maxBody bounds request bodies.
const maxBody = 64 << 10

// Donations is the donation pipeline as seen by handlers.
type Donations interface {
	Record(ctx context.Context, authHeader string, claim model.Claim) (model.Transaction, error)
	History(ctx context.Context, authHeader string) ([]model.Transaction, error)
	Prepare(ctx context.Context, req service.PrepareRequest) (service.PreparedDonation, error)
}

// SignIn issues nonces and session tokens.
type SignIn interface {
	IssueNonce(ctx context.Context) (string, error)
	SignIn(ctx context.Context, in auth.SignIn, ip string) (model.Tokens, model.Profile, error)
}

// Pinger reports storage reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds handler dependencies.
type Server struct {
	donations Donations
	signin    SignIn
	db        Pinger
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// New constructs a Server. db and m may be nil.
func New(donations Donations, signin SignIn, db Pinger, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{donations: donations, signin: signin, db: db, metrics: m, log: log}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/record-transaction", s.handleRecord).Methods(http.MethodPost)
	r.HandleFunc("/donations/prepare", s.handlePrepare).Methods(http.MethodPost)
	r.HandleFunc("/transactions", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/nonce", s.handleNonce).Methods(http.MethodPost)
	r.HandleFunc("/siws-verify", s.handleSignIn).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.Use(markRoute)
	return withRequestID(s.logging(s.recoverer(r)))
}
