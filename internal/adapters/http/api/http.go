// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/twobeats/worldcup/internal/domain/model"
	"github.com/twobeats/worldcup/internal/domain/types"
	"github.com/twobeats/worldcup/pkg/logger"
	"github.com/twobeats/worldcup/pkg/metrics"
)

// maxBodyBytes bounds request bodies; a 32-slot result with picks is well under 8 KiB.
const maxBodyBytes = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	IssueBracket(ctx context.Context, f model.Filter, size int) (model.IssuedBracket, error)
	GetBracket(ctx context.Context, id string) (model.BracketSpec, error)
	SubmitResult(ctx context.Context, result model.TournamentResult) (model.CommitOutcome, error)

	// Read operations expose popularity data.
	Ranking(ctx context.Context, limit int) ([]Standing, error)
	Standing(ctx context.Context, id model.CandidateID) (Standing, error)
	CandidateStats(ctx context.Context, id model.CandidateID) (model.CandidateStats, error)
}

// Standing mirrors the read shape returned by ranking queries.
type Standing = types.Standing

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	bracketsHandler   *BracketsHandler
	resultsHandler    *ResultsHandler
	rankingHandler    *RankingHandler
	candidatesHandler *CandidatesHandler
	limiter           *RateLimiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{
		defaultRankingLimit: 10,
		logger:              logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		healthHandler:     NewHealthHandler(cfg.pinger),
		statsHandler:      NewStatsHandler(statsProvider),
		bracketsHandler:   NewBracketsHandler(deps, cfg.logger),
		resultsHandler:    NewResultsHandler(deps, NewAuthenticator(cfg.jwtSecret), cfg.logger),
		rankingHandler:    NewRankingHandler(deps, cfg.defaultRankingLimit, cfg.logger),
		candidatesHandler: NewCandidatesHandler(deps, cfg.logger),
	}
	if cfg.rateRPS > 0 {
		s.limiter = NewRateLimiter(cfg.rateRPS, cfg.rateBurst)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /worldcup/brackets", s.wrap(s.bracketsHandler.HandleIssue, "issue_bracket"))
	mux.HandleFunc("GET /worldcup/brackets/{id}", s.wrap(s.bracketsHandler.HandleGet, "get_bracket"))
	mux.HandleFunc("POST /worldcup/results", s.wrap(s.resultsHandler.HandleSubmit, "submit_result"))
	mux.HandleFunc("GET /worldcup/ranking", s.wrap(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("GET /worldcup/candidates/{id}/stats", s.wrap(s.candidatesHandler.HandleGetStats, "candidate_stats"))
}

// wrap applies the per-IP limiter (when enabled) inside the metrics middleware.
func (s *Server) wrap(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	return MetricsMiddleware(h, endpoint)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err and writes it; server-side failures are logged.
func fail(ctx context.Context, w http.ResponseWriter, l logger.Logger, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

func utc(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }
