package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/domain"
	infraconfig "ratehub/internal/infrastructure/config"
	"ratehub/internal/infrastructure/logx"
)

// RatesAPI is the application surface served over HTTP.
type RatesAPI interface {
	Refresh(ctx context.Context) (application.UpdateReport, error)
	GetRate(ctx context.Context, from, to string) (domain.ResolvedRate, error)
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (application.Conversion, error)
	Snapshot(ctx context.Context) (domain.RatesSnapshot, error)
	History(ctx context.Context, from, to string, limit int) ([]domain.HistoricalRecord, error)
	Currencies() []domain.Currency
}

var _ RatesAPI = (*application.RatesService)(nil)

type Server struct {
	svc         RatesAPI
	guard       application.RefreshGuard
	ping        func(ctx context.Context) error
	metrics     http.Handler
	corsOrigins []string
	validate    *validator.Validate
}

type ServerOption func(*Server)

func WithRefreshGuard(g application.RefreshGuard) ServerOption {
	return func(s *Server) { s.guard = g }
}

func WithMetricsHandler(h http.Handler) ServerOption { return func(s *Server) { s.metrics = h } }

func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) { s.corsOrigins = origins }
}

func NewServer(svc RatesAPI, opts ...ServerOption) *Server {
	s := &Server{svc: svc, validate: validator.New()}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = application.NoopGuard{}
	}
	return s
}

// SetReadyCheck installs the probe behind /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

func (s *Server) ListCurrencies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toCurrencies(s.svc.Currencies()))
}

func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.svc.GetRate(r.Context(), chi.URLParam(r, "from"), chi.URLParam(r, "to"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRate(rate))
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := historyQuery{Limit: infraconfig.DefaultHistoryLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
		return
	}
	recs, err := s.svc.History(r.Context(), chi.URLParam(r, "from"), chi.URLParam(r, "to"), q.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := convertQuery{From: qs.Get("from"), To: qs.Get("to"), Amount: qs.Get("amount")}
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	amount, err := decimal.NewFromString(q.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount is not a number")
		return
	}
	c, err := s.svc.Convert(r.Context(), q.From, q.To, amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse{
		From:      c.From,
		To:        c.To,
		Amount:    c.Amount.String(),
		Result:    c.Result.StringFixed(8),
		Rate:      c.Rate,
		UpdatedAt: c.UpdatedAt,
		Stale:     c.Stale,
	})
}

// Refresh runs a synchronous update. A request carrying X-Idempotency-Key
// holds that key for the guard's TTL; the key is released again if the
// update fails so the client may retry with it.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	if key != "" {
		ok, err := s.guard.Reserve(ctx, key)
		if err != nil {
			logx.WithFields(ctx).Warn("http.refresh_guard_failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry later")
			return
		}
		if !ok {
			writeServiceError(w, r, application.ErrConflict)
			return
		}
	}
	rep, err := s.svc.Refresh(ctx)
	if err != nil {
		if key != "" {
			if rerr := s.guard.Release(context.WithoutCancel(ctx), key); rerr != nil {
				logx.WithFields(ctx).Warn("http.refresh_guard_release_failed", zap.Error(rerr))
			}
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefresh(rep))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeServiceError maps application and domain errors onto the JSON
// error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCurrency), errors.Is(err, domain.ErrInvalidPairKey):
		writeError(w, http.StatusBadRequest, "invalid currency code")
	case errors.Is(err, application.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "amount must be positive")
	case errors.Is(err, domain.ErrUnknownCurrency):
		writeError(w, http.StatusNotFound, "unknown currency")
	case errors.Is(err, domain.ErrRateUnavailable):
		writeError(w, http.StatusNotFound, "unknown pair")
	case errors.Is(err, application.ErrRatesNotLoaded), errors.Is(err, application.ErrNoRatesFetched):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry later")
	case errors.Is(err, application.ErrConflict):
		writeError(w, http.StatusConflict, "duplicate idempotency key")
	default:
		logx.WithFields(r.Context()).Error("http.internal_error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "bad request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "numeric":
		return field + " must be numeric"
	default:
		return field + " is invalid"
	}
}
