// Package api exposes the dashboard over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/anishjoni/predict-my-run/internal/analytics"
	"github.com/anishjoni/predict-my-run/internal/auth"
	"github.com/anishjoni/predict-my-run/internal/dashboard"
	"github.com/anishjoni/predict-my-run/internal/domain"
)

var validate = validator.New()

// Refresher drops cached data so the next request reloads it.
type Refresher interface {
	Invalidate()
}

// Handler coordinates HTTP requests with the dashboard service.
type Handler struct {
	service   *dashboard.Service
	refresher Refresher
}

// NewHandler builds a Handler.
func NewHandler(service *dashboard.Service, refresher Refresher) *Handler {
	return &Handler{service: service, refresher: refresher}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", healthz)
	r.Route("/v1/dashboard", func(r chi.Router) {
		r.Get("/", h.snapshot)
		r.Get("/weekly", h.weekly)
		r.Get("/sports", h.sports)
		r.Get("/recency", h.recency)
		r.Get("/moving-time", h.movingTime)
		r.Get("/outliers", h.outliers)
		r.Get("/map", h.mapView)
		r.Post("/refresh", h.refresh)
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeDashboardRead) {
		return
	}
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{
		GeneratedAt: snap.GeneratedAt,
		Weekly:      toWeeklyView(snap.Weekly),
		Sports:      SportsResponse{Items: snap.Sports},
		Recency:     toRecencyView(snap.Recency),
		MovingTime:  toFrameView(snap.MovingTime),
		Map:         snap.Map,
	})
}

func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeDashboardRead) {
		return
	}
	cmp, err := h.service.Weekly(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeeklyView(cmp))
}

func (h *Handler) sports(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeDashboardRead) {
		return
	}
	counts, err := h.service.Sports(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SportsResponse{Items: counts})
}

func (h *Handler) recency(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeDashboardRead) {
		return
	}
	rec, err := h.service.Recency(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecencyView(rec))
}

// movingTimeQuery holds the optional threshold for the moving time trend.
type movingTimeQuery struct {
	Z float64 `validate:"gte=0"`
}

func (h *Handler) movingTime(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeDashboardRead) {
		return
	}
	z, err := parseThreshold(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if err := validate.Struct(movingTimeQuery{Z: z}); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "z must be a non-negative number")
		return
	}

	frame, err := h.service.MovingTime(r.Context(), z)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFrameView(frame))
}

// outliersQuery is the validated query string of GET /v1/dashboard/outliers.
type outliersQuery struct {
	Column  string  `validate:"required,max=64"`
	GroupBy string  `validate:"omitempty,max=64"`
	Z       float64 `validate:"gte=0"`
}

func (h *Handler) outliers(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeDashboardRead) {
		return
	}
	z, err := parseThreshold(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	q := outliersQuery{
		Column:  strings.TrimSpace(r.URL.Query().Get("column")),
		GroupBy: strings.TrimSpace(r.URL.Query().Get("group_by")),
		Z:       z,
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", validationDetail(err))
		return
	}

	frame, err := h.service.Outliers(r.Context(), q.Column, q.GroupBy, q.Z)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFrameView(frame))
}

func (h *Handler) mapView(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, auth.ScopeDashboardRead) {
		return
	}
	data, err := h.service.Map(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeDashboardWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope dashboard:write required")
		return
	}
	if h.refresher != nil {
		h.refresher.Invalidate()
	}
	zerolog.Ctx(r.Context()).Info().Str("subject", claims.Subject).Msg("dashboard cache refresh requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh_scheduled"})
}

// requireScope accepts the read scope or the write scope, which implies it.
func requireScope(w http.ResponseWriter, r *http.Request, scope string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(scope) && !claims.HasScope(auth.ScopeDashboardWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return false
	}
	return true
}

func parseThreshold(r *http.Request) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("z"))
	if raw == "" {
		return 0, nil
	}
	z, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("z must be a number")
	}
	return z, nil
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Column":
		return "column is required (max 64 characters)"
	case "GroupBy":
		return "group_by must be at most 64 characters"
	default:
		return "z must be a non-negative number"
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyDataset):
		writeError(w, http.StatusNotFound, "no_activities", err.Error())
	case errors.Is(err, domain.ErrMissingColumn),
		errors.Is(err, analytics.ErrNonNumeric),
		errors.Is(err, analytics.ErrInvalidThreshold):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrSourceUnavailable):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, "source_unavailable", "activity store is unavailable, retry later")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("dashboard request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
