package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"fjacquet/finagent/internal/apperrors"
	"fjacquet/finagent/internal/logging"
	"fjacquet/finagent/internal/models"
	"fjacquet/finagent/internal/service"
)

// NoDataMessage is returned by insight generation before any transaction is fetched.
const NoDataMessage = "No transactions available. Fetch transactions first."

// Backend is the application surface the handlers call.
type Backend interface {
	Accounts() []models.Account
	AddAccessToken(ctx context.Context, token string) ([]models.Account, error)
	FetchTransactions(ctx context.Context, days int) (int, error)
	Dashboard() service.Dashboard
	GenerateAndStoreInsight(ctx context.Context) (models.InsightRecord, error)
	GetLatestInsights(limit int) []models.InsightRecord
	GetAllAdjustedTransactions() ([]models.AdjustedTransaction, error)
	ClearAll(ctx context.Context) error
}

// Handlers serves the JSON API.
type Handlers struct {
	backend     Backend
	environment string
	logger      logging.Logger
}

// NewHandlers creates the handler set. environment is reported by /health.
func NewHandlers(backend Backend, environment string, logger logging.Logger) *Handlers {
	return &Handlers{backend: backend, environment: environment, logger: logger}
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "environment": h.environment})
}

// ListAccounts handles GET /accounts
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": h.backend.Accounts()})
}

// AddAccessToken handles POST /access_tokens
func (h *Handlers) AddAccessToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	accounts, err := h.backend.AddAccessToken(r.Context(), req.AccessToken)
	if err != nil {
		h.fail(w, err, "Failed to add access token")
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Account connected successfully",
		"accounts": accounts,
	})
}

// FetchTransactions handles POST /fetch_transactions. An optional "days" query parameter
// or JSON body field overrides the default window.
func (h *Handlers) FetchTransactions(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	} else if r.ContentLength > 0 {
		var req struct {
			Days int `json:"days"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Days < 0 {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		days = req.Days
	}

	count, err := h.backend.FetchTransactions(r.Context(), days)
	if err != nil {
		h.fail(w, err, "Failed to fetch transactions")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Transactions fetched successfully",
		"count":   count,
	})
}

// Dashboard handles GET /dashboard
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.backend.Dashboard())
}

// GenerateInsights handles POST /generate_insights
func (h *Handlers) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	record, err := h.backend.GenerateAndStoreInsight(r.Context())
	if errors.Is(err, apperrors.ErrNoTransactions) {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"insights": nil, "message": NoDataMessage})
		return
	}
	if err != nil {
		h.fail(w, err, "Failed to generate insights")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"insights": record})
}

// ListInsights handles GET /insights?limit=N
func (h *Handlers) ListInsights(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	insights := h.backend.GetLatestInsights(limit)
	WriteJSON(w, http.StatusOK, map[string]interface{}{"insights": insights, "count": len(insights)})
}

// AdjustedTransactions handles GET /transactions/adjusted
func (h *Handlers) AdjustedTransactions(w http.ResponseWriter, r *http.Request) {
	adjusted, err := h.backend.GetAllAdjustedTransactions()
	if err != nil {
		h.fail(w, err, "Failed to reclassify transactions")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"transactions": adjusted, "count": len(adjusted)})
}

// ClearData handles DELETE /data
func (h *Handlers) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.ClearAll(r.Context()); err != nil {
		h.fail(w, err, "Failed to clear data")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "All data cleared"})
}

func (h *Handlers) fail(w http.ResponseWriter, err error, message string) {
	status := StatusFor(err)
	h.logger.WithError(err).Error(message, logging.F(logging.FieldStatus, status))
	WriteError(w, status, message+": "+err.Error())
}

// StatusFor maps application errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyToken), errors.Is(err, apperrors.ErrNoAccessTokens):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case apperrors.IsInvalidDate(err):
		return http.StatusUnprocessableEntity
	case apperrors.IsDataSource(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
