package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 5 * time.Second
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// MessageResponse represents a plain message response
// @Description Plain message response
type MessageResponse struct {
	Message string `json:"message" example:"Insurance deleted successfully"`
}

// HealthResponse represents the health status of the API and its dependencies
// @Description API health status
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API, pinging PostgreSQL and Redis when configured
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	check := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			return
		}
		resp.Checks[name] = "ok"
	}
	check("postgres", s.db)
	check("redis", s.redisClient)

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleOpenAPI serves the registered API document
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// Auth endpoints

// handleAccessToken godoc
// @Summary      Obtain an access token
// @Description  Authenticate with username and password to receive a bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body, incorrect credentials or inactive user"
// @Failure      503      {object}  ErrorResponse  "Storage unavailable"
// @Router       /auth/access-token [post]
func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if ok, err := decodeBody(w, r, &req); err != nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "Incorrect username or password")
		case errors.Is(err, domain.ErrAccountInactive):
			writeError(w, http.StatusBadRequest, "User is not active")
		default:
			writeServiceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Insurance endpoints

// handleUploadInsurance godoc
// @Summary      Upload insurance rates
// @Description  Creates one rate per item of a date-keyed payload and publishes an audit line for each created row
// @Tags         Insurance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      map[string][]domain.RateItem  true  "Rates keyed by date"
// @Success      200      {array}   domain.InsuranceRate
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      403      {object}  ErrorResponse
// @Router       /insurance/upload_insurance [post]
func (s *Server) handleUploadInsurance(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var payload domain.UploadPayload
	if ok, err := decodeBody(w, r, &payload); err != nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rates, err := s.insuranceService.BatchCreate(r.Context(), authCtx.UserID, payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rates)
}

// handleQueryInsurance godoc
// @Summary      Query insurance rates
// @Description  Returns rates matching every supplied field. Fields may be sent as query parameters or a JSON body.
// @Tags         Insurance
// @Accept       json
// @Produce      json
// @Param        id          query     int     false  "Rate ID"
// @Param        cargo_type  query     string  false  "Cargo type"
// @Param        rate        query     number  false  "Rate"
// @Param        date        query     string  false  "Date"
// @Success      200         {array}   domain.InsuranceRate
// @Failure      400         {object}  ErrorResponse
// @Router       /insurance/query_insurance [get]
func (s *Server) handleQueryInsurance(w http.ResponseWriter, r *http.Request) {
	var filter domain.RateFilter
	ok, err := decodeBody(w, r, &filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !ok {
		filter, err = filterFromQuery(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rates, err := s.insuranceService.Query(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rates == nil {
		rates = []*domain.InsuranceRate{}
	}

	writeJSON(w, http.StatusOK, rates)
}

// updatePayload keeps required fields distinguishable from zero values
type updatePayload struct {
	ID      *int64   `json:"id"`
	NewRate *float64 `json:"new_rate"`
}

// handleUpdateInsurance godoc
// @Summary      Update an insurance rate
// @Description  Changes the rate of an existing row
// @Tags         Insurance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.UpdateRateRequest  true  "Rate update"
// @Success      200      {object}  domain.InsuranceRate
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /insurance/update_insurance [post]
func (s *Server) handleUpdateInsurance(w http.ResponseWriter, r *http.Request) {
	var payload updatePayload
	if ok, err := decodeBody(w, r, &payload); err != nil || !ok {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ID == nil || payload.NewRate == nil {
		writeError(w, http.StatusUnprocessableEntity, "id and new_rate are required")
		return
	}

	rate, err := s.insuranceService.Update(r.Context(), domain.UpdateRateRequest{
		ID:      *payload.ID,
		NewRate: *payload.NewRate,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rate)
}

// handleDeleteInsurance godoc
// @Summary      Delete an insurance rate
// @Description  Removes a row by ID. Deleting a missing row succeeds.
// @Tags         Insurance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.DeleteRateRequest  false  "Row to delete"
// @Param        id       query     int                       false  "Row to delete"
// @Success      200      {object}  MessageResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Router       /insurance/delete_insurance [delete]
func (s *Server) handleDeleteInsurance(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID *int64 `json:"id"`
	}
	ok, err := decodeBody(w, r, &payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !ok {
		payload.ID, err = optionalInt(r.URL.Query(), "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if payload.ID == nil {
		writeError(w, http.StatusUnprocessableEntity, "id is required")
		return
	}

	if err := s.insuranceService.Delete(r.Context(), *payload.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Insurance deleted successfully"})
}

// calculationPayload keeps required fields distinguishable from zero values
type calculationPayload struct {
	ID    *int64   `json:"id"`
	Price *float64 `json:"price"`
}

// handleCalculateInsurance godoc
// @Summary      Calculate insurance
// @Description  Returns price multiplied by the rate of the given row. Fields may be sent as query parameters or a JSON body.
// @Tags         Insurance
// @Accept       json
// @Produce      json
// @Param        id     query     int     false  "Rate ID"
// @Param        price  query     number  false  "Declared price"
// @Success      200    {object}  domain.Calculation
// @Failure      400    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Router       /insurance/calculate_insurance [get]
func (s *Server) handleCalculateInsurance(w http.ResponseWriter, r *http.Request) {
	var payload calculationPayload
	ok, err := decodeBody(w, r, &payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !ok {
		q := r.URL.Query()
		if payload.ID, err = optionalInt(q, "id"); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if payload.Price, err = optionalFloat(q, "price"); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if payload.ID == nil || payload.Price == nil {
		writeError(w, http.StatusUnprocessableEntity, "id and price are required")
		return
	}

	calc, err := s.insuranceService.Calculate(r.Context(), domain.CalculationRequest{
		ID:    *payload.ID,
		Price: *payload.Price,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, calc)
}

// Request helpers

// decodeBody decodes an optional JSON body into dst.
// It reports false without error when the body is empty.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) (bool, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func filterFromQuery(q url.Values) (domain.RateFilter, error) {
	var (
		filter domain.RateFilter
		err    error
	)
	if filter.ID, err = optionalInt(q, "id"); err != nil {
		return filter, err
	}
	if filter.Rate, err = optionalFloat(q, "rate"); err != nil {
		return filter, err
	}
	if q.Has("cargo_type") {
		v := q.Get("cargo_type")
		filter.CargoType = &v
	}
	if q.Has("date") {
		v := q.Get("date")
		filter.Date = &v
	}
	return filter, nil
}

func optionalInt(q url.Values, key string) (*int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps domain errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrConstraintViolation):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
