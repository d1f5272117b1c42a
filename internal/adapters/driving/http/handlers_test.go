package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/custodia-labs/insurance-calc/docs"
	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// Mock services for testing

type mockAuthService struct {
	loginFn         func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) UpsertRole(ctx context.Context, id int64, name string) (*domain.Role, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

type mockInsuranceService struct {
	queryFn       func(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error)
	calculateFn   func(ctx context.Context, req domain.CalculationRequest) (*domain.Calculation, error)
	updateFn      func(ctx context.Context, req domain.UpdateRateRequest) (*domain.InsuranceRate, error)
	deleteFn      func(ctx context.Context, id int64) error
	batchCreateFn func(ctx context.Context, actorID int64, payload domain.UploadPayload) ([]*domain.InsuranceRate, error)
}

func (m *mockInsuranceService) Query(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *mockInsuranceService) Get(ctx context.Context, id int64) (*domain.InsuranceRate, error) {
	return nil, errors.New("not implemented")
}

func (m *mockInsuranceService) Calculate(ctx context.Context, req domain.CalculationRequest) (*domain.Calculation, error) {
	if m.calculateFn != nil {
		return m.calculateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockInsuranceService) Update(ctx context.Context, req domain.UpdateRateRequest) (*domain.InsuranceRate, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockInsuranceService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockInsuranceService) Upsert(ctx context.Context, date, cargoType string, rate float64) (*domain.InsuranceRate, error) {
	return nil, errors.New("not implemented")
}

func (m *mockInsuranceService) BatchCreate(ctx context.Context, actorID int64, payload domain.UploadPayload) ([]*domain.InsuranceRate, error) {
	if m.batchCreateFn != nil {
		return m.batchCreateFn(ctx, actorID, payload)
	}
	return nil, errors.New("not implemented")
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

const testToken = "valid-token"

// acceptingAuth accepts testToken as user 5 and rejects everything else
func acceptingAuth() *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			if token != testToken {
				return nil, domain.ErrTokenInvalid
			}
			return &domain.AuthContext{UserID: 5, Username: "admin@admin.com", Role: domain.RoleAdmin}, nil
		},
	}
}

func newTestServer(auth *mockAuthService, insurance *mockInsuranceService) *Server {
	if auth == nil {
		auth = acceptingAuth()
	}
	if insurance == nil {
		insurance = &mockInsuranceService{}
	}
	return NewServer(DefaultConfig(), auth, insurance, &mockPinger{}, nil)
}

func doRequest(s *Server, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

func sampleRate(id int64) *domain.InsuranceRate {
	return &domain.InsuranceRate{
		ID:          id,
		CargoType:   "Glass",
		Rate:        0.04,
		Date:        "2020-06-01",
		CreatedDate: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
	}
}

// Health endpoints

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		redis      Pinger
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "postgres only",
			db:         &mockPinger{},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok"},
		},
		{
			name:       "postgres and redis",
			db:         &mockPinger{},
			redis:      &mockPinger{},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name:       "redis down",
			db:         &mockPinger{},
			redis:      &mockPinger{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"postgres": "ok", "redis": "unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(DefaultConfig(), acceptingAuth(), &mockInsuranceService{}, tt.db, tt.redis)
			rr := doRequest(s, http.MethodGet, "/api/health", "", false)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("check %s: expected %q, got %q", name, want, resp.Checks[name])
				}
			}
		})
	}
}

func TestHandleVersion(t *testing.T) {
	s := newTestServer(nil, nil)
	rr := doRequest(s, http.MethodGet, "/api/version", "", false)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp VersionResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Version != "dev" {
		t.Errorf("expected version dev, got %q", resp.Version)
	}
}

func TestHandleOpenAPI(t *testing.T) {
	s := newTestServer(nil, nil)
	rr := doRequest(s, http.MethodGet, "/api/openapi.json", "", false)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var doc map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatal("expected paths object")
	}
	for _, p := range []string{"/auth/access-token", "/insurance/upload_insurance", "/insurance/calculate_insurance"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("expected path %s in document", p)
		}
	}
}

// Auth endpoints

func TestHandleAccessToken(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	auth := &mockAuthService{
		loginFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			switch {
			case req.Username == "inactive@example.com":
				return nil, domain.ErrAccountInactive
			case req.Username == "down@example.com":
				return nil, fmt.Errorf("find user: %w", domain.ErrStorageUnavailable)
			case req.Password != "secret":
				return nil, domain.ErrInvalidCredentials
			}
			return &domain.LoginResponse{
				AccessToken: "jwt",
				TokenType:   domain.TokenTypeBearer,
				ExpiresAt:   expires,
			}, nil
		},
	}
	s := newTestServer(auth, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"valid credentials", `{"username":"admin@admin.com","password":"secret"}`, http.StatusOK, ""},
		{"wrong password", `{"username":"admin@admin.com","password":"nope"}`, http.StatusBadRequest, "Incorrect username or password"},
		{"inactive user", `{"username":"inactive@example.com","password":"secret"}`, http.StatusBadRequest, "User is not active"},
		{"storage down", `{"username":"down@example.com","password":"secret"}`, http.StatusServiceUnavailable, "storage unavailable"},
		{"malformed body", `{"username":`, http.StatusBadRequest, "invalid request body"},
		{"empty body", "", http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, http.MethodPost, "/api/auth/access-token", tt.body, false)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantError != "" {
				if got := decodeError(t, rr); got != tt.wantError {
					t.Errorf("expected error %q, got %q", tt.wantError, got)
				}
				return
			}

			var resp domain.LoginResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.AccessToken != "jwt" || resp.TokenType != "bearer" {
				t.Errorf("unexpected token response: %+v", resp)
			}
		})
	}
}

// Insurance endpoints

func TestHandleUploadInsurance(t *testing.T) {
	var gotActor int64
	var gotPayload domain.UploadPayload
	insurance := &mockInsuranceService{
		batchCreateFn: func(ctx context.Context, actorID int64, payload domain.UploadPayload) ([]*domain.InsuranceRate, error) {
			gotActor = actorID
			gotPayload = payload
			rates := payload.Flatten()
			for i, r := range rates {
				r.ID = int64(i + 1)
			}
			return rates, nil
		},
	}
	s := newTestServer(nil, insurance)

	body := `{"2020-07-01":[{"cargo_type":"Glass","rate":0.035}],"2020-06-01":[{"cargo_type":"Glass","rate":0.04},{"cargo_type":"Other","rate":0.01}]}`
	rr := doRequest(s, http.MethodPost, "/api/insurance/upload_insurance", body, true)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotActor != 5 {
		t.Errorf("expected actor 5 from auth context, got %d", gotActor)
	}
	if len(gotPayload) != 2 || gotPayload[0].Date != "2020-07-01" {
		t.Errorf("expected payload order preserved, got %+v", gotPayload)
	}

	var rates []domain.InsuranceRate
	if err := json.NewDecoder(rr.Body).Decode(&rates); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rates) != 3 {
		t.Fatalf("expected 3 rates, got %d", len(rates))
	}
	if rates[0].Date != "2020-07-01" || rates[2].CargoType != "Other" {
		t.Errorf("unexpected rate order: %+v", rates)
	}
}

func TestHandleUploadInsurance_Errors(t *testing.T) {
	insurance := &mockInsuranceService{
		batchCreateFn: func(ctx context.Context, actorID int64, payload domain.UploadPayload) ([]*domain.InsuranceRate, error) {
			return nil, fmt.Errorf("insert: %w", domain.ErrConstraintViolation)
		},
	}
	s := newTestServer(nil, insurance)

	tests := []struct {
		name       string
		body       string
		authorized bool
		wantStatus int
	}{
		{"missing token", `{}`, false, http.StatusUnauthorized},
		{"array payload", `[1,2]`, true, http.StatusBadRequest},
		{"bad item", `{"2020-06-01":"Glass"}`, true, http.StatusBadRequest},
		{"constraint violation", `{"2020-06-01":[{"cargo_type":"Glass","rate":0.04}]}`, true, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, http.MethodPost, "/api/insurance/upload_insurance", tt.body, tt.authorized)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestHandleQueryInsurance(t *testing.T) {
	var got domain.RateFilter
	insurance := &mockInsuranceService{
		queryFn: func(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error) {
			got = filter
			return []*domain.InsuranceRate{sampleRate(1)}, nil
		},
	}
	s := newTestServer(nil, insurance)

	t.Run("query parameters", func(t *testing.T) {
		rr := doRequest(s, http.MethodGet, "/api/insurance/query_insurance?cargo_type=Glass&rate=0.04", "", false)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if got.CargoType == nil || *got.CargoType != "Glass" {
			t.Errorf("expected cargo_type Glass, got %v", got.CargoType)
		}
		if got.Rate == nil || *got.Rate != 0.04 {
			t.Errorf("expected rate 0.04, got %v", got.Rate)
		}
		if got.ID != nil || got.Date != nil {
			t.Error("expected unset fields to stay nil")
		}
	})

	t.Run("json body on GET", func(t *testing.T) {
		rr := doRequest(s, http.MethodGet, "/api/insurance/query_insurance", `{"id":1,"date":"2020-06-01"}`, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if got.ID == nil || *got.ID != 1 {
			t.Errorf("expected id 1, got %v", got.ID)
		}
		if got.Date == nil || *got.Date != "2020-06-01" {
			t.Errorf("expected date, got %v", got.Date)
		}
	})

	t.Run("json body on POST", func(t *testing.T) {
		rr := doRequest(s, http.MethodPost, "/api/insurance/query_insurance", `{}`, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if got.Normalize() != (domain.RateFilter{}) {
			t.Errorf("expected empty filter, got %+v", got)
		}
		var rates []domain.InsuranceRate
		_ = json.NewDecoder(rr.Body).Decode(&rates)
		if len(rates) != 1 || rates[0].ID != 1 {
			t.Errorf("unexpected response: %+v", rates)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		rr := doRequest(s, http.MethodGet, "/api/insurance/query_insurance?id=abc", "", false)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestHandleQueryInsurance_EmptyResultIsArray(t *testing.T) {
	insurance := &mockInsuranceService{
		queryFn: func(ctx context.Context, filter domain.RateFilter) ([]*domain.InsuranceRate, error) {
			return nil, nil
		},
	}
	s := newTestServer(nil, insurance)

	rr := doRequest(s, http.MethodGet, "/api/insurance/query_insurance?id=42", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestHandleUpdateInsurance(t *testing.T) {
	insurance := &mockInsuranceService{
		updateFn: func(ctx context.Context, req domain.UpdateRateRequest) (*domain.InsuranceRate, error) {
			if req.ID == 7 {
				return nil, domain.ErrNotFound
			}
			rate := sampleRate(req.ID)
			rate.Rate = req.NewRate
			return rate, nil
		},
	}
	s := newTestServer(nil, insurance)

	tests := []struct {
		name       string
		body       string
		authorized bool
		wantStatus int
		wantRate   float64
	}{
		{"updates rate", `{"id":1,"new_rate":0.05}`, true, http.StatusOK, 0.05},
		{"zero rate is allowed", `{"id":1,"new_rate":0}`, true, http.StatusOK, 0},
		{"missing row", `{"id":7,"new_rate":0.05}`, true, http.StatusNotFound, 0},
		{"missing new_rate", `{"id":1}`, true, http.StatusUnprocessableEntity, 0},
		{"missing token", `{"id":1,"new_rate":0.05}`, false, http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, http.MethodPost, "/api/insurance/update_insurance", tt.body, tt.authorized)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var rate domain.InsuranceRate
			_ = json.NewDecoder(rr.Body).Decode(&rate)
			if rate.Rate != tt.wantRate {
				t.Errorf("expected rate %v, got %v", tt.wantRate, rate.Rate)
			}
		})
	}
}

func TestHandleDeleteInsurance(t *testing.T) {
	var deleted []int64
	insurance := &mockInsuranceService{
		deleteFn: func(ctx context.Context, id int64) error {
			deleted = append(deleted, id)
			return nil
		},
	}
	s := newTestServer(nil, insurance)

	t.Run("json body", func(t *testing.T) {
		rr := doRequest(s, http.MethodDelete, "/api/insurance/delete_insurance", `{"id":3}`, true)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp MessageResponse
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Message != "Insurance deleted successfully" {
			t.Errorf("unexpected message %q", resp.Message)
		}
	})

	t.Run("query parameter", func(t *testing.T) {
		rr := doRequest(s, http.MethodDelete, "/api/insurance/delete_insurance?id=4", "", true)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		rr := doRequest(s, http.MethodDelete, "/api/insurance/delete_insurance", "", true)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", rr.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rr := doRequest(s, http.MethodPost, "/api/insurance/delete_insurance", `{"id":3}`, true)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rr.Code)
		}
	})

	if len(deleted) != 2 || deleted[0] != 3 || deleted[1] != 4 {
		t.Errorf("expected deletes [3 4], got %v", deleted)
	}
}

func TestHandleCalculateInsurance(t *testing.T) {
	insurance := &mockInsuranceService{
		calculateFn: func(ctx context.Context, req domain.CalculationRequest) (*domain.Calculation, error) {
			if req.ID != 1 {
				return nil, domain.ErrNotFound
			}
			return &domain.Calculation{Total: req.Price * 0.04}, nil
		},
	}
	s := newTestServer(nil, insurance)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantTotal  float64
	}{
		{"query parameters", http.MethodGet, "/api/insurance/calculate_insurance?id=1&price=1000", "", http.StatusOK, 40},
		{"json body on GET", http.MethodGet, "/api/insurance/calculate_insurance", `{"id":1,"price":500}`, http.StatusOK, 20},
		{"json body on POST", http.MethodPost, "/api/insurance/calculate_insurance", `{"id":1,"price":0}`, http.StatusOK, 0},
		{"unknown id", http.MethodGet, "/api/insurance/calculate_insurance?id=9&price=1000", "", http.StatusNotFound, 0},
		{"missing price", http.MethodGet, "/api/insurance/calculate_insurance?id=1", "", http.StatusUnprocessableEntity, 0},
		{"invalid price", http.MethodGet, "/api/insurance/calculate_insurance?id=1&price=lots", "", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(s, tt.method, tt.target, tt.body, false)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var calc domain.Calculation
			_ = json.NewDecoder(rr.Body).Decode(&calc)
			if calc.Total != tt.wantTotal {
				t.Errorf("expected total %v, got %v", tt.wantTotal, calc.Total)
			}
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrTokenExpired, http.StatusUnauthorized},
		{domain.ErrDuplicateUsername, http.StatusConflict},
		{domain.ErrConstraintViolation, http.StatusConflict},
		{domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeServiceError(rr, tt.err)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	var dst map[string]int

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ok, err := decodeBody(httptest.NewRecorder(), req, &dst)
	if ok || err != nil {
		t.Errorf("expected no body, got ok=%v err=%v", ok, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"a":1}`))
	ok, err = decodeBody(httptest.NewRecorder(), req, &dst)
	if !ok || err != nil || dst["a"] != 1 {
		t.Errorf("expected decoded body, got ok=%v err=%v dst=%v", ok, err, dst)
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`not json`))
	if _, err := decodeBody(httptest.NewRecorder(), req, &dst); err == nil {
		t.Error("expected error for malformed body")
	}
}
