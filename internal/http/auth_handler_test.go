package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smartchef/internal/domain"
	"smartchef/internal/service"
)

type mockExchanger struct {
	profile service.ExternalProfile
	err     error
	codes   []string
}

func (m *mockExchanger) Supported(provider string) bool {
	return domain.KnownProvider(provider) && provider != domain.ProviderLocal
}

func (m *mockExchanger) AuthCodeURL(provider, state string) (string, error) {
	return "https://provider.example/authorize?state=" + state, nil
}

func (m *mockExchanger) FetchProfile(_ context.Context, provider, code string) (service.ExternalProfile, error) {
	m.codes = append(m.codes, code)
	if m.err != nil {
		return service.ExternalProfile{}, m.err
	}
	return m.profile, nil
}

func setupAuthRouter(repo *mockUserRepo, exchanger *mockExchanger, states service.StateStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	identity := service.NewIdentityService(logger, repo, 10, 50)
	jwtSvc := service.NewJWTService("secret", 7*24*time.Hour)
	handler := NewAuthHandler(logger, identity, jwtSvc, exchanger, states)

	r := gin.New()
	auth := r.Group("/auth")
	auth.GET("/:provider/login", handler.Login)
	auth.POST("/:provider/callback", handler.Callback)
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.LoginLocal)
	return r
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_LoginRedirectsToProvider(t *testing.T) {
	states := service.NewMemoryStateStore()
	router := setupAuthRouter(newMockUserRepo(), &mockExchanger{}, states)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc == "" {
		t.Fatalf("expected redirect location")
	}
}

func TestAuthHandler_LoginUnknownProvider(t *testing.T) {
	router := setupAuthRouter(newMockUserRepo(), &mockExchanger{}, service.NewMemoryStateStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/github/login", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAuthHandler_CallbackIssuesTokenAndUser(t *testing.T) {
	repo := newMockUserRepo()
	states := service.NewMemoryStateStore()
	exchanger := &mockExchanger{
		profile: service.ExternalProfile{
			Provider:    domain.ProviderGoogle,
			ProviderID:  "42",
			DisplayName: "Ana",
			Email:       "ana@example.com",
		},
	}
	router := setupAuthRouter(repo, exchanger, states)

	if err := states.Store("state-1", time.Minute); err != nil {
		t.Fatalf("store state: %v", err)
	}

	w := postJSON(t, router, "/auth/google/callback", map[string]string{
		"code": "code-abc", "state": "state-1",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected token")
	}
	if resp.User.ID != "google_42" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if len(exchanger.codes) != 1 || exchanger.codes[0] != "code-abc" {
		t.Fatalf("exchanger not invoked with code: %v", exchanger.codes)
	}
}

func TestAuthHandler_CallbackRejectsUnknownState(t *testing.T) {
	router := setupAuthRouter(newMockUserRepo(), &mockExchanger{}, service.NewMemoryStateStore())

	w := postJSON(t, router, "/auth/google/callback", map[string]string{
		"code": "code", "state": "forged",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_CallbackStateIsSingleUse(t *testing.T) {
	repo := newMockUserRepo()
	states := service.NewMemoryStateStore()
	exchanger := &mockExchanger{
		profile: service.ExternalProfile{Provider: domain.ProviderTikTok, ProviderID: "t1"},
	}
	router := setupAuthRouter(repo, exchanger, states)

	if err := states.Store("once", time.Minute); err != nil {
		t.Fatalf("store state: %v", err)
	}

	first := postJSON(t, router, "/auth/tiktok/callback", map[string]string{"code": "c", "state": "once"})
	if first.Code != http.StatusOK {
		t.Fatalf("first callback: expected 200, got %d", first.Code)
	}
	second := postJSON(t, router, "/auth/tiktok/callback", map[string]string{"code": "c", "state": "once"})
	if second.Code != http.StatusBadRequest {
		t.Fatalf("replayed state: expected 400, got %d", second.Code)
	}
}

func TestAuthHandler_CallbackExchangeFailure(t *testing.T) {
	states := service.NewMemoryStateStore()
	exchanger := &mockExchanger{err: errors.New("provider down")}
	router := setupAuthRouter(newMockUserRepo(), exchanger, states)

	if err := states.Store("s", time.Minute); err != nil {
		t.Fatalf("store state: %v", err)
	}

	w := postJSON(t, router, "/auth/google/callback", map[string]string{"code": "c", "state": "s"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestAuthHandler_CallbackIdentityConflict(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, domain.User{ID: "local_1", Provider: domain.ProviderLocal, Email: "dup@example.com"})
	states := service.NewMemoryStateStore()
	exchanger := &mockExchanger{
		profile: service.ExternalProfile{Provider: domain.ProviderGoogle, ProviderID: "9", Email: "dup@example.com"},
	}
	router := setupAuthRouter(repo, exchanger, states)

	if err := states.Store("s", time.Minute); err != nil {
		t.Fatalf("store state: %v", err)
	}

	w := postJSON(t, router, "/auth/google/callback", map[string]string{"code": "c", "state": "s"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthHandler_RegisterAndLoginLocal(t *testing.T) {
	repo := newMockUserRepo()
	router := setupAuthRouter(repo, &mockExchanger{}, service.NewMemoryStateStore())

	w := postJSON(t, router, "/auth/register", map[string]string{
		"email": "chef@example.com", "name": "Chef", "password": "segredo",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, "/auth/login", map[string]string{
		"email": "chef@example.com", "password": "segredo",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" || resp.User.Provider != domain.ProviderLocal {
		t.Fatalf("unexpected response: %+v", resp)
	}

	w = postJSON(t, router, "/auth/login", map[string]string{
		"email": "chef@example.com", "password": "errado",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_RegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	router := setupAuthRouter(repo, &mockExchanger{}, service.NewMemoryStateStore())

	payload := map[string]string{"email": "x@example.com", "password": "pw"}
	if w := postJSON(t, router, "/auth/register", payload); w.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", w.Code)
	}
	if w := postJSON(t, router, "/auth/register", payload); w.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d", w.Code)
	}
}
