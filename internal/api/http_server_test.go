package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"accounts/internal/auth"
	"accounts/internal/config"
	"accounts/internal/email"
	"accounts/internal/entity"
	"accounts/internal/entity/dto"
	"accounts/internal/model/memory"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type testServer struct {
	engine *gin.Engine
	repo   *memory.InMemoryRepository
	mailer *recordingMailer
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:             config.EnvDevelopment,
		JWTSecret:          "test-secret",
		JWTIssuer:          "accounts",
		JWTExpiresIn:       time.Hour,
		JWTCookieExpiresIn: 90,
		BcryptCost:         bcrypt.MinCost,
		RequestTimeout:     5 * time.Second,
		BodyLimitBytes:     10 * 1024,
	}
}

func newTestServer(t *testing.T, cfg config.Config, limiter RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := memory.NewInMemoryRepository()
	mailer := &recordingMailer{}
	handler, err := NewHTTPHandler(cfg, repo, mailer, limiter)
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	return &testServer{engine: handler.Router(), repo: repo, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) createAdmin(t *testing.T, addr, password string) {
	t.Helper()
	hash, err := auth.NewHasher(bcrypt.MinCost).Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	err = s.repo.CreateUser(context.Background(), &entity.User{
		Name: "Admin", Email: addr, Password: hash, Role: entity.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
}

func decodeAuth(t *testing.T, w *httptest.ResponseRecorder) dto.AuthResponse {
	t.Helper()
	var res dto.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode auth response: %v (%s)", err, w.Body.String())
	}
	return res
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var res ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, w.Body.String())
	}
	return res
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	if body := decodeError(t, w); body.Message != message {
		t.Fatalf("expected message %q, got %q", message, body.Message)
	}
}

func signupPayload(name, addr, password, confirm string) dto.SignupRequest {
	return dto.SignupRequest{Name: name, Email: addr, Password: password, PasswordConfirm: confirm}
}

func TestAuthScenario(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(t, http.MethodPost, "/api/v1/users/signup", "", signupPayload("Ann", "ann@example.com", "secret123", "different"))
	expectError(t, w, http.StatusUnauthorized, "Passwords are not the same!")
	if body := decodeError(t, w); body.Status != "fail" {
		t.Errorf("expected fail status, got %s", body.Status)
	}

	w = s.do(t, http.MethodPost, "/api/v1/users/signup", "", signupPayload("Ann", "ann@example.com", "secret123", "secret123"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password\"") {
		t.Errorf("response must not contain a password field: %s", w.Body.String())
	}
	signup := decodeAuth(t, w)
	if signup.Token == "" || signup.Status != dto.StatusSuccess {
		t.Fatalf("expected token, got %+v", signup)
	}
	if signup.Data.User.Role != entity.UserRoleUser {
		t.Errorf("expected user role, got %q", signup.Data.User.Role)
	}

	w = s.do(t, http.MethodPost, "/api/v1/users/login", "", dto.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	expectError(t, w, http.StatusUnauthorized, "Incorrect email or password!")

	w = s.do(t, http.MethodPost, "/api/v1/users/login", "", dto.LoginRequest{Email: "ann@example.com"})
	expectError(t, w, http.StatusBadRequest, "Please provide email and password!")

	w = s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	expectError(t, w, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")

	w = s.do(t, http.MethodGet, "/api/v1/users/me", signup.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/users/allUsers", signup.Token, nil)
	expectError(t, w, http.StatusForbidden, "You do not have permission to perform this action")

	s.createAdmin(t, "admin@example.com", "adminpass123")
	w = s.do(t, http.MethodPost, "/api/v1/users/login", "", dto.LoginRequest{Email: "admin@example.com", Password: "adminpass123"})
	if w.Code != http.StatusOK {
		t.Fatalf("admin login failed: %d (%s)", w.Code, w.Body.String())
	}
	admin := decodeAuth(t, w)

	w = s.do(t, http.MethodGet, "/api/v1/users/allUsers", admin.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var list dto.UserListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Results != 2 || len(list.Data.Users) != 2 {
		t.Errorf("expected 2 users, got %+v", list)
	}

	w = s.do(t, http.MethodGet, "/api/v1/users/"+signup.Data.User.ID, admin.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodGet, "/api/v1/users/999", admin.Token, nil)
	expectError(t, w, http.StatusNotFound, "No user found with that ID")
}

func TestPasswordResetScenario(t *testing.T) {
	cfg := testConfig()
	cfg.PublicBaseURL = "https://accounts.example.com/"
	s := newTestServer(t, cfg, nil)

	w := s.do(t, http.MethodPost, "/api/v1/users/signup", "", signupPayload("Ann", "ann@example.com", "secret123", "secret123"))
	if w.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d (%s)", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/v1/users/forgotPassword", "", dto.ForgotPasswordRequest{Email: "nobody@example.com"})
	expectError(t, w, http.StatusNotFound, "There is no user with email address.")

	w = s.do(t, http.MethodPost, "/api/v1/users/forgotPassword", "", dto.ForgotPasswordRequest{Email: "ann@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("forgot password failed: %d (%s)", w.Code, w.Body.String())
	}
	var ack dto.MessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Message != "Token sent to email!" {
		t.Errorf("unexpected message %q", ack.Message)
	}

	prefix := "https://accounts.example.com/api/v1/users/resetPassword/"
	text := s.mailer.last().Text
	idx := strings.Index(text, prefix)
	if idx < 0 {
		t.Fatalf("reset url missing from %q", text)
	}
	token := text[idx+len(prefix) : idx+len(prefix)+2*auth.ResetTokenBytes]
	if strings.Contains(w.Body.String(), token) {
		t.Fatal("reset token must not be echoed in the response")
	}

	w = s.do(t, http.MethodPatch, "/api/v1/users/resetPassword/"+token, "", dto.ResetPasswordRequest{Password: "newsecret456", PasswordConfirm: "newsecret456"})
	if w.Code != http.StatusCreated {
		t.Fatalf("reset failed: %d (%s)", w.Code, w.Body.String())
	}
	if decodeAuth(t, w).Token == "" {
		t.Fatal("expected a fresh token")
	}

	w = s.do(t, http.MethodPatch, "/api/v1/users/resetPassword/"+token, "", dto.ResetPasswordRequest{Password: "another789", PasswordConfirm: "another789"})
	expectError(t, w, http.StatusBadRequest, "Token is invalid or has expired!")

	w = s.do(t, http.MethodPost, "/api/v1/users/login", "", dto.LoginRequest{Email: "ann@example.com", Password: "newsecret456"})
	if w.Code != http.StatusOK {
		t.Fatalf("login with new password failed: %d (%s)", w.Code, w.Body.String())
	}
}

func TestProfileScenario(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(t, http.MethodPost, "/api/v1/users/signup", "", signupPayload("Ann", "ann@example.com", "secret123", "secret123"))
	token := decodeAuth(t, w).Token

	w = s.do(t, http.MethodPatch, "/api/v1/users/updateMe", token, dto.UpdateMeRequest{Password: "newsecret456"})
	expectError(t, w, http.StatusBadRequest, "This route is not for password updates. Please use /updatePassword.")

	name := "Annie"
	w = s.do(t, http.MethodPatch, "/api/v1/users/updateMe", token, dto.UpdateMeRequest{Name: &name})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Annie") {
		t.Fatalf("update failed: %d (%s)", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPatch, "/api/v1/users/updatePassword", token, dto.UpdatePasswordRequest{
		PasswordCurrent: "wrong-password", Password: "newsecret456", PasswordConfirm: "newsecret456",
	})
	expectError(t, w, http.StatusUnauthorized, "Your current password is wrong")

	w = s.do(t, http.MethodDelete, "/api/v1/users/deleteMe", token, dto.DeleteMeRequest{Password: "wrong-password"})
	expectError(t, w, http.StatusUnauthorized, "Your current password is wrong")

	w = s.do(t, http.MethodDelete, "/api/v1/users/deleteMe", token, dto.DeleteMeRequest{Password: "secret123"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (%s)", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	expectError(t, w, http.StatusUnauthorized, "The user belonging to this token does no longer exist.")
}

func TestTokenCookie(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		wantSecure bool
	}{
		{name: "development", env: config.EnvDevelopment, wantSecure: false},
		{name: "production", env: config.EnvProduction, wantSecure: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.AppEnv = tt.env
			s := newTestServer(t, cfg, nil)

			w := s.do(t, http.MethodPost, "/api/v1/users/signup", "", signupPayload("Ann", "ann@example.com", "secret123", "secret123"))
			if w.Code != http.StatusCreated {
				t.Fatalf("signup failed: %d (%s)", w.Code, w.Body.String())
			}

			var jwtCookie *http.Cookie
			for _, cookie := range w.Result().Cookies() {
				if cookie.Name == "jwt" {
					jwtCookie = cookie
				}
			}
			if jwtCookie == nil {
				t.Fatal("expected jwt cookie")
			}
			if !jwtCookie.HttpOnly {
				t.Error("jwt cookie must be httpOnly")
			}
			if jwtCookie.Secure != tt.wantSecure {
				t.Errorf("expected secure=%v, got %v", tt.wantSecure, jwtCookie.Secure)
			}
			if jwtCookie.MaxAge != 90*24*60*60 {
				t.Errorf("unexpected max age %d", jwtCookie.MaxAge)
			}
			if jwtCookie.Value != decodeAuth(t, w).Token {
				t.Error("cookie must carry the issued token")
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	payload := signupPayload(strings.Repeat("a", 11*1024), "ann@example.com", "secret123", "secret123")
	w := s.do(t, http.MethodPost, "/api/v1/users/signup", "", payload)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	expectError(t, w, http.StatusBadRequest, "Invalid request payload")
}

func TestHealthAndHeaders(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}

	w = s.do(t, http.MethodGet, "/api/v2/unknown", "", nil)
	expectError(t, w, http.StatusNotFound, "Can't find /api/v2/unknown on this server!")
}

func TestPublicBaseURLWarning(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	tests := []struct {
		name     string
		env      string
		base     string
		wantWarn bool
	}{
		{name: "production without base url", env: config.EnvProduction, wantWarn: true},
		{name: "production with base url", env: config.EnvProduction, base: "https://accounts.example.com"},
		{name: "development without base url", env: config.EnvDevelopment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			cfg := testConfig()
			cfg.AppEnv = tt.env
			cfg.PublicBaseURL = tt.base
			if _, err := NewHTTPHandler(cfg, memory.NewInMemoryRepository(), &recordingMailer{}, nil); err != nil {
				t.Fatalf("failed to create handler: %v", err)
			}

			warned := false
			for _, entry := range hook.AllEntries() {
				if entry.Level == logrus.WarnLevel && entry.Message == msgNoPublicBaseURL {
					warned = true
				}
			}
			if warned != tt.wantWarn {
				t.Errorf("expected warning=%v, got %v", tt.wantWarn, warned)
			}
		})
	}
}
