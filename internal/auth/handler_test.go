package auth_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/shared"
	_ "github.com/shiftline/shiftline/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(slog.Default(), auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &auth.User{
		ID:           7,
		Email:        "eli@shiftline.local",
		FullName:     "Eli Employee",
		PasswordHash: string(hash),
		IsActive:     true,
	}
}

func doLogin(t *testing.T, handler *auth.Handler, sessions *shared.SessionManager, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	sess, err := sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.Login(res, req)
	if err := sessions.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res
}

func TestLoginSuccess(t *testing.T) {
	handler, sessions := newAuthHandler(t, &stubRepo{user: activeUser(t, "hunter2secret")})

	res := doLogin(t, handler, sessions, `{"email":"eli@shiftline.local","password":"hunter2secret"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		UserID    int64  `json:"user_id"`
		FullName  string `json:"full_name"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != 7 || payload.FullName != "Eli Employee" {
		t.Fatalf("unexpected response payload: %+v", payload)
	}
	if payload.CSRFToken == "" {
		t.Fatal("expected csrf token in response")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler, sessions := newAuthHandler(t, &stubRepo{user: activeUser(t, "hunter2secret")})

	res := doLogin(t, handler, sessions, `{"email":"eli@shiftline.local","password":"letmein-wrong"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t, "hunter2secret")
	user.IsActive = false
	handler, sessions := newAuthHandler(t, &stubRepo{user: user})

	res := doLogin(t, handler, sessions, `{"email":"eli@shiftline.local","password":"hunter2secret"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	handler, sessions := newAuthHandler(t, &stubRepo{})

	res := doLogin(t, handler, sessions, `{"email":"not-an-email","password":"short"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}

	res = doLogin(t, handler, sessions, `{broken json`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
