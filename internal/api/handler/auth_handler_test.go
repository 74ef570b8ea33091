package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/crmcore/authcore/internal/core/domain"
	"github.com/crmcore/authcore/internal/core/ports"
)

type stubAuthService struct {
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn          func(ctx context.Context, username, password string) (*ports.AuthResult, error)
	validateFn       func(raw string) bool
	meFn             func(ctx context.Context, actor domain.AuthContext) (*domain.Identity, error)
	updateProfileFn  func(ctx context.Context, actor domain.AuthContext, p domain.Profile) (*domain.Identity, error)
	changePasswordFn func(ctx context.Context, actor domain.AuthContext, in ports.ChangePasswordInput) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Validate(raw string) bool {
	return s.validateFn(raw)
}

func (s *stubAuthService) Me(ctx context.Context, actor domain.AuthContext) (*domain.Identity, error) {
	return s.meFn(ctx, actor)
}

func (s *stubAuthService) UpdateOwnProfile(ctx context.Context, actor domain.AuthContext, p domain.Profile) (*domain.Identity, error) {
	return s.updateProfileFn(ctx, actor, p)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, actor domain.AuthContext, in ports.ChangePasswordInput) error {
	return s.changePasswordFn(ctx, actor, in)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func withActor(req *http.Request, subject string, role domain.Role) *http.Request {
	return req.WithContext(domain.WithAuthContext(req.Context(), domain.AuthContext{Subject: subject, Role: role}))
}

func aliceResult() *ports.AuthResult {
	exp := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	return &ports.AuthResult{
		Token: domain.Token{Value: "tok", Subject: "alice", Role: domain.RoleSalesRep, ExpiresAt: exp},
		Identity: &domain.Identity{
			ID: "id-1", Username: "alice", Email: "alice@x.com",
			FirstName: "Alice", LastName: "A", Role: domain.RoleSalesRep, Active: true,
			PasswordHash: "$2a$10$secret",
		},
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Username != "alice" || in.Email != "alice@x.com" || in.Password != "secret123" || in.FirstName != "Alice" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return aliceResult(), nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@x.com","password":"secret123","firstName":"Alice","lastName":"A"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "tok" || resp["tokenType"] != "Bearer" || resp["userId"] != "id-1" || resp["role"] != "SALES_REP" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp["expiresAt"] != "2026-05-02T10:00:00Z" {
		t.Fatalf("unexpected expiresAt: %v", resp["expiresAt"])
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Fatalf("password material leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_ValidationError(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.AuthResult, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	})

	req := jsonRequest(http.MethodPost, "/auth/register", `{"username":"al","email":"x","password":"123"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	err := handler.Register(c)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, f := range []string{"username", "email", "password"} {
		if ve.Fields[f] == "" {
			t.Fatalf("missing field error for %s: %v", f, ve.Fields)
		}
	}
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrDuplicateUsername
		},
	})

	req := jsonRequest(http.MethodPost, "/auth/register", `{"username":"bob","email":"b@x.com","password":"secret123"}`)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := handler.Register(c); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.AuthResult, error) {
			if username == "alice" && password == "secret123" {
				return aliceResult(), nil
			}
			return nil, domain.ErrInvalidCredentials
		},
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"secret123"}`), rec)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"token":"tok"`) {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"nope"}`), httptest.NewRecorder())
	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Validate(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		validateFn: func(raw string) bool { return raw == "good" },
	})

	for query, want := range map[string]string{"?token=good": "true", "?token=bad": "false", "": "false"} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/validate"+query, nil), rec)
		if err := handler.Validate(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != want {
			t.Fatalf("%q: expected %s, got %d %s", query, want, rec.Code, rec.Body.String())
		}
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		meFn: func(ctx context.Context, actor domain.AuthContext) (*domain.Identity, error) {
			if actor.Subject != "alice" {
				t.Fatalf("unexpected actor: %+v", actor)
			}
			return aliceResult().Identity, nil
		},
	})

	rec := httptest.NewRecorder()
	req := withActor(httptest.NewRequest(http.MethodGet, "/auth/me", nil), "alice", domain.RoleSalesRep)
	if err := handler.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["username"] != "alice" || resp["active"] != true {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["passwordHash"]; ok {
		t.Fatalf("password hash exposed")
	}

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), httptest.NewRecorder())
	if err := handler.Me(c); !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing without auth context, got %v", err)
	}
}

func TestAuthHandler_UpdateMe(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{
		updateProfileFn: func(ctx context.Context, actor domain.AuthContext, p domain.Profile) (*domain.Identity, error) {
			if p.Email != "new@x.com" || p.FirstName != "Ally" {
				t.Fatalf("unexpected profile: %+v", p)
			}
			identity := aliceResult().Identity
			identity.Email, identity.FirstName = p.Email, p.FirstName
			return identity, nil
		},
	})

	rec := httptest.NewRecorder()
	req := withActor(jsonRequest(http.MethodPatch, "/auth/me", `{"email":"new@x.com","firstName":"Ally","role":"ADMIN"}`), "alice", domain.RoleSalesRep)
	if err := handler.UpdateMe(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"role":"SALES_REP"`) {
		t.Fatalf("role must not change through profile edit: %s", rec.Body.String())
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	e := newEcho()
	var got ports.ChangePasswordInput
	handler := NewAuthHandler(&stubAuthService{
		changePasswordFn: func(ctx context.Context, actor domain.AuthContext, in ports.ChangePasswordInput) error {
			got = in
			if in.CurrentPassword != "secret123" {
				return domain.ErrPasswordMismatch
			}
			return nil
		},
	})

	rec := httptest.NewRecorder()
	req := withActor(jsonRequest(http.MethodPost, "/auth/change-password",
		`{"currentPassword":"secret123","newPassword":"newpass1","confirmPassword":"newpass1"}`), "alice", domain.RoleSalesRep)
	if err := handler.ChangePassword(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || got.NewPassword != "newpass1" || got.ConfirmPassword != "newpass1" {
		t.Fatalf("unexpected result: %d %+v", rec.Code, got)
	}

	req = withActor(jsonRequest(http.MethodPost, "/auth/change-password",
		`{"currentPassword":"wrong","newPassword":"newpass1","confirmPassword":"newpass1"}`), "alice", domain.RoleSalesRep)
	if err := handler.ChangePassword(e.NewContext(req, httptest.NewRecorder())); !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{})

	rec := httptest.NewRecorder()
	if err := handler.Logout(e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
