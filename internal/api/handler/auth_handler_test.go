package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/ports"
)

// stubUserService implements ports.UserService; unset functions fail the test.
type stubUserService struct {
	t        *testing.T
	loginFn  func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	signupFn func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error)
	listFn   func(ctx context.Context, page *domain.Page) (*ports.ListResult, error)
	getFn    func(ctx context.Context, id int64) (*domain.User, error)
	updateFn func(ctx context.Context, id int64, in ports.UpdateInput) (*ports.UpdateResult, error)
	deleteFn func(ctx context.Context, id int64) error
	searchFn func(ctx context.Context, query string) ([]*domain.User, int64, error)
}

func (s *stubUserService) unexpected(name string) {
	s.t.Helper()
	s.t.Fatalf("%s should not be called", name)
}

func (s *stubUserService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	if s.loginFn == nil {
		s.unexpected("Login")
	}
	return s.loginFn(ctx, email, password)
}

func (s *stubUserService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	if s.signupFn == nil {
		s.unexpected("Signup")
	}
	return s.signupFn(ctx, in)
}

func (s *stubUserService) List(ctx context.Context, page *domain.Page) (*ports.ListResult, error) {
	if s.listFn == nil {
		s.unexpected("List")
	}
	return s.listFn(ctx, page)
}

func (s *stubUserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	if s.getFn == nil {
		s.unexpected("Get")
	}
	return s.getFn(ctx, id)
}

func (s *stubUserService) Update(ctx context.Context, id int64, in ports.UpdateInput) (*ports.UpdateResult, error) {
	if s.updateFn == nil {
		s.unexpected("Update")
	}
	return s.updateFn(ctx, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, id int64) error {
	if s.deleteFn == nil {
		s.unexpected("Delete")
	}
	return s.deleteFn(ctx, id)
}

func (s *stubUserService) Search(ctx context.Context, query string) ([]*domain.User, int64, error) {
	if s.searchFn == nil {
		s.unexpected("Search")
	}
	return s.searchFn(ctx, query)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		t: t,
		signupFn: func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
			if in.Email != "alice@example.com" || in.Username != "alice" || in.ConfirmationPassword != "secret" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.AuthResult{
				Token:   "token123",
				User:    &domain.User{ID: 1, Email: in.Email, Username: in.Username, PasswordHash: "$2a$digest", Role: domain.RoleRegular},
				Message: "signup successful",
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/signup",
		`{"email":"alice@example.com","username":"alice","password":"secret","confirmationPassword":"secret"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decode(t, rec)
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "alice" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
	if strings.Contains(rec.Body.String(), "digest") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password material: %s", rec.Body.String())
	}
}

func TestAuthHandler_Signup_MissingFields(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubUserService{t: t})

	req := jsonRequest(http.MethodPost, "/auth/signup", `{"email":"alice@example.com"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Signup(c)
	if domain.CauseOf(err) != domain.CauseValidationFailure {
		t.Fatalf("expected validation failure, got %v", err)
	}
	f := err.(*domain.Failure)
	if len(f.Fields) != 2 {
		t.Fatalf("expected 2 missing fields, got %+v", f.Fields)
	}
}

func TestAuthHandler_Signup_MissingConfirmationReachesService(t *testing.T) {
	e := newEcho()
	called := false
	stub := &stubUserService{
		t: t,
		signupFn: func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
			called = true
			if in.ConfirmationPassword != "" {
				t.Fatalf("unexpected confirmation %q", in.ConfirmationPassword)
			}
			return nil, domain.Fail(domain.CausePasswordConfirmationMismatch)
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/signup",
		`{"email":"a@example.com","username":"al","password":"one"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Signup(c)
	if !called {
		t.Fatalf("service not called")
	}
	if domain.CauseOf(err) != domain.CausePasswordConfirmationMismatch {
		t.Fatalf("expected confirmation mismatch, got %v", err)
	}
}

func TestAuthHandler_Signup_PropagatesFailure(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		t: t,
		signupFn: func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
			return nil, domain.Fail(domain.CausePasswordConfirmationMismatch)
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/signup",
		`{"email":"a@example.com","username":"al","password":"one","confirmationPassword":"two"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Signup(c)
	if domain.CauseOf(err) != domain.CausePasswordConfirmationMismatch {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestAuthHandler_Signup_InvalidPayload(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubUserService{t: t})

	req := jsonRequest(http.MethodPost, "/auth/signup", "not-json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Signup(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		t: t,
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.AuthResult{Token: "token123", Message: "login successful"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode(t, rec)
	if resp["token"] != "token123" || resp["message"] != "login successful" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestAuthHandler_Login_WrongCredential(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		t: t,
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			return nil, domain.Fail(domain.CauseWrongCredential)
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"bad"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Login(c)
	if domain.CauseOf(err) != domain.CauseWrongCredential {
		t.Fatalf("expected wrong credential, got %v", err)
	}
}

func TestAuthHandler_Login_IncompleteBodyReachesService(t *testing.T) {
	e := newEcho()
	var seen []string
	stub := &stubUserService{
		t: t,
		loginFn: func(ctx context.Context, email, password string) (*ports.AuthResult, error) {
			seen = append(seen, email+"|"+password)
			return nil, domain.Fail(domain.CauseWrongCredential)
		},
	}
	handler := NewAuthHandler(stub)

	for _, body := range []string{
		`{"email":"alice@example.com","password":""}`,
		`{"email":"alice@example.com"}`,
		`{}`,
	} {
		req := jsonRequest(http.MethodPost, "/auth/login", body)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.Login(c); domain.CauseOf(err) != domain.CauseWrongCredential {
			t.Fatalf("body %s: expected wrong credential, got %v", body, err)
		}
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 service calls, got %v", seen)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubUserService{t: t})

	req := jsonRequest(http.MethodPost, "/auth/login", "{")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
