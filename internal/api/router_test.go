package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/docshare/identity-api/internal/api/handler"
	"github.com/docshare/identity-api/internal/core/domain"
	"github.com/docshare/identity-api/internal/core/ports"
	"github.com/docshare/identity-api/internal/core/token"
)

// fakeUsers is a UserService returning canned results.
type fakeUsers struct {
	loginErr error
	// password, when set, is the only secret Login accepts.
	password string
	logins   int
	updated  []int64
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.password != "" && password != f.password {
		return nil, domain.Fail(domain.CauseWrongCredential)
	}
	return &ports.AuthResult{Token: "t", Message: "login successful"}, nil
}

func (f *fakeUsers) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	return &ports.AuthResult{Token: "t", User: &domain.User{ID: 1, Email: in.Email}, Message: "signup successful"}, nil
}

func (f *fakeUsers) List(ctx context.Context, page *domain.Page) (*ports.ListResult, error) {
	return &ports.ListResult{Users: []*domain.User{}, Count: 0}, nil
}

func (f *fakeUsers) Get(ctx context.Context, id int64) (*domain.User, error) {
	return nil, domain.Fail(domain.CauseUnknownIdentity)
}

func (f *fakeUsers) Update(ctx context.Context, id int64, in ports.UpdateInput) (*ports.UpdateResult, error) {
	f.updated = append(f.updated, id)
	return &ports.UpdateResult{User: &domain.User{ID: id}, Message: "user successfully updated"}, nil
}

func (f *fakeUsers) Delete(ctx context.Context, id int64) error { return nil }

func (f *fakeUsers) Search(ctx context.Context, query string) ([]*domain.User, int64, error) {
	return nil, 0, domain.Fail(domain.CauseNoMatch)
}

type routerEnv struct {
	users  *fakeUsers
	issuer *token.Issuer
	srv    http.Handler
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	iss, err := token.NewIssuer([]byte("router-secret"), time.Hour, nil)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	users := &fakeUsers{}
	e := NewRouter(Dependencies{
		Users:  users,
		Tokens: iss,
		Readiness: map[string]handler.Pinger{
			"mongodb": handler.PingFunc(func(context.Context) error { return nil }),
		},
		Log:      zerolog.Nop(),
		Registry: prometheus.NewRegistry(),
	})
	return &routerEnv{users: users, issuer: iss, srv: e}
}

func (env *routerEnv) bearer(t *testing.T, id int64, role int) string {
	t.Helper()
	signed, err := env.issuer.Issue(context.Background(), domain.Snapshot{ID: id, Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + signed
}

func (env *routerEnv) do(method, target, body, auth string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

func bodyOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestRouter_LoginFailureIsFixed401(t *testing.T) {
	env := newRouterEnv(t)
	env.users.loginErr = domain.Wrap(domain.CauseWrongCredential, domain.ErrUserNotFound)

	rec := env.do(http.MethodPost, "/auth/login", `{"email":"ghost@example.com","password":"x"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if bodyOf(t, rec)["error"] != msgWrongCredential {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_LoginFailuresAreIdentical(t *testing.T) {
	env := newRouterEnv(t)
	env.users.password = "s3cret"

	bodies := []string{
		`{"email":"alice@example.com","password":"wrong"}`,
		`{"email":"alice@example.com","password":""}`,
		`{"email":"alice@example.com"}`,
		`{"password":"wrong"}`,
	}
	var first string
	for i, body := range bodies {
		rec := env.do(http.MethodPost, "/auth/login", body, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("body %s: expected 401, got %d: %s", body, rec.Code, rec.Body.String())
		}
		if i == 0 {
			first = rec.Body.String()
			continue
		}
		if rec.Body.String() != first {
			t.Fatalf("body %s: response %q differs from %q", body, rec.Body.String(), first)
		}
	}
	if env.users.logins != len(bodies) {
		t.Fatalf("expected every request to reach Login, got %d", env.users.logins)
	}
}

func TestRouter_SignupCreated(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(http.MethodPost, "/auth/signup",
		`{"email":"a@example.com","username":"al","password":"p","confirmationPassword":"p"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_UsersRequireToken(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(http.MethodGet, "/users", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_MalformedPaginationIs406(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(http.MethodGet, "/users?limit=5&offset=x", "", env.bearer(t, 1, domain.RoleRegular))
	if rec.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406, got %d", rec.Code)
	}
	errs, ok := bodyOf(t, rec)["errors"].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("expected a field list, got %s", rec.Body.String())
	}
}

func TestRouter_SinglePaginationValueListsAll(t *testing.T) {
	env := newRouterEnv(t)

	for _, target := range []string{"/users?limit=5", "/users?offset=5"} {
		rec := env.do(http.MethodGet, target, "", env.bearer(t, 1, domain.RoleRegular))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", target, rec.Code, rec.Body.String())
		}
	}
}

func TestRouter_MalformedIDIs400(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(http.MethodGet, "/users/abc", "", env.bearer(t, 1, domain.RoleRegular))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRouter_UnknownUserIs404(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(http.MethodGet, "/users/99", "", env.bearer(t, 1, domain.RoleRegular))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRouter_UpdateOtherUserForbidden(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(http.MethodPut, "/users/2", `{"password":"p","bio":"x"}`, env.bearer(t, 1, domain.RoleRegular))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(env.users.updated) != 0 {
		t.Fatalf("service must not be reached")
	}

	rec = env.do(http.MethodPut, "/users/2", `{"password":"p","bio":"x"}`, env.bearer(t, 1, domain.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestRouter_SearchNoMatch(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.do(http.MethodGet, "/users/search?q=zzz", "", env.bearer(t, 1, domain.RoleRegular))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	env := newRouterEnv(t)

	if rec := env.do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d", rec.Code)
	}

	env.do(http.MethodGet, "/health", "", "")
	rec := env.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "requests_total") {
		t.Fatalf("expected http metrics in output")
	}
}
