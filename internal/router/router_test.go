package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ovaphlow/pitchfork/service-userview/internal/auth"
	viewrepo "github.com/ovaphlow/pitchfork/service-userview/internal/userview/repo"
	"github.com/ovaphlow/pitchfork/service-userview/pkg/database"
)

var routerAuth = auth.Config{Secret: "router-test-secret", Issuer: "router-test", TTL: time.Minute}

func openSeededDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: ":memory:", MaxConns: 1, Timeout: time.Second})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := viewrepo.NewSchema(db).EnsureTables(ctx); err != nil {
		t.Fatalf("ensure tables: %v", err)
	}
	stmts := []string{
		`INSERT INTO person (id, name, actor_id, private_key, public_key) VALUES (10, 'alice', 'https://example.org/u/alice', 'alice-private', 'alice-public')`,
		`INSERT INTO local_user (id, person_id, password_encrypted, email) VALUES (1, 10, 'alice-hash', 'alice@example.org')`,
		`INSERT INTO person_aggregates (person_id, post_count) VALUES (10, 4)`,
		`INSERT INTO local_user_language (local_user_id, lang) VALUES (1, 'en'), (1, 'de')`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed %q: %v", q, err)
		}
	}
	return db
}

func newTestRouter(t *testing.T) (http.Handler, *auth.Issuer) {
	t.Helper()
	verifier, err := auth.NewVerifier(routerAuth)
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	issuer, err := auth.NewIssuer(routerAuth)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	return RegisterRoutes(zap.NewNop().Sugar(), openSeededDB(t), verifier), issuer
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)
	rec := get(h, "/pitchfork-api-core/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing security headers: %v", rec.Header())
	}
}

func TestMeServesRedactedView(t *testing.T) {
	t.Parallel()

	h, issuer := newTestRouter(t)
	tok, err := issuer.Issue(1, false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := get(h, "/pitchfork-api-core/me", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, secret := range []string{"alice-hash", "alice-private", "alice-public"} {
		if strings.Contains(body, secret) {
			t.Fatalf("settings view leaks %q: %s", secret, body)
		}
	}
	var got struct {
		Person struct {
			Name string `json:"name"`
		} `json:"person"`
		Counts struct {
			PostCount int64 `json:"post_count"`
		} `json:"counts"`
		Languages []string `json:"languages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Person.Name != "alice" || got.Counts.PostCount != 4 || len(got.Languages) != 2 {
		t.Fatalf("unexpected view: %s", body)
	}
}

func TestAdminLookupServesFullView(t *testing.T) {
	t.Parallel()

	h, issuer := newTestRouter(t)
	tok, err := issuer.Issue(99, true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := get(h, "/pitchfork-api-core/admin/users?by=email&q=alice@example.org", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"password_encrypted":"alice-hash"`) {
		t.Fatalf("expected full view: %s", rec.Body.String())
	}

	rec = get(h, "/pitchfork-api-core/admin/users?by=email&q=ALICE@example.org", tok)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("case-mismatched email: status = %d", rec.Code)
	}
}

func TestPublicProfileNotFound(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)
	if rec := get(h, "/pitchfork-api-core/people/404", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := get(h, "/pitchfork-api-core/people/10", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequestIDMiddlewareKeepsIncomingID(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "req-123" || rec.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("request id = %q / %q, want req-123", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "req-123" {
		t.Fatalf("expected a fresh request id, got %q", seen)
	}
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	h := RequestIDMiddleware()(LoggingMiddleware(zap.New(core).Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("hello"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	ok, boom := entries[0], entries[1]
	if ok.Level != zapcore.DebugLevel || ok.ContextMap()["status"] != int64(http.StatusOK) || ok.ContextMap()["bytes"] != int64(5) {
		t.Fatalf("ok entry = %v %v", ok.Level, ok.ContextMap())
	}
	if boom.Level != zapcore.WarnLevel || boom.ContextMap()["status"] != int64(http.StatusInternalServerError) {
		t.Fatalf("boom entry = %v %v", boom.Level, boom.ContextMap())
	}
	if id, _ := ok.ContextMap()["request_id"].(string); id == "" {
		t.Fatalf("missing request id: %v", ok.ContextMap())
	}
}
