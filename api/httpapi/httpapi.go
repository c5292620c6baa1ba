package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	wsadapter "catchkit/adapters/websocket"
	"catchkit/engine"
	"catchkit/realtime"
)

// Options configures the emulator surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/emulator").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, requires ?key=, X-API-Key or Authorization: Bearer.
	APIKeys []string
	// JWTSecret signs the id tokens handed out by the account endpoints.
	JWTSecret []byte
	// TokenTTL is the id token lifetime.
	TokenTTL time.Duration
	// RequireAuth makes database reads need a valid token and restricts
	// writes to the caller's own users/{uid} subtree.
	RequireAuth bool
	Logger      *slog.Logger
}

// Backend is what the emulator serves.
type Backend struct {
	Accounts engine.AccountStore
	Store    engine.SharedStore
}

// NewMux builds the emulator handler. Routes:
//   - POST {prefix}/v1/accounts:signUp
//   - POST {prefix}/v1/accounts:signInWithPassword
//   - POST {prefix}/v1/accounts:sendOobCode
//   - GET|PUT|DELETE {prefix}/db/{path}.json[?orderBy=..][&auth=..]
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws[?path=..]
func NewMux(backend Backend, hub *realtime.Hub, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	store := backend.Store
	if hub != nil {
		store = realtime.Observe(store, hub)
	}
	tokens := newTokenIssuer(opts.JWTSecret, opts.TokenTTL)
	mux := http.NewServeMux()

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, store)
	})

	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	ids := &identityHandler{accounts: backend.Accounts, tokens: tokens, log: opts.Logger}
	mux.Handle(withPrefix(opts.PathPrefix, "/v1/"), http.StripPrefix(withPrefix(opts.PathPrefix, "/v1"), ids))

	db := &databaseHandler{store: store, tokens: tokens, requireAuth: opts.RequireAuth, log: opts.Logger}
	mux.Handle(withPrefix(opts.PathPrefix, "/db/"), http.StripPrefix(withPrefix(opts.PathPrefix, "/db"), db))

	var handler http.Handler = mux
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	return handler
}

// healthCheck verifies the store answers reads.
func healthCheck(w http.ResponseWriter, r *http.Request, store engine.SharedStore) {
	_, _, err := store.Read(r.Context(), "healthcheck_probe")

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	code := http.StatusOK
	if err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}
	writeJSON(w, code, status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// dbError is the database error body: {"error": "..."}.
func dbError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Firebase-ETag,If-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			dbError(w, http.StatusUnauthorized, "missing API key")
			return
		}
		if _, ok := allowed[key]; !ok {
			dbError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	if key := r.URL.Query().Get("key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return r.Header.Get("X-API-Key")
}

// writeLock serializes database writes so if-match checks are atomic.
type writeLock struct{ sync.Mutex }
