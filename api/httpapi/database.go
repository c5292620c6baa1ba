package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"catchkit/core"
	"catchkit/engine"
)

// databaseHandler serves the realtime database REST surface.
type databaseHandler struct {
	store       engine.SharedStore
	tokens      *tokenIssuer
	requireAuth bool
	log         *slog.Logger
	mu          writeLock
}

func (h *databaseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutSuffix(r.URL.Path, ".json")
	if !ok {
		dbError(w, http.StatusNotFound, "paths must end in .json")
		return
	}
	path, err := core.ParsePath(raw)
	if err != nil {
		dbError(w, http.StatusBadRequest, err.Error())
		return
	}
	uid, err := h.caller(r)
	if err != nil {
		dbError(w, http.StatusUnauthorized, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		if h.requireAuth && uid == "" {
			dbError(w, http.StatusUnauthorized, "Permission denied")
			return
		}
		h.get(w, r, path)
	case http.MethodPut, http.MethodDelete:
		if !h.canWrite(uid, path) {
			dbError(w, http.StatusUnauthorized, "Permission denied")
			return
		}
		h.put(w, r, path)
	default:
		dbError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// caller verifies ?auth=. No token yields an empty uid.
func (h *databaseHandler) caller(r *http.Request) (core.UserID, error) {
	raw := r.URL.Query().Get("auth")
	if raw == "" {
		return "", nil
	}
	return h.tokens.verify(raw)
}

// canWrite applies the rule users/$uid is writable when auth.uid == $uid.
func (h *databaseHandler) canWrite(uid core.UserID, path core.Path) bool {
	if !h.requireAuth {
		return true
	}
	owner, ok := core.UserIDFromPath(path)
	return ok && uid != "" && owner == uid
}

func (h *databaseHandler) get(w http.ResponseWriter, r *http.Request, path core.Path) {
	ctx := r.Context()
	orderBy := r.URL.Query().Get("orderBy")
	if orderBy != "" {
		key, err := strconv.Unquote(orderBy)
		if err != nil {
			dbError(w, http.StatusBadRequest, "orderBy must be a JSON string")
			return
		}
		if key == "$key" {
			key = ""
		}
		children, err := h.store.ReadOrderedCollection(ctx, path, key)
		if err != nil {
			h.fail(w, "query", path, err)
			return
		}
		var out any
		if len(children) > 0 {
			m := make(map[string]any, len(children))
			for _, c := range children {
				m[c.Key] = c.Value
			}
			out = m
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	v, _, err := h.store.Read(ctx, path)
	if err != nil {
		h.fail(w, "read", path, err)
		return
	}
	if r.Header.Get("X-Firebase-ETag") == "true" {
		w.Header().Set("ETag", etagOf(v))
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *databaseHandler) put(w http.ResponseWriter, r *http.Request, path core.Path) {
	ctx := r.Context()
	var value any
	if r.Method == http.MethodPut {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			dbError(w, http.StatusBadRequest, "body too large")
			return
		}
		if value, err = core.DecodeValue(body); err != nil {
			dbError(w, http.StatusBadRequest, "Invalid data; couldn't parse JSON object")
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if match := r.Header.Get("If-Match"); match != "" {
		cur, _, err := h.store.Read(ctx, path)
		if err != nil {
			h.fail(w, "read", path, err)
			return
		}
		if tag := etagOf(cur); tag != match {
			w.Header().Set("ETag", tag)
			writeJSON(w, http.StatusPreconditionFailed, cur)
			return
		}
	}
	if err := h.store.Write(ctx, path, value); err != nil {
		h.fail(w, "write", path, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *databaseHandler) fail(w http.ResponseWriter, op string, path core.Path, err error) {
	if errors.Is(err, core.ErrInvalidPath) || errors.Is(err, core.ErrUnsupportedValue) {
		dbError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Warn("store request failed", "op", op, "path", path.String(), "error", err)
	dbError(w, http.StatusInternalServerError, "internal error")
}

// etagOf hashes the canonical JSON of v; encoding/json sorts map keys.
func etagOf(v any) string {
	b, _ := json.Marshal(v)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}
