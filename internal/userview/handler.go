package userview

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-userview/internal/auth"
)

// Handler exposes HTTP endpoints for local user views. It decides which view
// shape a caller may see; the service never does.
type Handler struct {
	svc      *Service
	verifier *auth.Verifier
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, verifier *auth.Verifier, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, verifier: verifier, logger: logger}
}

// Me returns the settings view of the token's own local user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	id, _ := claims.LocalUserID()
	view, err := h.svc.Settings(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// Settings returns the settings view of {id}; owner or admin only.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if self, _ := claims.LocalUserID(); self != id && !claims.Admin {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}
	view, err := h.svc.Settings(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// PublicProfile returns the settings view of the local user owning person {id}.
func (h *Handler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	view, err := h.svc.PublicSettings(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// AdminLookup returns the full view for ?by=<kind>&q=<value>. Admin only.
func (h *Handler) AdminLookup(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !claims.Admin {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}
	key, err := ParseKey(r.URL.Query().Get("by"), r.URL.Query().Get("q"))
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	view, err := h.svc.Lookup(r.Context(), key)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	token, ok := auth.BearerToken(r)
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
		return nil, false
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Debugw("token rejected", "err", err)
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return nil, false
	}
	return claims, true
}

func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such user"})
	case errors.Is(err, ErrUnknownKey):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrIntegrityFault):
		h.logger.Errorw("local user view integrity fault", "err", err, "path", r.URL.Path)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
	default:
		h.logger.Warnw("local user lookup failed", "err", err, "path", r.URL.Path)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
