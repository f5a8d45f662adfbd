package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cleaning-moscow/liza-bot/internal/auth"
	"github.com/cleaning-moscow/liza-bot/internal/config"
	"github.com/cleaning-moscow/liza-bot/internal/store"
)

// APIHandler exposes the store operations to ops tooling. Authentication is a
// static token exchanged for a short-lived JWT; there is no user model beyond
// that (access control past the admin allow-list is a non-goal).
type APIHandler struct {
	cfg   *config.Config
	store *store.Store
}

func NewAPIHandler(cfg *config.Config, s *store.Store) *APIHandler {
	return &APIHandler{cfg: cfg, store: s}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if _, err := auth.ValidateJWT(h.cfg.JWTSecret, tokenString); err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Token string `json:"token"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(h.cfg.AdminAPIToken)) != 1 {
		http.Error(w, "Invalid admin token", http.StatusUnauthorized)
		return
	}

	jwtToken, err := auth.GenerateJWT(h.cfg.JWTSecret, "ops")
	if err != nil {
		slog.Error("failed to generate JWT", "error", err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"jwt": jwtToken})
}

// SearchKnowledgeHandler runs the relevance search: GET /api/knowledge?q=...
func (h *APIHandler) SearchKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	limit := intParam(r, "limit", store.DefaultKnowledgeLimit)

	matches, err := h.store.GetRelevantKnowledge(query, limit)
	if err != nil {
		slog.Error("knowledge search failed", "error", err)
		http.Error(w, "Failed to search knowledge", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// RecentKnowledgeHandler lists the newest entries with their ids, for
// reviewing and deleting.
func (h *APIHandler) RecentKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 20)

	entries, err := h.store.ListRecentKnowledge(limit)
	if err != nil {
		slog.Error("knowledge listing failed", "error", err)
		http.Error(w, "Failed to list knowledge", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type deleteKnowledgeRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *APIHandler) DeleteKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	var req deleteKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, "ids are required", http.StatusBadRequest)
		return
	}

	deleted, err := h.store.DeleteKnowledge(req.IDs)
	if err != nil {
		slog.Error("knowledge deletion failed", "error", err)
		http.Error(w, "Failed to delete knowledge", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// ActivityHandler returns the daily activity rows for one day (today when
// the day parameter is omitted).
func (h *APIHandler) ActivityHandler(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	activities, err := h.store.GetDailyActivity(day)
	if err != nil {
		slog.Error("activity query failed", "error", err)
		http.Error(w, "Failed to query activity", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"day": day, "activity": activities})
}

func intParam(r *http.Request, name string, defaultValue int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			return value
		}
	}
	return defaultValue
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
