package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/emperorhan/ownership-indexer/internal/contracttype"
	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/ownership"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxRequestBodyBytes = 1 << 20 // 1 MB
	maxVerifyItems      = 1000
)

// ContractRegistry exposes the learned contract classifications.
type ContractRegistry interface {
	Snapshot() map[model.Network][]contracttype.Entry
	ForgetUnknown() map[model.Network]int
}

// OwnershipVerifier runs one reconciliation for a category.
type OwnershipVerifier interface {
	Categories() []model.Category
	Verify(ctx context.Context, cat model.Category, claims *model.Claims, bypass bool) (map[model.Address][]model.ItemID, error)
}

// Server is the operator HTTP surface: health, metrics, contract registry and
// a debug entry point that runs one reconciliation.
type Server struct {
	contracts ContractRegistry
	verifier  OwnershipVerifier
	logger    *slog.Logger
}

type ServerOption func(*Server)

func WithContractRegistry(r ContractRegistry) ServerOption {
	return func(s *Server) { s.contracts = r }
}

func WithVerifier(v OwnershipVerifier) ServerOption {
	return func(s *Server) { s.verifier = v }
}

func NewServer(logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{logger: logger.With("component", "admin")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /admin/contracts", s.handleListContracts)
	mux.HandleFunc("POST /admin/contracts/forget-unknown", s.handleForgetUnknown)
	mux.HandleFunc("POST /admin/verify", s.handleVerify)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	if s.contracts == nil {
		writeError(w, http.StatusServiceUnavailable, "contract registry not configured")
		return
	}
	snapshot := s.contracts.Snapshot()
	if raw := r.URL.Query().Get("network"); raw != "" {
		network, ok := model.ParseNetwork(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown network")
			return
		}
		entries, ok := snapshot[network]
		if !ok {
			writeError(w, http.StatusNotFound, "network not configured")
			return
		}
		snapshot = map[model.Network][]contracttype.Entry{network: entries}
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleForgetUnknown(w http.ResponseWriter, _ *http.Request) {
	if s.contracts == nil {
		writeError(w, http.StatusServiceUnavailable, "contract registry not configured")
		return
	}
	dropped := s.contracts.ForgetUnknown()
	s.logger.Info("unknown contract classifications dropped", "dropped", dropped)
	writeJSON(w, http.StatusOK, map[string]any{"dropped": dropped})
}

type verifyRequest struct {
	Category    string              `json:"category"`
	Claims      map[string][]string `json:"claims"`
	BypassCache bool                `json:"bypass_cache"`
}

type verifyResponse struct {
	Category    string              `json:"category"`
	Owned       map[string][]string `json:"owned"`
	Unavailable []string            `json:"unavailable,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// handleVerify answers 200 even when some addresses were unavailable; they
// are listed separately and carry no verdict.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, "verifier not configured")
		return
	}

	var req verifyRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	category := model.Category(req.Category)
	if !category.Valid() {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	if !hasCategory(s.verifier.Categories(), category) {
		writeError(w, http.StatusNotFound, "category not configured")
		return
	}
	if len(req.Claims) == 0 {
		writeError(w, http.StatusBadRequest, "claims required")
		return
	}
	claims := model.NewClaims()
	total := 0
	for addr, items := range req.Claims {
		total += len(items)
		claims.Add(addr, items...)
	}
	if total > maxVerifyItems {
		writeError(w, http.StatusBadRequest, "too many items")
		return
	}

	owned, err := s.verifier.Verify(r.Context(), category, claims, req.BypassCache)
	resp := verifyResponse{Category: category.String(), Owned: owned}
	if err != nil {
		var unavailable *ownership.UnavailableError
		if !errors.As(err, &unavailable) {
			s.logger.Error("verify failed", "category", category, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Unavailable = unavailable.Addresses
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func hasCategory(cats []model.Category, c model.Category) bool {
	for _, cat := range cats {
		if cat == c {
			return true
		}
	}
	return false
}
