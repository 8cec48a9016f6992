package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"domainscout/internal/store"
)

const (
	defaultDomainLimit = 50
	maxDomainLimit     = 500
	catalogTimeout     = 3 * time.Second
)

// CatalogHandler exposes read-only endpoints over the persisted domain
// catalog, which accumulates across runs.
type CatalogHandler struct {
	repo    store.CatalogRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewCatalogHandler wires the repository and logger.
func NewCatalogHandler(repo store.CatalogRepository, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{
		repo:    repo,
		timeout: catalogTimeout,
		logger:  logger,
	}
}

// MountCatalog registers the catalog routes on the server router.
func (s *Server) MountCatalog(h *CatalogHandler) {
	s.router.Route("/api/domains", func(r chi.Router) {
		r.Get("/", h.ListDomains)
		r.Get("/{domain}", h.GetDomain)
	})
}

// ListDomains handles GET /api/domains?min_score=&limit=&offset=. It returns
// {"domains": [...]} on success, 400 for invalid filters, 503 when the repo
// is unavailable, or 500 if the repository call fails.
func (h *CatalogHandler) ListDomains(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog repository unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, offset, err := parseLimitOffset(r, defaultDomainLimit, maxDomainLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minScore := 0.0
	if msStr := strings.TrimSpace(r.URL.Query().Get("min_score")); msStr != "" {
		val, parseErr := strconv.ParseFloat(msStr, 64)
		if parseErr != nil || val < 0 {
			writeError(w, http.StatusBadRequest, "invalid min_score")
			return
		}
		minScore = val
	}
	entries, err := h.repo.ListDomains(ctx, minScore, limit, offset)
	if err != nil {
		h.logger.Error("list domains failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list domains")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"domains": toDomainDTOs(entries),
	})
}

// GetDomain handles GET /api/domains/{domain}. It returns {"domain": {...}}
// on success, 400 for a missing path value, 404 when the repository reports
// store.ErrNotFound, 503 if the repo is not initialized, or 500 otherwise.
func (h *CatalogHandler) GetDomain(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog repository unavailable")
		return
	}
	domain := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "domain")))
	if domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	entry, err := h.repo.GetDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "domain not found")
			return
		}
		h.logger.Error("get domain failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load domain")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"domain": toDomainDTO(entry)})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func toDomainDTOs(in []store.CatalogEntry) []domainDTO {
	out := make([]domainDTO, 0, len(in))
	for _, entry := range in {
		out = append(out, toDomainDTO(entry))
	}
	return out
}

func toDomainDTO(entry store.CatalogEntry) domainDTO {
	return domainDTO{
		Domain:      entry.Domain,
		Score:       entry.Score,
		Matches:     entry.Matches,
		Keywords:    entry.Keywords,
		LastUpdated: entry.LastUpdated,
	}
}

type domainDTO struct {
	Domain      string         `json:"domain"`
	Score       float64        `json:"score"`
	Matches     map[string]int `json:"matches,omitempty"`
	Keywords    []string       `json:"keywords,omitempty"`
	LastUpdated time.Time      `json:"last_updated"`
}
