package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sheep1986/apex-sub005/internal/calls"
	"github.com/sheep1986/apex-sub005/internal/callsync"
	"github.com/sheep1986/apex-sub005/internal/http/middleware"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

// syncJob is the slice of the sync job the handler invokes.
type syncJob interface {
	Sync(ctx context.Context, orgID, campaignID string, limit int) (callsync.Result, error)
	SyncOne(ctx context.Context, orgID, callID string) (*calls.CallRecord, error)
}

// SyncHandler serves the admin endpoints that pull call state from the
// provider on demand.
type SyncHandler struct {
	job    syncJob
	logger *logging.Logger
}

func NewSyncHandler(job syncJob, logger *logging.Logger) *SyncHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SyncHandler{job: job, logger: logger}
}

type syncRequest struct {
	OrganizationID string `json:"organizationId"`
	CampaignID     string `json:"campaignId"`
	Limit          int    `json:"limit"`
}

// SyncCalls runs a bulk sync. The organization comes from the request
// body, or from the admin token's subject when the body omits it.
func (h *SyncHandler) SyncCalls(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSyncRequest(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	orgID := h.resolveOrg(r, req.OrganizationID)
	if orgID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "organizationId is required"})
		return
	}

	result, err := h.job.Sync(r.Context(), orgID, req.CampaignID, req.Limit)
	if err != nil {
		h.logger.Error("bulk sync failed", "org_id", orgID, "campaign_id", req.CampaignID, "error", err)
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "sync failed"})
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SyncCall fetches and upserts a single call by provider call id.
func (h *SyncHandler) SyncCall(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")
	if callID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "call id is required"})
		return
	}
	req, err := decodeSyncRequest(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	orgID := h.resolveOrg(r, req.OrganizationID)
	if orgID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "organizationId is required"})
		return
	}

	rec, err := h.job.SyncOne(r.Context(), orgID, callID)
	if err != nil {
		if errors.Is(err, calls.ErrCallNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "call not found"})
			return
		}
		h.logger.Error("single call sync failed", "org_id", orgID, "call_id", callID, "error", err)
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": "sync failed"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "call": rec})
}

func (h *SyncHandler) resolveOrg(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

// decodeSyncRequest tolerates an empty body; every field is optional.
func decodeSyncRequest(r *http.Request) (syncRequest, error) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return syncRequest{}, err
	}
	return req, nil
}
