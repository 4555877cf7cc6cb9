package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/bridge"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

const SyncTypeFull = "full"

type SyncService interface {
	SyncPrimaryToSecondary(ctx context.Context) (*bridge.SyncResult, error)
	SyncSecondaryToPrimary(ctx context.Context) (*bridge.SyncResult, error)
	Bidirectional(ctx context.Context) (*bridge.BidirectionalResult, error)
	ForceFullSync(ctx context.Context) (*bridge.BidirectionalResult, error)
	Status(ctx context.Context) (*bridge.Status, error)
}

type SyncHandler struct {
	Bridge SyncService
}

func NewSyncHandler(b SyncService) *SyncHandler {
	return &SyncHandler{Bridge: b}
}

type SyncRequest struct {
	SyncType string `json:"sync_type"`
}

func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.Bridge == nil {
		writeMessage(w, http.StatusServiceUnavailable, usecase.CodeUpstream, "Database bridge não disponível")
		return
	}

	var req SyncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Invalid JSON")
		return
	}

	ctx := r.Context()
	switch req.SyncType {
	case bridge.DirectionPrimaryToSecondary:
		res, err := h.Bridge.SyncPrimaryToSecondary(ctx)
		h.respond(w, r, res, err)
	case bridge.DirectionSecondaryToPrimary:
		res, err := h.Bridge.SyncSecondaryToPrimary(ctx)
		h.respond(w, r, res, err)
	case bridge.DirectionBidirectional:
		res, err := h.Bridge.Bidirectional(ctx)
		h.respondBidirectional(w, r, res, err)
	case SyncTypeFull:
		res, err := h.Bridge.ForceFullSync(ctx)
		h.respondBidirectional(w, r, res, err)
	default:
		writeMessage(w, http.StatusBadRequest, usecase.CodeValidation, "Tipo de sync inválido: "+req.SyncType)
	}
}

func (h *SyncHandler) respond(w http.ResponseWriter, r *http.Request, res *bridge.SyncResult, err error) {
	if errors.Is(err, bridge.ErrSyncBusy) {
		writeMessage(w, http.StatusConflict, "SYNC_BUSY", err.Error())
		return
	}
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// respondBidirectional devolve o resultado parcial com success=false quando
// só uma das direções falhou.
func (h *SyncHandler) respondBidirectional(w http.ResponseWriter, r *http.Request, res *bridge.BidirectionalResult, err error) {
	if errors.Is(err, bridge.ErrSyncBusy) {
		writeMessage(w, http.StatusConflict, "SYNC_BUSY", err.Error())
		return
	}
	if res == nil {
		writeErrorResponse(w, r, err)
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ Sync bidirecional com falhas")
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.Bridge == nil {
		writeMessage(w, http.StatusServiceUnavailable, usecase.CodeUpstream, "Database bridge não disponível")
		return
	}

	st, err := h.Bridge.Status(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
