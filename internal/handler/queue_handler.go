package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/jukeq/internal/middleware"
	"github.com/hitoshi/jukeq/internal/model"
)

// QueueServiceInterface はキューハンドラーが必要とするサービスインターフェース。
type QueueServiceInterface interface {
	// QueueFor は所有者のキューをtally降順で返す。
	QueueFor(ctx context.Context, ownerID, viewerID string) ([]model.QueueEntry, error)
}

// QueueHandler は再生キューのHTTPハンドラー。
type QueueHandler struct {
	service QueueServiceInterface
}

// NewQueueHandler はQueueHandlerを生成する。
func NewQueueHandler(service QueueServiceInterface) *QueueHandler {
	return &QueueHandler{service: service}
}

// queueEntryResponse はキューエントリのAPIレスポンス。
// viewerVoteは閲覧ユーザー自身の投票方向（1, -1, 未投票なら0）。
type queueEntryResponse struct {
	streamResponse
	Tally      int `json:"tally"`
	ViewerVote int `json:"viewerVote"`
}

// Queue は所有者のキューを返す。
// GET /api/queue?ownerId=xxx
func (h *QueueHandler) Queue(w http.ResponseWriter, r *http.Request) {
	viewerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewUnauthorizedError())
		return
	}

	ownerID := r.URL.Query().Get("ownerId")

	entries, err := h.service.QueueFor(r.Context(), ownerID, viewerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]queueEntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, queueEntryResponse{
			streamResponse: toStreamResponse(&entries[i].Stream),
			Tally:          entries[i].Tally,
			ViewerVote:     entries[i].ViewerVote,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
