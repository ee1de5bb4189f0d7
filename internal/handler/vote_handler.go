package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/jukeq/internal/middleware"
	"github.com/hitoshi/jukeq/internal/model"
)

// VoteServiceInterface は投票ハンドラーが必要とするサービスインターフェース。
type VoteServiceInterface interface {
	// Cast は投票を登録する。既存の投票は方向を上書きする（冪等）。
	Cast(ctx context.Context, userID, streamID string, direction model.VoteDirection) error
	// Retract は投票を取り消す。投票が存在しなくてもエラーにならない（冪等）。
	Retract(ctx context.Context, userID, streamID string) error
}

// VoteHandler は投票のHTTPハンドラー。
type VoteHandler struct {
	service VoteServiceInterface
}

// NewVoteHandler はVoteHandlerを生成する。
func NewVoteHandler(service VoteServiceInterface) *VoteHandler {
	return &VoteHandler{service: service}
}

// voteRequest は投票リクエストのボディ。
type voteRequest struct {
	StreamID string `json:"streamId"`
}

// voteStateResponse は投票操作後の(user, stream)ペアの状態を返すACK。
// directionは+1/-1、取り消し後は0。
type voteStateResponse struct {
	StreamID  string `json:"streamId"`
	Direction int    `json:"direction"`
}

// Up は賛成票を登録する。
// POST /api/votes/up
func (h *VoteHandler) Up(w http.ResponseWriter, r *http.Request) {
	h.cast(w, r, model.VoteUp)
}

// Down は反対票を登録する。
// POST /api/votes/down
func (h *VoteHandler) Down(w http.ResponseWriter, r *http.Request) {
	h.cast(w, r, model.VoteDown)
}

func (h *VoteHandler) cast(w http.ResponseWriter, r *http.Request, direction model.VoteDirection) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewUnauthorizedError())
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.Cast(r.Context(), userID, req.StreamID, direction); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(voteStateResponse{
		StreamID:  req.StreamID,
		Direction: int(direction),
	})
}

// Retract は投票を取り消す。
// DELETE /api/votes
func (h *VoteHandler) Retract(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewUnauthorizedError())
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.Retract(r.Context(), userID, req.StreamID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(voteStateResponse{
		StreamID:  req.StreamID,
		Direction: 0,
	})
}
