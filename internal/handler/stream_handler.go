package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/jukeq/internal/middleware"
	"github.com/hitoshi/jukeq/internal/model"
)

// StreamServiceInterface はストリームハンドラーが必要とするサービスインターフェース。
type StreamServiceInterface interface {
	// Submit はメディアURLを検証しストリームとして登録する。
	Submit(ctx context.Context, ownerID, rawURL string) (*model.Stream, error)
	// List は所有者のストリーム一覧を返す。
	List(ctx context.Context, ownerID string) ([]*model.Stream, error)
}

// StreamHandler はストリーム管理のHTTPハンドラー。
type StreamHandler struct {
	service StreamServiceInterface
}

// NewStreamHandler はStreamHandlerを生成する。
func NewStreamHandler(service StreamServiceInterface) *StreamHandler {
	return &StreamHandler{service: service}
}

// submitStreamRequest はストリーム登録リクエストのボディ。
// ownerIdを省略した場合は認証済みユーザー自身のキューに登録する。
type submitStreamRequest struct {
	URL     string `json:"url"`
	OwnerID string `json:"ownerId"`
}

// streamResponse はストリーム情報のAPIレスポンス。
type streamResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	URL         string    `json:"url"`
	ExtractedID string    `json:"extractedId"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	SmallImg    string    `json:"smallImg"`
	BigImg      string    `json:"bigImg"`
	CreatedAt   time.Time `json:"createdAt"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Submit はストリーム登録を処理する。
// POST /api/streams
func (h *StreamHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewUnauthorizedError())
		return
	}

	var req submitStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = userID
	}

	stream, err := h.service.Submit(r.Context(), ownerID, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(toStreamResponse(stream))
}

// List は所有者のストリーム一覧を返す。
// GET /api/streams?ownerId=xxx
func (h *StreamHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerId")

	streams, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]streamResponse, 0, len(streams))
	for _, s := range streams {
		resp = append(resp, toStreamResponse(s))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- ヘルパー関数 ---

// toStreamResponse はmodel.StreamからAPIレスポンスに変換する。
func toStreamResponse(stream *model.Stream) streamResponse {
	return streamResponse{
		ID:          stream.ID,
		OwnerID:     stream.OwnerID,
		URL:         stream.URL,
		ExtractedID: stream.ExtractedID,
		Type:        string(stream.Type),
		Title:       stream.Title,
		SmallImg:    stream.SmallImg,
		BigImg:      stream.BigImg,
		CreatedAt:   stream.CreatedAt,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidURL, model.ErrCodeInvalidRequest, model.ErrCodeMissingOwnerID:
		return http.StatusBadRequest
	case model.ErrCodeStreamNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnauthorized:
		// 解決できるセッション/ユーザーが存在しない操作は403で拒否する
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
