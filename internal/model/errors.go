// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, stream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidURL     = "INVALID_URL"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeMissingOwnerID = "MISSING_OWNER_ID"
	ErrCodeStreamNotFound = "STREAM_NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeUserNotFound   = "USER_NOT_FOUND"
)

// NewInvalidURLError は受理できないメディアURLのエラーを生成する。
func NewInvalidURLError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("対応していないURLです: %s", url),
		Category: "validation",
		Action:   "YouTube動画のURL（youtube.com/watch?v=… または youtu.be/…）を入力してください。",
	}
}

// NewInvalidRequestError はリクエストボディ等の形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト形式を確認してください。",
	}
}

// NewMissingOwnerIDError はownerIdパラメータ欠落のエラーを生成する。
func NewMissingOwnerIDError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingOwnerID,
		Message:  "ownerIdが指定されていません。",
		Category: "validation",
		Action:   "クエリパラメータ ownerId を指定してください。",
	}
}

// NewStreamNotFoundError は存在しないストリームを対象とした操作のエラーを生成する。
func NewStreamNotFoundError(streamID string) *APIError {
	return &APIError{
		Code:     ErrCodeStreamNotFound,
		Message:  fmt.Sprintf("指定されたストリームが見つかりません: %s", streamID),
		Category: "stream",
		Action:   "ストリームIDを確認してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
