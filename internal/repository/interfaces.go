// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/jukeq/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はemailでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateIfAbsent はemailに対応するユーザーが存在しなければ作成し、
	// 永続化済みのユーザー（既存または新規）を返す。
	// 同一emailの同時サインインはUNIQUE(email)制約のON CONFLICTで
	// 先勝ちに収束し、2行作られることはない。
	CreateIfAbsent(ctx context.Context, user *model.User) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	// クリーンアップワーカーが日次で呼び出す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// StreamRepository はストリームデータの永続化インターフェース。
type StreamRepository interface {
	// Create はストリームを作成する。
	Create(ctx context.Context, stream *model.Stream) error

	// FindByID は指定IDのストリームを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Stream, error)

	// ListByOwner は所有者のストリーム一覧を返す。この層では順序を保証しない
	// （並べ替えはQueue Viewの責務）。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Stream, error)

	// ListQueueByOwner は所有者のストリーム一覧を得票集計付きで返す。
	// tallyは符号付き投票の合計、viewerVoteはviewerID自身の投票方向。
	// tally降順、同値は投稿時刻昇順・ID昇順で返す。
	ListQueueByOwner(ctx context.Context, ownerID, viewerID string) ([]model.QueueEntry, error)
}

// VoteRepository は投票レジャーの永続化インターフェース。
type VoteRepository interface {
	// Upsert は投票を冪等にUPSERTする。
	// UNIQUE(user_id, stream_id)制約のINSERT ON CONFLICT DO UPDATEにより、
	// 同一ペアへの同時castも単一の整合した行に直列化される。
	// 既存行と同方向なら実質no-op、逆方向ならその場で方向を反転する。
	Upsert(ctx context.Context, vote *model.Vote) error

	// FindByUserAndStream はユーザーIDとストリームIDで投票を取得する。
	// 見つからない場合はnilを返す。
	FindByUserAndStream(ctx context.Context, userID, streamID string) (*model.Vote, error)

	// Delete はユーザーのストリームに対する投票を削除する。
	// 投票が存在しない場合もエラーにならない（冪等）。
	Delete(ctx context.Context, userID, streamID string) error
}
