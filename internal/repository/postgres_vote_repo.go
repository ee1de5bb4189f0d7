package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jukeq/internal/model"
)

// PostgresVoteRepo はPostgreSQLを使用した投票リポジトリ。
type PostgresVoteRepo struct {
	db *sql.DB
}

// NewPostgresVoteRepo はPostgresVoteRepoを生成する。
func NewPostgresVoteRepo(db *sql.DB) *PostgresVoteRepo {
	return &PostgresVoteRepo{db: db}
}

// Upsert は投票を冪等にUPSERTする。
// UNIQUE(user_id, stream_id)制約のINSERT ON CONFLICT DO UPDATEを使用する。
// read-then-writeではなく単一の条件付き書き込みであるため、同一ペアへの
// 同時castでも2行になったり更新が失われたりしない。
// 方向反転はDELETE+INSERTではなくdirection列のその場更新となる。
func (r *PostgresVoteRepo) Upsert(ctx context.Context, vote *model.Vote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (id, user_id, stream_id, direction, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, stream_id) DO UPDATE SET
		     direction = EXCLUDED.direction,
		     updated_at = EXCLUDED.updated_at`,
		vote.ID, vote.UserID, vote.StreamID, int(vote.Direction),
		vote.CreatedAt, vote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}
	return nil
}

// FindByUserAndStream はユーザーIDとストリームIDで投票を取得する。
// 見つからない場合はnilを返す。
func (r *PostgresVoteRepo) FindByUserAndStream(ctx context.Context, userID, streamID string) (*model.Vote, error) {
	vote := &model.Vote{}
	var direction int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, stream_id, direction, created_at, updated_at
		 FROM votes WHERE user_id = $1 AND stream_id = $2`,
		userID, streamID,
	).Scan(&vote.ID, &vote.UserID, &vote.StreamID, &direction, &vote.CreatedAt, &vote.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vote: %w", err)
	}

	vote.Direction = model.VoteDirection(direction)
	return vote, nil
}

// Delete はユーザーのストリームに対する投票を削除する。
// 対象行がなくてもエラーにならない（冪等なretract）。
func (r *PostgresVoteRepo) Delete(ctx context.Context, userID, streamID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM votes WHERE user_id = $1 AND stream_id = $2`,
		userID, streamID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

// compile-time interface check
var _ VoteRepository = (*PostgresVoteRepo)(nil)
