package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/jukeq/internal/model"
)

// foreignKeyViolation はPostgreSQLの外部キー制約違反のエラーコード。
const foreignKeyViolation = pq.ErrorCode("23503")

// PostgresStreamRepo はPostgreSQLを使用したストリームリポジトリ。
type PostgresStreamRepo struct {
	db *sql.DB
}

// NewPostgresStreamRepo はPostgresStreamRepoを生成する。
func NewPostgresStreamRepo(db *sql.DB) *PostgresStreamRepo {
	return &PostgresStreamRepo{db: db}
}

// Create はストリームを作成する。
// メタデータ解決済み（フォールバック込み）の完全な行のみ挿入する。
// 途中失敗で半端な行が残ることはない。
func (r *PostgresStreamRepo) Create(ctx context.Context, stream *model.Stream) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO streams (id, owner_id, url, extracted_id, type, title, small_img, big_img, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		stream.ID, stream.OwnerID, stream.URL, stream.ExtractedID,
		string(stream.Type), stream.Title, stream.SmallImg, stream.BigImg,
		stream.CreatedAt,
	)
	if err != nil {
		return translateStreamInsertError(err)
	}
	return nil
}

// translateStreamInsertError はINSERT失敗をドメインエラーに変換する。
// owner_idの外部キー違反は存在しないユーザー宛ての投稿なので
// USER_NOT_FOUNDに変換し、それ以外はそのままラップする。
func translateStreamInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return model.NewUserNotFoundError()
	}
	return fmt.Errorf("failed to insert stream: %w", err)
}

// FindByID は指定IDのストリームを取得する。見つからない場合はnilを返す。
func (r *PostgresStreamRepo) FindByID(ctx context.Context, id string) (*model.Stream, error) {
	stream := &model.Stream{}
	var streamType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, url, extracted_id, type, title, small_img, big_img, created_at
		 FROM streams WHERE id = $1`,
		id,
	).Scan(
		&stream.ID, &stream.OwnerID, &stream.URL, &stream.ExtractedID,
		&streamType, &stream.Title, &stream.SmallImg, &stream.BigImg,
		&stream.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stream by ID: %w", err)
	}

	stream.Type = model.StreamType(streamType)
	return stream, nil
}

// ListByOwner は所有者のストリーム一覧を返す。
func (r *PostgresStreamRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Stream, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, url, extracted_id, type, title, small_img, big_img, created_at
		 FROM streams WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	defer rows.Close()

	var streams []*model.Stream
	for rows.Next() {
		stream := &model.Stream{}
		var streamType string
		if err := rows.Scan(
			&stream.ID, &stream.OwnerID, &stream.URL, &stream.ExtractedID,
			&streamType, &stream.Title, &stream.SmallImg, &stream.BigImg,
			&stream.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stream: %w", err)
		}
		stream.Type = model.StreamType(streamType)
		streams = append(streams, stream)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate streams: %w", err)
	}

	return streams, nil
}

// ListQueueByOwner は所有者のストリーム一覧を得票集計付きで返す。
// votesテーブルをLEFT JOINして符号付き合計をtallyとして算出し、
// tally降順・投稿時刻昇順・ID昇順で返す。キャッシュは持たず毎回再計算する。
func (r *PostgresStreamRepo) ListQueueByOwner(ctx context.Context, ownerID, viewerID string) ([]model.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.owner_id, s.url, s.extracted_id, s.type, s.title, s.small_img, s.big_img, s.created_at,
		        COALESCE(SUM(v.direction), 0) AS tally,
		        COALESCE(MAX(CASE WHEN v.user_id = $2 THEN v.direction END), 0) AS viewer_vote
		 FROM streams s
		 LEFT JOIN votes v ON v.stream_id = s.id
		 WHERE s.owner_id = $1
		 GROUP BY s.id
		 ORDER BY tally DESC, s.created_at ASC, s.id ASC`,
		ownerID, viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		var entry model.QueueEntry
		var streamType string
		if err := rows.Scan(
			&entry.ID, &entry.OwnerID, &entry.URL, &entry.ExtractedID,
			&streamType, &entry.Title, &entry.SmallImg, &entry.BigImg,
			&entry.CreatedAt, &entry.Tally, &entry.ViewerVote,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entry.Type = model.StreamType(streamType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ StreamRepository = (*PostgresStreamRepo)(nil)
