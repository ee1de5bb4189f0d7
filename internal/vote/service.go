// Package vote は投票レジャーのドメインロジックを提供する。
package vote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/jukeq/internal/model"
	"github.com/hitoshi/jukeq/internal/repository"
)

// MetricsRecorder は投票に関するメトリクス収集のインターフェース。
type MetricsRecorder interface {
	RecordVoteCast(direction model.VoteDirection)
	RecordVoteRetracted()
}

// Service はVote Ledgerのサービス層。
// (userID, streamID) の組につき最大1票という不変条件はストレージ層の
// 条件付き書き込み（ON CONFLICT）で守られ、この層ではread-then-writeを
// 行わない。
type Service struct {
	voteRepo   repository.VoteRepository
	streamRepo repository.StreamRepository
	metrics    MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(voteRepo repository.VoteRepository, streamRepo repository.StreamRepository, metrics MetricsRecorder) *Service {
	return &Service{
		voteRepo:   voteRepo,
		streamRepo: streamRepo,
		metrics:    metrics,
	}
}

// Cast は投票を登録する。
// 既存の投票がなければ作成、同方向なら変化なし（冪等）、逆方向なら
// その場で反転する。反転時のtallyの変化は±1ではなく±2になる。
// 存在しないストリームへのcastはStreamNotFoundエラーとなる。
func (s *Service) Cast(ctx context.Context, userID, streamID string, direction model.VoteDirection) error {
	if userID == "" {
		return model.NewUnauthorizedError()
	}
	if streamID == "" {
		return model.NewInvalidRequestError("streamIdが空です")
	}

	target, err := s.streamRepo.FindByID(ctx, streamID)
	if err != nil {
		return fmt.Errorf("ストリームの取得に失敗しました: %w", err)
	}
	if target == nil {
		return model.NewStreamNotFoundError(streamID)
	}

	now := time.Now().UTC()
	v := &model.Vote{
		ID:        uuid.New().String(),
		UserID:    userID,
		StreamID:  streamID,
		Direction: direction,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.voteRepo.Upsert(ctx, v); err != nil {
		return fmt.Errorf("投票の登録に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordVoteCast(direction)
	}

	slog.Info("vote cast",
		slog.String("user_id", userID),
		slog.String("stream_id", streamID),
		slog.Int("direction", int(direction)),
	)

	return nil
}

// Retract はユーザーの投票を取り消す。
// 投票が存在しない場合もエラーにならない（冪等）。
func (s *Service) Retract(ctx context.Context, userID, streamID string) error {
	if userID == "" {
		return model.NewUnauthorizedError()
	}
	if streamID == "" {
		return model.NewInvalidRequestError("streamIdが空です")
	}

	if err := s.voteRepo.Delete(ctx, userID, streamID); err != nil {
		return fmt.Errorf("投票の取り消しに失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordVoteRetracted()
	}

	slog.Info("vote retracted",
		slog.String("user_id", userID),
		slog.String("stream_id", streamID),
	)

	return nil
}
