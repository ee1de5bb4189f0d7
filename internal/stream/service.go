// Package stream はストリーム登録・一覧のドメインロジックを提供する。
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/jukeq/internal/model"
	"github.com/hitoshi/jukeq/internal/repository"
	"github.com/hitoshi/jukeq/internal/video"
)

// MetricsRecorder はストリーム登録に関するメトリクス収集のインターフェース。
// nil実装を許容するため、Serviceはnilチェックの上で呼び出す。
type MetricsRecorder interface {
	RecordStreamSubmitted()
	RecordLookupFailure()
}

// Service はStream Registryのサービス層。
// URL検証、外部ID抽出、メタデータ解決（フォールバック込み）、永続化を行う。
type Service struct {
	streamRepo repository.StreamRepository
	lookup     video.MetadataLookup
	metrics    MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(streamRepo repository.StreamRepository, lookup video.MetadataLookup, metrics MetricsRecorder) *Service {
	return &Service{
		streamRepo: streamRepo,
		lookup:     lookup,
		metrics:    metrics,
	}
}

// Submit はURLを検証してストリームを登録する。
// メタデータのルックアップ失敗は登録を妨げない: 動画IDのみから導出した
// プレースホルダーにフォールバックする。行はフォールバック込みで完全に
// 構築してから挿入するため、半端な行が残ることはない。
func (s *Service) Submit(ctx context.Context, ownerID, rawURL string) (*model.Stream, error) {
	if ownerID == "" {
		return nil, model.NewMissingOwnerIDError()
	}

	videoID, err := video.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	md, err := s.lookup.Lookup(ctx, videoID)
	if err != nil {
		// ルックアップ失敗はローカルで回復する。呼び出し元には伝播しない。
		slog.Warn("metadata lookup failed, using placeholders",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordLookupFailure()
		}
		md = video.PlaceholderMetadata(videoID)
	}

	stream := &model.Stream{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		URL:         rawURL,
		ExtractedID: videoID,
		Type:        model.StreamTypeYouTube,
		Title:       md.Title,
		SmallImg:    md.SmallImg,
		BigImg:      md.BigImg,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.streamRepo.Create(ctx, stream); err != nil {
		return nil, fmt.Errorf("ストリームの保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordStreamSubmitted()
	}

	slog.Info("stream submitted",
		slog.String("stream_id", stream.ID),
		slog.String("owner_id", ownerID),
		slog.String("video_id", videoID),
	)

	return stream, nil
}

// List は所有者のストリーム一覧を返す。順序はこの層では保証しない。
// ownerIDの欠落はクライアントエラーとして扱う。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Stream, error) {
	if ownerID == "" {
		return nil, model.NewMissingOwnerIDError()
	}

	streams, err := s.streamRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ストリーム一覧の取得に失敗しました: %w", err)
	}

	return streams, nil
}
