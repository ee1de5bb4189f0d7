// Package queue は再生キューの派生ビューを提供する。
package queue

import (
	"context"
	"fmt"
	"sort"

	"github.com/hitoshi/jukeq/internal/model"
	"github.com/hitoshi/jukeq/internal/repository"
)

// Service はQueue Viewのサービス層。
// キューは保存されず、呼び出しのたびにストリームと投票レジャーから
// 全再計算される。増分更新やキャッシュは持たない。
type Service struct {
	streamRepo repository.StreamRepository
}

// NewService はServiceを生成する。
func NewService(streamRepo repository.StreamRepository) *Service {
	return &Service{streamRepo: streamRepo}
}

// QueueFor は所有者のキューをtally降順で返す。
// 同値の場合は投稿順（投稿時刻昇順、次にID昇順）で安定に並ぶ。
// viewerIDは各エントリのViewerVote（閲覧ユーザー自身の投票方向）の
// 解決にのみ使用する。
// 書き込みは行わず、コミット済みの状態をそのまま反映する。
func (s *Service) QueueFor(ctx context.Context, ownerID, viewerID string) ([]model.QueueEntry, error) {
	if ownerID == "" {
		return nil, model.NewMissingOwnerIDError()
	}

	entries, err := s.streamRepo.ListQueueByOwner(ctx, ownerID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("キューの取得に失敗しました: %w", err)
	}

	// リポジトリ実装に順序を依存させず、ここでも不変条件を強制する。
	sortEntries(entries)

	return entries, nil
}

// sortEntries はエントリをtally降順・投稿時刻昇順・ID昇順で並べ替える。
func sortEntries(entries []model.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Tally != entries[j].Tally {
			return entries[i].Tally > entries[j].Tally
		}
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}
