// Package model はドメインモデルを定義する。
package model

import "time"

// Stream は投稿された1件のメディア（キューの1エントリ）を表す。
// Stream Registryが作成し、以後リードオンリー。
type Stream struct {
	ID          string
	OwnerID     string     // キュー所有者のユーザーID
	URL         string     // 投稿された元URL
	ExtractedID string     // URLから抽出した11文字の外部ID
	Type        StreamType
	Title       string
	SmallImg    string // サムネイル（小）
	BigImg      string // サムネイル（大）
	CreatedAt   time.Time
}

// StreamType はメディアソースの種類を表す。
type StreamType string

const (
	// StreamTypeYouTube はYouTube動画ソース。
	StreamTypeYouTube StreamType = "youtube"
)

// QueueEntry は再生キューの1エントリ（ストリームと得票集計）を表す。
// 保存されない派生ビューであり、Queue Viewが読み取りのたびに再計算する。
type QueueEntry struct {
	Stream
	Tally      int // 符号付き得票の合計
	ViewerVote int // 閲覧ユーザー自身の投票方向（+1/-1、未投票は0）
}
