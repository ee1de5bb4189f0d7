// Package model はドメインモデルを定義する。
package model

import "time"

// VoteDirection は投票の方向を表す。tally集計にそのまま加算できるよう
// +1/-1の符号付き整数として定義する。
type VoteDirection int

const (
	// VoteUp は賛成票。
	VoteUp VoteDirection = 1
	// VoteDown は反対票。
	VoteDown VoteDirection = -1
)

// Vote はユーザー1人がストリーム1件に対して持つ投票を表す。
// (UserID, StreamID) の組はレジャー全体で一意であり、
// 方向変更は行の置き換えではなくその場での更新となる。
type Vote struct {
	ID        string
	UserID    string
	StreamID  string
	Direction VoteDirection
	CreatedAt time.Time
	UpdatedAt time.Time
}
