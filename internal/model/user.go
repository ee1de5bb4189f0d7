// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 外部IdPによる初回サインイン時に遅延作成され、emailで一意に識別される。
// 作成後はプロバイダーメタデータ以外イミュータブルとして扱う。
type User struct {
	ID        string
	Email     string
	Provider  string // "google" 等のIdPラベル
	CreatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
