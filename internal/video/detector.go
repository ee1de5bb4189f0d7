// Package video はYouTube動画URLの検証とメタデータ解決を提供する。
package video

import (
	"regexp"

	"github.com/hitoshi/jukeq/internal/model"
)

// watchPattern は受理するYouTube動画URLのパターン。
// 第1キャプチャグループが11文字の動画IDとなる。
// youtu.be/<id>、youtube.com/watch?v=<id>、youtube.com/(v|vi|embed)/<id> を受理する。
var watchPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:youtu\.be/|youtube\.com/(?:watch\?v=|(?:v|embed|vi)/))([A-Za-z0-9_-]{11})(?:\S*)$`)

// ExtractVideoID はURLから11文字の動画IDを抽出する。
// パターンに一致しない入力はInvalidURLエラーとなり、永続化は行われない。
func ExtractVideoID(rawURL string) (string, error) {
	m := watchPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", model.NewInvalidURLError(rawURL)
	}
	return m[1], nil
}
