package video

import (
	"errors"
	"testing"

	"github.com/hitoshi/jukeq/internal/model"
)

// TestExtractVideoID_ValidURLs は受理すべきURLフォーマットから
// 11文字の動画IDが抽出されることを検証する。
func TestExtractVideoID_ValidURLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"短縮URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watchURL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"wwwなし", "https://youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"スキームなし", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embedURL", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"vパス", "https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"viパス", "https://www.youtube.com/vi/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"追加クエリパラメータ付き", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"アンダースコアとハイフンを含むID", "https://youtu.be/a-b_c-d_e-f", "a-b_c-d_e-f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) returned error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
			if len(got) != 11 {
				t.Errorf("抽出されたIDの長さが11ではありません: %d", len(got))
			}
		})
	}
}

// TestExtractVideoID_InvalidURLs は受理できない入力がInvalidURLエラーに
// なることを検証する。
func TestExtractVideoID_InvalidURLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"URLではない文字列", "not a url"},
		{"空文字列", ""},
		{"別ドメイン", "https://vimeo.com/12345678901"},
		{"IDが短い", "https://youtu.be/short"},
		{"IDが長い", "https://youtu.be/dQw4w9WgXcQtoolong"},
		{"IDに不正文字", "https://youtu.be/dQw4w9WgX!Q"},
		{"チャンネルURL", "https://www.youtube.com/channel/UC123456789AB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractVideoID(tt.url)
			if err == nil {
				t.Fatalf("ExtractVideoID(%q) should return error", tt.url)
			}

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %T", err)
			}
			if apiErr.Code != model.ErrCodeInvalidURL {
				t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeInvalidURL)
			}
		})
	}
}
