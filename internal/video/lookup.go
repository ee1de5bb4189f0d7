package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/microcosm-cc/bluemonday"
)

const (
	defaultOEmbedURL = "https://www.youtube.com/oembed"

	// defaultMaxBodySize はoEmbedレスポンスの最大読み取りサイズのデフォルト値。
	defaultMaxBodySize = 1 << 20
)

// Metadata は動画の表示メタデータを表す。
type Metadata struct {
	Title    string
	SmallImg string
	BigImg   string
}

// MetadataLookup は動画IDからメタデータを解決するインターフェース。
// 失敗は許容される外部コラボレータであり、呼び出し側はPlaceholderMetadataに
// フォールバックすること。
type MetadataLookup interface {
	Lookup(ctx context.Context, videoID string) (*Metadata, error)
}

// OEmbedClient はYouTubeのoEmbedエンドポイントでメタデータを解決するクライアント。
// APIキーを必要としない。
type OEmbedClient struct {
	endpoint    string
	client      *http.Client
	policy      *bluemonday.Policy
	maxBodySize int64
}

// OEmbedConfig はOEmbedClientの設定。
type OEmbedConfig struct {
	Timeout time.Duration

	// MaxBodySize はレスポンスボディの最大読み取りサイズ（バイト）。
	// 0の場合はデフォルト（1MiB）を使用する。
	MaxBodySize int64

	// テスト用にオーバーライド可能なURL
	Endpoint string
	// テスト用にオーバーライド可能なHTTPクライアント。
	// 未指定の場合はsafeurlによるSSRF防止付きクライアントを使用する。
	HTTPClient *http.Client
}

// NewOEmbedClient はOEmbedClientを生成する。
// 外部への取得はsafeurlのクライアントで行い、プライベートIPや
// ループバックへのリクエストをDialerレベルでブロックする。
func NewOEmbedClient(config OEmbedConfig) *OEmbedClient {
	if config.Endpoint == "" {
		config.Endpoint = defaultOEmbedURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxBodySize == 0 {
		config.MaxBodySize = defaultMaxBodySize
	}
	client := config.HTTPClient
	if client == nil {
		safeConfig := safeurl.GetConfigBuilder().
			SetTimeout(config.Timeout).
			SetAllowedSchemes("http", "https").
			SetAllowedPorts(80, 443).
			Build()
		client = safeurl.Client(safeConfig).Client
	}
	return &OEmbedClient{
		endpoint:    config.Endpoint,
		client:      client,
		maxBodySize: config.MaxBodySize,
		// タイトルは外部入力なのでHTMLを全て除去してから保存する
		policy: bluemonday.StrictPolicy(),
	}
}

// oembedResponse はoEmbedエンドポイントのレスポンス。
type oembedResponse struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Lookup は動画IDからメタデータを解決する。
// oEmbedが返すサムネイルを小画像に、動画IDから構築したURLを大画像に使用する。
func (c *OEmbedClient) Lookup(ctx context.Context, videoID string) (*Metadata, error) {
	params := url.Values{
		"url":    {"https://www.youtube.com/watch?v=" + videoID},
		"format": {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create oembed request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oembed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read oembed response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed lookup failed with status %d", resp.StatusCode)
	}

	var oembed oembedResponse
	if err := json.Unmarshal(body, &oembed); err != nil {
		return nil, fmt.Errorf("failed to parse oembed response: %w", err)
	}

	if oembed.Title == "" {
		return nil, fmt.Errorf("empty title in oembed response")
	}

	md := &Metadata{
		Title:    c.policy.Sanitize(oembed.Title),
		SmallImg: oembed.ThumbnailURL,
		BigImg:   bigThumbnailURL(videoID),
	}
	if md.SmallImg == "" {
		md.SmallImg = smallThumbnailURL(videoID)
	}
	return md, nil
}

// PlaceholderMetadata は動画IDのみから決定的に導出したメタデータを返す。
// 外部ルックアップが失敗した場合のフォールバックで、追加のネットワーク
// アクセスは行わない。
func PlaceholderMetadata(videoID string) *Metadata {
	return &Metadata{
		Title:    fmt.Sprintf("YouTube video %s", videoID),
		SmallImg: smallThumbnailURL(videoID),
		BigImg:   bigThumbnailURL(videoID),
	}
}

// smallThumbnailURL は動画IDから中解像度サムネイルURLを構築する。
func smallThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", videoID)
}

// bigThumbnailURL は動画IDから最大解像度サムネイルURLを構築する。
func bigThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

// compile-time interface check
var _ MetadataLookup = (*OEmbedClient)(nil)
