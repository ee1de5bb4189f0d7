package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/jukeq/internal/model"
	"github.com/hitoshi/jukeq/internal/video"
)

// --- モック ---

type mockStreamRepo struct {
	createFn      func(ctx context.Context, stream *model.Stream) error
	listByOwnerFn func(ctx context.Context, ownerID string) ([]*model.Stream, error)
}

func (m *mockStreamRepo) Create(ctx context.Context, stream *model.Stream) error {
	if m.createFn != nil {
		return m.createFn(ctx, stream)
	}
	return nil
}
func (m *mockStreamRepo) FindByID(ctx context.Context, id string) (*model.Stream, error) {
	return nil, nil
}
func (m *mockStreamRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Stream, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, nil
}
func (m *mockStreamRepo) ListQueueByOwner(ctx context.Context, ownerID, viewerID string) ([]model.QueueEntry, error) {
	return nil, nil
}

type mockLookup struct {
	lookupFn func(ctx context.Context, videoID string) (*video.Metadata, error)
}

func (m *mockLookup) Lookup(ctx context.Context, videoID string) (*video.Metadata, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, videoID)
	}
	return &video.Metadata{Title: "t", SmallImg: "s", BigImg: "b"}, nil
}

type mockMetrics struct {
	submitted      int
	lookupFailures int
}

func (m *mockMetrics) RecordStreamSubmitted() { m.submitted++ }
func (m *mockMetrics) RecordLookupFailure()   { m.lookupFailures++ }

// --- テスト ---

// TestService_Submit_Success は有効なURLの投稿でストリームが作成される
// ことを検証する。
func TestService_Submit_Success(t *testing.T) {
	var created *model.Stream
	repo := &mockStreamRepo{
		createFn: func(ctx context.Context, stream *model.Stream) error {
			created = stream
			return nil
		},
	}
	lookup := &mockLookup{
		lookupFn: func(ctx context.Context, videoID string) (*video.Metadata, error) {
			if videoID != "dQw4w9WgXcQ" {
				t.Errorf("videoID = %q, want %q", videoID, "dQw4w9WgXcQ")
			}
			return &video.Metadata{
				Title:    "Never Gonna Give You Up",
				SmallImg: "small.jpg",
				BigImg:   "big.jpg",
			}, nil
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(repo, lookup, metrics)

	stream, err := svc.Submit(context.Background(), "owner-1", "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if stream.ExtractedID != "dQw4w9WgXcQ" {
		t.Errorf("ExtractedID = %q, want %q", stream.ExtractedID, "dQw4w9WgXcQ")
	}
	if stream.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %q, want %q", stream.OwnerID, "owner-1")
	}
	if stream.Type != model.StreamTypeYouTube {
		t.Errorf("Type = %q, want %q", stream.Type, model.StreamTypeYouTube)
	}
	if stream.Title != "Never Gonna Give You Up" {
		t.Errorf("Title = %q", stream.Title)
	}
	if stream.ID == "" {
		t.Error("ID should be generated")
	}
	if created == nil {
		t.Fatal("Create was not called")
	}
	if metrics.submitted != 1 {
		t.Errorf("submitted metric = %d, want 1", metrics.submitted)
	}
}

// TestService_Submit_SameURLTwice は同一URLの2回投稿で、同じExtractedIDを
// 持つ別IDのストリームが2件作られることを検証する。
func TestService_Submit_SameURLTwice(t *testing.T) {
	var created []*model.Stream
	repo := &mockStreamRepo{
		createFn: func(ctx context.Context, stream *model.Stream) error {
			created = append(created, stream)
			return nil
		},
	}

	svc := NewService(repo, &mockLookup{}, nil)

	first, err := svc.Submit(context.Background(), "owner-1", "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("1回目のSubmitに失敗: %v", err)
	}
	second, err := svc.Submit(context.Background(), "owner-1", "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("2回目のSubmitに失敗: %v", err)
	}

	if len(created) != 2 {
		t.Fatalf("created count = %d, want 2", len(created))
	}
	if first.ExtractedID != second.ExtractedID {
		t.Error("ExtractedIDは同一であるべき")
	}
	if first.ID == second.ID {
		t.Error("ストリームIDは別であるべき")
	}
}

// TestService_Submit_InvalidURL は不正なURLがInvalidURLエラーとなり、
// 永続化もルックアップも行われないことを検証する。
func TestService_Submit_InvalidURL(t *testing.T) {
	repo := &mockStreamRepo{
		createFn: func(ctx context.Context, stream *model.Stream) error {
			t.Error("不正なURLでCreateが呼ばれました")
			return nil
		},
	}
	lookup := &mockLookup{
		lookupFn: func(ctx context.Context, videoID string) (*video.Metadata, error) {
			t.Error("不正なURLでLookupが呼ばれました")
			return nil, nil
		},
	}

	svc := NewService(repo, lookup, nil)

	_, err := svc.Submit(context.Background(), "owner-1", "not a url")
	if err == nil {
		t.Fatal("Submit should fail for invalid URL")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidURL {
		t.Errorf("expected INVALID_URL error, got %v", err)
	}
}

// TestService_Submit_LookupFailureFallsBack はルックアップ失敗時に
// プレースホルダーで登録が成功することを検証する。
func TestService_Submit_LookupFailureFallsBack(t *testing.T) {
	repo := &mockStreamRepo{}
	lookup := &mockLookup{
		lookupFn: func(ctx context.Context, videoID string) (*video.Metadata, error) {
			return nil, fmt.Errorf("lookup timed out")
		},
	}
	metrics := &mockMetrics{}

	svc := NewService(repo, lookup, metrics)

	stream, err := svc.Submit(context.Background(), "owner-1", "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ルックアップ失敗が投稿を失敗させました: %v", err)
	}

	want := video.PlaceholderMetadata("dQw4w9WgXcQ")
	if stream.Title != want.Title {
		t.Errorf("Title = %q, want placeholder %q", stream.Title, want.Title)
	}
	if stream.SmallImg != want.SmallImg {
		t.Errorf("SmallImg = %q, want placeholder %q", stream.SmallImg, want.SmallImg)
	}
	if metrics.lookupFailures != 1 {
		t.Errorf("lookupFailures metric = %d, want 1", metrics.lookupFailures)
	}
}

// TestService_Submit_MissingOwner は所有者未指定がエラーになることを検証する。
func TestService_Submit_MissingOwner(t *testing.T) {
	svc := NewService(&mockStreamRepo{}, &mockLookup{}, nil)

	_, err := svc.Submit(context.Background(), "", "https://youtu.be/dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("Submit should fail without owner")
	}
}

// TestService_Submit_PersistenceError は永続化エラーが伝播することを検証する。
func TestService_Submit_PersistenceError(t *testing.T) {
	repo := &mockStreamRepo{
		createFn: func(ctx context.Context, stream *model.Stream) error {
			return fmt.Errorf("db down")
		},
	}

	svc := NewService(repo, &mockLookup{}, nil)

	_, err := svc.Submit(context.Background(), "owner-1", "https://youtu.be/dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("Submit should propagate persistence error")
	}
}

// TestService_List はストリーム一覧が返ることを検証する。
func TestService_List(t *testing.T) {
	repo := &mockStreamRepo{
		listByOwnerFn: func(ctx context.Context, ownerID string) ([]*model.Stream, error) {
			if ownerID != "owner-1" {
				t.Errorf("ownerID = %q, want %q", ownerID, "owner-1")
			}
			return []*model.Stream{{ID: "s1"}, {ID: "s2"}}, nil
		},
	}

	svc := NewService(repo, &mockLookup{}, nil)

	streams, err := svc.List(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(streams) != 2 {
		t.Errorf("len(streams) = %d, want 2", len(streams))
	}
}

// TestService_List_MissingOwner はownerID欠落がクライアントエラーに
// なることを検証する。
func TestService_List_MissingOwner(t *testing.T) {
	svc := NewService(&mockStreamRepo{}, &mockLookup{}, nil)

	_, err := svc.List(context.Background(), "")
	if err == nil {
		t.Fatal("List should fail without ownerID")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMissingOwnerID {
		t.Errorf("expected MISSING_OWNER_ID error, got %v", err)
	}
}
