package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/jukeq/internal/middleware"
	"github.com/hitoshi/jukeq/internal/model"
	"github.com/hitoshi/jukeq/internal/queue"
	"github.com/hitoshi/jukeq/internal/repository"
	"github.com/hitoshi/jukeq/internal/stream"
	"github.com/hitoshi/jukeq/internal/video"
	"github.com/hitoshi/jukeq/internal/vote"
)

// --- インメモリリポジトリ ---
// ハンドラーからリポジトリまでを実際のサービス実装で通す結合テスト。
// PostgreSQLの代わりにメモリ上で同じ意味論を再現する。

type memStreamRepo struct {
	mu      sync.Mutex
	streams map[string]*model.Stream
	votes   *memVoteRepo
}

func newMemStreamRepo(votes *memVoteRepo) *memStreamRepo {
	return &memStreamRepo{streams: make(map[string]*model.Stream), votes: votes}
}

func (r *memStreamRepo) Create(ctx context.Context, s *model.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.streams[s.ID] = &cp
	return nil
}

func (r *memStreamRepo) FindByID(ctx context.Context, id string) (*model.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memStreamRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Stream
	for _, s := range r.streams {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memStreamRepo) ListQueueByOwner(ctx context.Context, ownerID, viewerID string) ([]model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.QueueEntry
	for _, s := range r.streams {
		if s.OwnerID != ownerID {
			continue
		}
		entry := model.QueueEntry{Stream: *s}
		for _, v := range r.votes.byStream(s.ID) {
			entry.Tally += int(v.Direction)
			if v.UserID == viewerID {
				entry.ViewerVote = int(v.Direction)
			}
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tally != out[j].Tally {
			return out[i].Tally > out[j].Tally
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memVoteRepo struct {
	mu    sync.Mutex
	votes map[string]*model.Vote // key: userID + "|" + streamID
}

func newMemVoteRepo() *memVoteRepo {
	return &memVoteRepo{votes: make(map[string]*model.Vote)}
}

func voteKey(userID, streamID string) string { return userID + "|" + streamID }

func (r *memVoteRepo) Upsert(ctx context.Context, v *model.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := voteKey(v.UserID, v.StreamID)
	if existing, ok := r.votes[key]; ok {
		existing.Direction = v.Direction
		existing.UpdatedAt = v.UpdatedAt
		return nil
	}
	cp := *v
	r.votes[key] = &cp
	return nil
}

func (r *memVoteRepo) FindByUserAndStream(ctx context.Context, userID, streamID string) (*model.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.votes[voteKey(userID, streamID)]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *memVoteRepo) Delete(ctx context.Context, userID, streamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.votes, voteKey(userID, streamID))
	return nil
}

func (r *memVoteRepo) byStream(streamID string) []*model.Vote {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Vote
	for _, v := range r.votes {
		if v.StreamID == streamID {
			out = append(out, v)
		}
	}
	return out
}

// memSessionFinder は固定セッションを解決するSessionFinder。
type memSessionFinder struct {
	sessions map[string]string // sessionID -> userID
}

func (f *memSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	userID, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

// stubLookup はネットワークに出ないメタデータルックアップ。
type stubLookup struct{}

func (stubLookup) Lookup(ctx context.Context, videoID string) (*video.Metadata, error) {
	return &video.Metadata{
		Title:    "動画 " + videoID,
		SmallImg: fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", videoID),
		BigImg:   fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID),
	}, nil
}

var (
	_ repository.StreamRepository = (*memStreamRepo)(nil)
	_ repository.VoteRepository   = (*memVoteRepo)(nil)
	_ video.MetadataLookup        = stubLookup{}
)

// --- テストハーネス ---

type integrationEnv struct {
	router   http.Handler
	sessions map[string]string
	votes    *memVoteRepo
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	voteRepo := newMemVoteRepo()
	streamRepo := newMemStreamRepo(voteRepo)

	streamSvc := stream.NewService(streamRepo, stubLookup{}, nil)
	voteSvc := vote.NewService(voteRepo, streamRepo, nil)
	queueSvc := queue.NewService(streamRepo)

	sessions := map[string]string{
		"session-alice": "user-alice",
		"session-bob":   "user-bob",
		"session-carol": "user-carol",
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		SessionFinder:     &memSessionFinder{sessions: sessions},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		AuthService:       &mockAuthService{},
		AuthConfig:        AuthHandlerConfig{BaseURL: "http://localhost:3000"},
		StreamService:     streamSvc,
		VoteService:       voteSvc,
		QueueService:      queueSvc,
	})

	return &integrationEnv{router: router, sessions: sessions, votes: voteRepo}
}

func (e *integrationEnv) do(t *testing.T, sessionID, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *integrationEnv) submit(t *testing.T, sessionID, ownerID, url string) streamResponse {
	t.Helper()
	body := fmt.Sprintf(`{"url":%q,"ownerId":%q}`, url, ownerID)
	w := e.do(t, sessionID, http.MethodPost, "/api/streams", body)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp streamResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}
	return resp
}

func (e *integrationEnv) queueFor(t *testing.T, sessionID, ownerID string) []queueEntryResponse {
	t.Helper()
	w := e.do(t, sessionID, http.MethodGet, "/api/queue?ownerId="+ownerID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("queue status = %d, body = %s", w.Code, w.Body.String())
	}
	var entries []queueEntryResponse
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("failed to decode queue response: %v", err)
	}
	return entries
}

// --- 結合テスト ---

// TestIntegration_SubmitVoteRetractLifecycle は投稿→賛成→再賛成（no-op）→
// 反転→取り消しのライフサイクル全体を検証する。
func TestIntegration_SubmitVoteRetractLifecycle(t *testing.T) {
	env := newIntegrationEnv(t)

	// aliceが自分のキューに動画を投稿
	s := env.submit(t, "session-alice", "user-alice", "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if s.ExtractedID != "dQw4w9WgXcQ" {
		t.Fatalf("extractedId = %q, want %q", s.ExtractedID, "dQw4w9WgXcQ")
	}

	voteBody := fmt.Sprintf(`{"streamId":%q}`, s.ID)

	// bobが賛成票
	if w := env.do(t, "session-bob", http.MethodPost, "/api/votes/up", voteBody); w.Code != http.StatusOK {
		t.Fatalf("up status = %d", w.Code)
	}
	entries := env.queueFor(t, "session-bob", "user-alice")
	if entries[0].Tally != 1 {
		t.Errorf("tally after up = %d, want 1", entries[0].Tally)
	}
	if entries[0].ViewerVote != 1 {
		t.Errorf("viewerVote after up = %d, want 1", entries[0].ViewerVote)
	}

	// 同方向の再投票はno-op（tallyは変わらない）
	if w := env.do(t, "session-bob", http.MethodPost, "/api/votes/up", voteBody); w.Code != http.StatusOK {
		t.Fatalf("repeat up status = %d", w.Code)
	}
	entries = env.queueFor(t, "session-bob", "user-alice")
	if entries[0].Tally != 1 {
		t.Errorf("tally after repeat up = %d, want 1", entries[0].Tally)
	}

	// 反対方向への反転はその場で上書き（+1 -> -1、変化は-2）
	if w := env.do(t, "session-bob", http.MethodPost, "/api/votes/down", voteBody); w.Code != http.StatusOK {
		t.Fatalf("down status = %d", w.Code)
	}
	entries = env.queueFor(t, "session-bob", "user-alice")
	if entries[0].Tally != -1 {
		t.Errorf("tally after flip = %d, want -1", entries[0].Tally)
	}
	if entries[0].ViewerVote != -1 {
		t.Errorf("viewerVote after flip = %d, want -1", entries[0].ViewerVote)
	}

	// 取り消しでtallyは0に戻る
	if w := env.do(t, "session-bob", http.MethodDelete, "/api/votes", voteBody); w.Code != http.StatusOK {
		t.Fatalf("retract status = %d", w.Code)
	}
	entries = env.queueFor(t, "session-bob", "user-alice")
	if entries[0].Tally != 0 {
		t.Errorf("tally after retract = %d, want 0", entries[0].Tally)
	}
	if entries[0].ViewerVote != 0 {
		t.Errorf("viewerVote after retract = %d, want 0", entries[0].ViewerVote)
	}

	// 取り消しは冪等
	if w := env.do(t, "session-bob", http.MethodDelete, "/api/votes", voteBody); w.Code != http.StatusOK {
		t.Fatalf("repeat retract status = %d", w.Code)
	}
}

// TestIntegration_QueueOrdering は複数ストリーム・複数ユーザーの投票で
// キューがtally降順、同値は投稿順で並ぶことを検証する。
func TestIntegration_QueueOrdering(t *testing.T) {
	env := newIntegrationEnv(t)

	first := env.submit(t, "session-alice", "user-alice", "https://youtu.be/aaaaaaaaaaa")
	second := env.submit(t, "session-alice", "user-alice", "https://youtu.be/bbbbbbbbbbb")
	third := env.submit(t, "session-alice", "user-alice", "https://youtu.be/ccccccccccc")

	// secondに2票、thirdに1票、firstに反対1票
	secondBody := fmt.Sprintf(`{"streamId":%q}`, second.ID)
	thirdBody := fmt.Sprintf(`{"streamId":%q}`, third.ID)
	firstBody := fmt.Sprintf(`{"streamId":%q}`, first.ID)

	env.do(t, "session-bob", http.MethodPost, "/api/votes/up", secondBody)
	env.do(t, "session-carol", http.MethodPost, "/api/votes/up", secondBody)
	env.do(t, "session-bob", http.MethodPost, "/api/votes/up", thirdBody)
	env.do(t, "session-carol", http.MethodPost, "/api/votes/down", firstBody)

	entries := env.queueFor(t, "session-alice", "user-alice")
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want 3", len(entries))
	}

	wantOrder := []string{second.ID, third.ID, first.ID}
	for i, want := range wantOrder {
		if entries[i].ID != want {
			t.Errorf("position %d = %q, want %q", i, entries[i].ID, want)
		}
	}
	if entries[0].Tally != 2 || entries[1].Tally != 1 || entries[2].Tally != -1 {
		t.Errorf("tallies = [%d, %d, %d], want [2, 1, -1]",
			entries[0].Tally, entries[1].Tally, entries[2].Tally)
	}
}

// TestIntegration_TieBreakBySubmissionOrder は同tallyのストリームが
// 投稿順で並ぶことを検証する。
func TestIntegration_TieBreakBySubmissionOrder(t *testing.T) {
	env := newIntegrationEnv(t)

	first := env.submit(t, "session-alice", "user-alice", "https://youtu.be/aaaaaaaaaaa")
	second := env.submit(t, "session-alice", "user-alice", "https://youtu.be/bbbbbbbbbbb")

	entries := env.queueFor(t, "session-alice", "user-alice")
	if len(entries) != 2 {
		t.Fatalf("entry count = %d, want 2", len(entries))
	}
	if entries[0].ID != first.ID || entries[1].ID != second.ID {
		t.Errorf("order = [%q, %q], want [%q, %q]",
			entries[0].ID, entries[1].ID, first.ID, second.ID)
	}
}

// TestIntegration_UnauthenticatedRequestsRejected は未認証リクエストが
// セッションミドルウェアで遮断されることを検証する。
func TestIntegration_UnauthenticatedRequestsRejected(t *testing.T) {
	env := newIntegrationEnv(t)

	targets := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/streams", `{"url":"https://youtu.be/dQw4w9WgXcQ"}`},
		{http.MethodGet, "/api/streams?ownerId=user-alice", ""},
		{http.MethodPost, "/api/votes/up", `{"streamId":"x"}`},
		{http.MethodPost, "/api/votes/down", `{"streamId":"x"}`},
		{http.MethodDelete, "/api/votes", `{"streamId":"x"}`},
		{http.MethodGet, "/api/queue?ownerId=user-alice", ""},
	}

	for _, tc := range targets {
		w := env.do(t, "", tc.method, tc.path, tc.body)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s status = %d, want %d", tc.method, tc.path, w.Code, http.StatusForbidden)
		}
	}
}

// TestIntegration_VoteOnMissingStream_Returns404 は存在しないストリームへの
// 投票が404になることを検証する。
func TestIntegration_VoteOnMissingStream_Returns404(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, "session-bob", http.MethodPost, "/api/votes/up", `{"streamId":"no-such-stream"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestIntegration_InvalidURLRejected は受理できないURLの投稿が400になることを検証する。
func TestIntegration_InvalidURLRejected(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, "session-alice", http.MethodPost, "/api/streams",
		`{"url":"https://vimeo.com/12345"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if body.Code != model.ErrCodeInvalidURL {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeInvalidURL)
	}
}

// TestIntegration_PerUserVoteIsolation は各ユーザーが独立に1票を持つことを検証する。
func TestIntegration_PerUserVoteIsolation(t *testing.T) {
	env := newIntegrationEnv(t)

	s := env.submit(t, "session-alice", "user-alice", "https://youtu.be/dQw4w9WgXcQ")
	voteBody := fmt.Sprintf(`{"streamId":%q}`, s.ID)

	env.do(t, "session-bob", http.MethodPost, "/api/votes/up", voteBody)
	env.do(t, "session-carol", http.MethodPost, "/api/votes/up", voteBody)

	// bobから見るとviewerVote=1、合計は2
	entries := env.queueFor(t, "session-bob", "user-alice")
	if entries[0].Tally != 2 {
		t.Errorf("tally = %d, want 2", entries[0].Tally)
	}
	if entries[0].ViewerVote != 1 {
		t.Errorf("bob viewerVote = %d, want 1", entries[0].ViewerVote)
	}

	// aliceは未投票なのでviewerVote=0
	entries = env.queueFor(t, "session-alice", "user-alice")
	if entries[0].ViewerVote != 0 {
		t.Errorf("alice viewerVote = %d, want 0", entries[0].ViewerVote)
	}

	// bobの取り消しはcarolの票に影響しない
	env.do(t, "session-bob", http.MethodDelete, "/api/votes", voteBody)
	entries = env.queueFor(t, "session-carol", "user-alice")
	if entries[0].Tally != 1 {
		t.Errorf("tally after bob retract = %d, want 1", entries[0].Tally)
	}
	if entries[0].ViewerVote != 1 {
		t.Errorf("carol viewerVote = %d, want 1", entries[0].ViewerVote)
	}
}

// TestIntegration_ConcurrentCastsSamePair は同一の(ユーザー, ストリーム)ペアへ
// 並行してcastしても票が1行に保たれることを検証する。
// 行が重複したり更新が消失したりしてはならない。
func TestIntegration_ConcurrentCastsSamePair(t *testing.T) {
	env := newIntegrationEnv(t)

	s := env.submit(t, "session-alice", "user-alice", "https://youtu.be/dQw4w9WgXcQ")
	voteBody := fmt.Sprintf(`{"streamId":%q}`, s.ID)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		path := "/api/votes/up"
		if i%2 == 1 {
			path = "/api/votes/down"
		}
		go func(path string) {
			defer wg.Done()
			w := env.do(t, "session-bob", http.MethodPost, path, voteBody)
			if w.Code != http.StatusOK {
				t.Errorf("POST %s status = %d, want %d", path, w.Code, http.StatusOK)
			}
		}(path)
	}
	wg.Wait()

	// 50回のcast後も票の行は厳密に1つ
	rows := env.votes.byStream(s.ID)
	if len(rows) != 1 {
		t.Fatalf("vote rows = %d, want 1", len(rows))
	}
	final := rows[0]
	if final.UserID != "user-bob" {
		t.Errorf("vote userID = %q, want %q", final.UserID, "user-bob")
	}
	if final.Direction != model.VoteUp && final.Direction != model.VoteDown {
		t.Errorf("final direction = %d, want +1 or -1", final.Direction)
	}

	// キューの集計とviewerVoteは最終的な票と一致する
	entries := env.queueFor(t, "session-bob", "user-alice")
	if len(entries) != 1 {
		t.Fatalf("queue entries = %d, want 1", len(entries))
	}
	if entries[0].Tally != int(final.Direction) {
		t.Errorf("tally = %d, want %d", entries[0].Tally, int(final.Direction))
	}
	if entries[0].ViewerVote != int(final.Direction) {
		t.Errorf("viewerVote = %d, want %d", entries[0].ViewerVote, int(final.Direction))
	}
}
