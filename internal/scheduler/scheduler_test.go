package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reddit_bot/internal/config"
	"reddit_bot/internal/model"
	"reddit_bot/internal/reddit"
	"reddit_bot/internal/storage"
)

type fakeFetcher struct {
	posts map[string][]reddit.Post
	errs  map[string]error
}

func (f *fakeFetcher) NewPosts(_ context.Context, subreddit string, _ int) ([]reddit.Post, error) {
	if err := f.errs[subreddit]; err != nil {
		return nil, err
	}
	return f.posts[subreddit], nil
}

type sentPost struct {
	ChatID   int64
	PostID   string
	ImageURL string
}

type mockSender struct {
	mu        sync.Mutex
	sent      []sentPost
	failIDs   map[string]bool
	badChats  map[int64]bool
	entered   chan struct{}
	release   chan struct{}
	nextMsgID int
}

func (m *mockSender) VerifyChannel(chatID int64) error {
	m.mu.Lock()
	bad := m.badChats[chatID]
	m.mu.Unlock()
	if bad {
		return fmt.Errorf("chat %d not found", chatID)
	}
	return nil
}

func (m *mockSender) SendPost(chatID int64, post *reddit.Post, imageURL string) (int, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIDs[post.ID] {
		return 0, fmt.Errorf("send rejected for %s", post.ID)
	}
	m.sent = append(m.sent, sentPost{ChatID: chatID, PostID: post.ID, ImageURL: imageURL})
	m.nextMsgID++
	return m.nextMsgID, nil
}

func (m *mockSender) getSent() []sentPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]sentPost, len(m.sent))
	copy(cp, m.sent)
	return cp
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig(channels ...model.Channel) *config.Config {
	return &config.Config{
		CheckIntervalMinutes: 60,
		Blacklist:            []string{"nsfw"},
		Channels:             channels,
	}
}

func TestCycleForwardsQualifyingPosts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fetcher := &fakeFetcher{posts: map[string][]reddit.Post{
		"test": {
			{ID: "a", Title: "cool NSFW thing", Score: 50},
			{ID: "b", Title: "cool thing", Score: 5},
			{ID: "c", Title: "great thing", Score: 20},
		},
	}}
	sender := &mockSender{}
	cfg := testConfig(model.Channel{ChatID: 123, Subreddits: []string{"test"}, UpvoteThreshold: 10})

	s := New(store, fetcher, sender, cfg, discardLogger())
	if err := s.RunNow(ctx); err != nil {
		t.Fatalf("run now: %v", err)
	}

	want := []sentPost{{ChatID: 123, PostID: "c"}}
	if diff := cmp.Diff(want, sender.getSent()); diff != "" {
		t.Errorf("sent posts mismatch (-want +got):\n%s", diff)
	}

	if !store.Contains("c") {
		t.Error("forwarded post not committed")
	}
	if store.Contains("a") || store.Contains("b") {
		t.Error("dropped posts must not be committed")
	}
}

func TestCycleResolvesPreviewImage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fetcher := &fakeFetcher{posts: map[string][]reddit.Post{
		"pics": {
			{ID: "img", Title: "a picture", Score: 5, URL: "http://x/pic.jpg"},
			{
				ID: "vid", Title: "a clip", Score: 5, IsVideo: true,
				Preview: &reddit.Preview{Images: []reddit.PreviewImage{{Source: reddit.ImageSource{URL: "http://x/thumb.jpg"}}}},
			},
		},
	}}
	sender := &mockSender{}
	cfg := testConfig(model.Channel{ChatID: 1, Subreddits: []string{"pics"}})

	s := New(store, fetcher, sender, cfg, discardLogger())
	if err := s.RunNow(ctx); err != nil {
		t.Fatalf("run now: %v", err)
	}

	want := []sentPost{
		{ChatID: 1, PostID: "img", ImageURL: "http://x/pic.jpg"},
		{ChatID: 1, PostID: "vid", ImageURL: ""},
	}
	if diff := cmp.Diff(want, sender.getSent()); diff != "" {
		t.Errorf("sent posts mismatch (-want +got):\n%s", diff)
	}
}

func TestSeenPostsNotResent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fetcher := &fakeFetcher{posts: map[string][]reddit.Post{
		"test": {{ID: "x", Title: "thing", Score: 1}},
	}}
	sender := &mockSender{}
	cfg := testConfig(model.Channel{ChatID: 1, Subreddits: []string{"test"}})

	s := New(store, fetcher, sender, cfg, discardLogger())
	for i := 0; i < 3; i++ {
		if err := s.RunNow(ctx); err != nil {
			t.Fatalf("run now %d: %v", i, err)
		}
	}

	if got := len(sender.getSent()); got != 1 {
		t.Errorf("post sent %d times across cycles, want 1", got)
	}
}

func TestDispatchFailureLeavesPostEligible(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fetcher := &fakeFetcher{posts: map[string][]reddit.Post{
		"test": {{ID: "x", Title: "thing", Score: 1}},
	}}
	sender := &mockSender{failIDs: map[string]bool{"x": true}}
	cfg := testConfig(model.Channel{ChatID: 1, Subreddits: []string{"test"}})

	s := New(store, fetcher, sender, cfg, discardLogger())
	if err := s.RunNow(ctx); err != nil {
		t.Fatalf("run now: %v", err)
	}

	if store.Contains("x") {
		t.Fatal("failed dispatch must not be committed")
	}
	if got := len(sender.getSent()); got != 0 {
		t.Fatalf("got %d sends, want 0", got)
	}

	// The send succeeds next cycle and only then is the post committed.
	sender.failIDs["x"] = false
	if err := s.RunNow(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := len(sender.getSent()); got != 1 {
		t.Errorf("got %d sends after retry, want 1", got)
	}
	if !store.Contains("x") {
		t.Error("post not committed after successful retry")
	}
}

func TestFetchErrorSkipsOnlyThatFeed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fetcher := &fakeFetcher{
		posts: map[string][]reddit.Post{
			"good": {{ID: "g", Title: "thing", Score: 1}},
		},
		errs: map[string]error{"bad": errors.New("boom")},
	}
	sender := &mockSender{}
	cfg := testConfig(model.Channel{ChatID: 1, Subreddits: []string{"bad", "good"}})

	s := New(store, fetcher, sender, cfg, discardLogger())
	if err := s.RunNow(ctx); err != nil {
		t.Fatalf("run now: %v", err)
	}

	want := []sentPost{{ChatID: 1, PostID: "g"}}
	if diff := cmp.Diff(want, sender.getSent()); diff != "" {
		t.Errorf("sent posts mismatch (-want +got):\n%s", diff)
	}
}

func TestUnresolvedChannelSkippedForCycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fetcher := &fakeFetcher{posts: map[string][]reddit.Post{
		"test": {{ID: "x", Title: "thing", Score: 1}},
	}}
	sender := &mockSender{badChats: map[int64]bool{1: true}}
	cfg := testConfig(
		model.Channel{ChatID: 1, Subreddits: []string{"test"}},
		model.Channel{ChatID: 2, Subreddits: []string{"test"}},
	)

	s := New(store, fetcher, sender, cfg, discardLogger())
	if err := s.RunNow(ctx); err != nil {
		t.Fatalf("run now: %v", err)
	}

	want := []sentPost{{ChatID: 2, PostID: "x"}}
	if diff := cmp.Diff(want, sender.getSent()); diff != "" {
		t.Errorf("sent posts mismatch (-want +got):\n%s", diff)
	}
}

func TestRunNowRejectsConcurrentCycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fetcher := &fakeFetcher{posts: map[string][]reddit.Post{
		"test": {{ID: "x", Title: "thing", Score: 1}},
	}}
	sender := &mockSender{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cfg := testConfig(model.Channel{ChatID: 1, Subreddits: []string{"test"}})

	s := New(store, fetcher, sender, cfg, discardLogger())

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.RunNow(ctx) }()

	// Wait until the first cycle is blocked inside SendPost.
	<-sender.entered

	if err := s.RunNow(ctx); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("concurrent RunNow = %v, want ErrCycleRunning", err)
	}

	close(sender.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestDecorationsRunAfterDispatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	fetcher := &fakeFetcher{posts: map[string][]reddit.Post{
		"test": {{ID: "x", Title: "thing", Score: 1}},
	}}
	sender := &mockSender{}
	cfg := testConfig(model.Channel{ChatID: 7, Subreddits: []string{"test"}})

	s := New(store, fetcher, sender, cfg, discardLogger())

	type decorated struct {
		ChatID    int64
		MessageID int
	}
	var got []decorated
	s.AddDecoration(func(_ context.Context, chatID int64, messageID int) error {
		return errors.New("decoration boom")
	})
	s.AddDecoration(func(_ context.Context, chatID int64, messageID int) error {
		got = append(got, decorated{ChatID: chatID, MessageID: messageID})
		return nil
	})

	if err := s.RunNow(ctx); err != nil {
		t.Fatalf("run now: %v", err)
	}

	// The failing decoration must not stop later ones or the commit.
	want := []decorated{{ChatID: 7, MessageID: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decorations mismatch (-want +got):\n%s", diff)
	}
	if !store.Contains("x") {
		t.Error("post not committed despite decoration failure")
	}
}

// failingStore wraps a real store but refuses commits.
type failingStore struct {
	*storage.SQLite
}

func (f *failingStore) MarkSeen(_ context.Context, _ string) error {
	return errors.New("disk full")
}

func TestCommitFailureDoesNotAbortCycle(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{SQLite: newTestStore(t)}
	fetcher := &fakeFetcher{posts: map[string][]reddit.Post{
		"test": {
			{ID: "x", Title: "thing", Score: 1},
			{ID: "y", Title: "other thing", Score: 1},
		},
	}}
	sender := &mockSender{}
	cfg := testConfig(model.Channel{ChatID: 1, Subreddits: []string{"test"}})

	s := New(store, fetcher, sender, cfg, discardLogger())
	if err := s.RunNow(ctx); err != nil {
		t.Fatalf("run now: %v", err)
	}

	// Both posts were dispatched even though neither commit stuck.
	if got := len(sender.getSent()); got != 2 {
		t.Errorf("got %d sends, want 2", got)
	}
	if store.Contains("x") || store.Contains("y") {
		t.Error("posts must remain unseen after failed commits")
	}
}
