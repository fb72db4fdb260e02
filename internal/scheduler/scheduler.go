// Package scheduler runs the poll cycle: fetch new posts for every
// configured channel, filter them, and forward what qualifies.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"reddit_bot/internal/config"
	"reddit_bot/internal/filter"
	"reddit_bot/internal/media"
	"reddit_bot/internal/model"
	"reddit_bot/internal/reddit"
	"reddit_bot/internal/storage"
)

// fetchLimit bounds each subreddit fetch to the newest posts. Backlog
// beyond this window is unreachable if a cycle misses it.
const fetchLimit = 25

// ErrCycleRunning is returned by RunNow when a cycle is already active.
var ErrCycleRunning = errors.New("a poll cycle is already running")

// Sender delivers notifications to a Telegram chat.
type Sender interface {
	// VerifyChannel reports whether the chat can receive messages; a
	// failing channel is skipped for the cycle.
	VerifyChannel(chatID int64) error
	// SendPost delivers one post and returns the sent message id.
	SendPost(chatID int64, post *reddit.Post, imageURL string) (int, error)
}

// Fetcher fetches the newest posts of a subreddit.
type Fetcher interface {
	NewPosts(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error)
}

// Decoration is a best-effort step run after a post was delivered, such
// as adding a reaction to the sent message. Failures are logged and
// never affect whether the post is marked seen.
type Decoration func(ctx context.Context, chatID int64, messageID int) error

// Scheduler periodically polls subreddits and forwards qualifying posts.
type Scheduler struct {
	store       storage.SeenStore
	fetcher     Fetcher
	sender      Sender
	cfg         *config.Config
	log         *slog.Logger
	tick        time.Duration
	decorations []Decoration

	// Held for the duration of a cycle; the timer path and the manual
	// trigger exclude each other through it.
	cycleMu sync.Mutex
}

// New creates a Scheduler. The tick interval comes from the config's
// check_interval_minutes.
func New(store storage.SeenStore, fetcher Fetcher, sender Sender, cfg *config.Config, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		fetcher: fetcher,
		sender:  sender,
		cfg:     cfg,
		log:     log,
		tick:    time.Duration(cfg.CheckIntervalMinutes) * time.Minute,
	}
}

// SetTickInterval overrides the configured check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// AddDecoration appends a post-dispatch decoration. Not safe to call
// after Run has started.
func (s *Scheduler) AddDecoration(d Decoration) {
	s.decorations = append(s.decorations, d)
}

// Run starts the poll loop, blocking until ctx is cancelled. The first
// cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.runCycle(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// RunNow runs one cycle on demand. It returns ErrCycleRunning instead
// of queueing when a cycle is already active.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if !s.cycleMu.TryLock() {
		return ErrCycleRunning
	}
	defer s.cycleMu.Unlock()

	s.cycle(ctx)
	return nil
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.cycleMu.TryLock() {
		// A manual check is still in flight; skip this tick.
		s.log.Warn("skipping tick, cycle already running")
		return
	}
	defer s.cycleMu.Unlock()

	s.cycle(ctx)
}

func (s *Scheduler) cycle(ctx context.Context) {
	s.log.Info("checking subreddits")
	start := time.Now()

	for _, ch := range s.cfg.Channels {
		if ctx.Err() != nil {
			return
		}
		s.processChannel(ctx, ch)
	}

	s.log.Info("check complete", "elapsed", time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) processChannel(ctx context.Context, ch model.Channel) {
	if err := s.sender.VerifyChannel(ch.ChatID); err != nil {
		s.log.Warn("channel not reachable, skipping for this cycle", "chat_id", ch.ChatID, "error", err)
		return
	}

	rule := s.cfg.RuleFor(ch)

	for _, sub := range ch.Subreddits {
		if ctx.Err() != nil {
			return
		}

		posts, err := s.fetcher.NewPosts(ctx, sub, fetchLimit)
		if err != nil {
			s.log.Error("fetch subreddit", "subreddit", sub, "chat_id", ch.ChatID, "error", err)
			continue
		}

		sent := 0
		for i := range posts {
			if ctx.Err() != nil {
				return
			}
			if s.processPost(ctx, ch.ChatID, sub, &posts[i], rule) {
				sent++
			}
		}
		if sent > 0 {
			s.log.Info("forwarded posts", "subreddit", sub, "chat_id", ch.ChatID, "count", sent)
		}
	}
}

// processPost runs one post through filter, media resolution, dispatch,
// and commit. It reports whether the post was forwarded. The post is
// marked seen only after a successful send, so a failed dispatch leaves
// it eligible for the next cycle.
func (s *Scheduler) processPost(ctx context.Context, chatID int64, sub string, post *reddit.Post, rule model.Rule) bool {
	if !filter.ShouldForward(post, rule, s.store) {
		return false
	}

	imageURL := media.PreviewImage(post)

	messageID, err := s.sender.SendPost(chatID, post, imageURL)
	if err != nil {
		s.log.Error("dispatch post", "subreddit", sub, "post_id", post.ID, "chat_id", chatID, "error", err)
		return false
	}

	if err := s.store.MarkSeen(ctx, post.ID); err != nil {
		// The notification went out but the commit did not stick: the
		// post stays eligible and will be re-sent next cycle.
		s.log.Error("mark seen failed after dispatch, post will be re-sent",
			"subreddit", sub, "post_id", post.ID, "chat_id", chatID, "error", err)
	}

	for _, decorate := range s.decorations {
		if err := decorate(ctx, chatID, messageID); err != nil {
			s.log.Warn("post-dispatch decoration", "post_id", post.ID, "chat_id", chatID, "error", err)
		}
	}

	return true
}
