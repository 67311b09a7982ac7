package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/metrics"
	"github.com/mcdev12/typesprint/go/internal/models"
)

const maxUsernameLen = 20

// TextProvider defines what the controller needs from the backend to
// begin an attempt.
type TextProvider interface {
	GetText(ctx context.Context) (*models.ReferenceText, error)
}

// ProgressPublisher defines what the controller needs from the
// realtime publisher.
type ProgressPublisher interface {
	SessionStarted(ctx context.Context, textID string) error
	Progress(ctx context.Context, progress float64, currentWpm, errors int) error
}

// ResultEnqueuer accepts a completed result for durable delivery. The
// queue outlives any one session, so results queued before a reset are
// still drained afterwards.
type ResultEnqueuer interface {
	Enqueue(result models.PendingResult) error
}

// Controller owns one typing attempt's lifecycle and drives the
// metrics engine on each keystroke. The identity is injected at
// construction rather than read from ambient storage.
type Controller struct {
	username  string
	texts     TextProvider
	publisher ProgressPublisher
	results   ResultEnqueuer
	clock     clockwork.Clock

	mu      sync.Mutex
	session *Session
}

// NewController creates a controller for the given identity. Callers
// must LoadText before input is accepted.
func NewController(username string, texts TextProvider, publisher ProgressPublisher, results ResultEnqueuer, clock clockwork.Clock) (*Controller, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len([]rune(username)) > maxUsernameLen {
		return nil, fmt.Errorf("username exceeds %d characters", maxUsernameLen)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		username:  username,
		texts:     texts,
		publisher: publisher,
		results:   results,
		clock:     clock,
	}, nil
}

// LoadText fetches a fresh reference text and installs a brand-new
// Idle session for it. On failure the previous session is left in
// place untouched; with no session at all, input stays blocked.
func (c *Controller) LoadText(ctx context.Context) error {
	text, err := c.texts.GetText(ctx)
	if err != nil {
		return fmt.Errorf("load reference text: %w", err)
	}

	fresh := &Session{
		ID:        uuid.New(),
		TextID:    text.ID,
		Reference: text.Content,
		State:     StateIdle,
		Accuracy:  100,
	}

	c.mu.Lock()
	c.session = fresh
	c.mu.Unlock()

	log.Debug().
		Str("session_id", fresh.ID.String()).
		Str("text_id", fresh.TextID).
		Msg("installed new session")
	return nil
}

// Reset discards the current session and starts over with a newly
// fetched text. It is a replacement, not a transition: the old session
// is unreachable afterwards and any result it already queued is
// unaffected.
func (c *Controller) Reset(ctx context.Context) error {
	return c.LoadText(ctx)
}

// HandleInput processes the full typed prefix after a keystroke.
// Metrics recompute and the progress publish happen synchronously in
// here; publish frequency equals keystroke frequency. Input on a
// Finished session is ignored, not an error.
func (c *Controller) HandleInput(ctx context.Context, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.State == StateFinished {
		return
	}

	refRunes := []rune(s.Reference)
	typedRunes := []rune(value)
	if len(typedRunes) > len(refRunes) {
		typedRunes = typedRunes[:len(refRunes)]
		value = string(typedRunes)
	}

	now := c.clock.Now()
	if s.State == StateIdle {
		s.State = StateActive
		s.StartedAt = now
		if err := c.publisher.SessionStarted(ctx, s.TextID); err != nil {
			log.Warn().Err(err).Str("text_id", s.TextID).Msg("typing_start publish failed")
		}
	}

	elapsed := now.Sub(s.StartedAt)
	s.Typed = value
	s.Errors = metrics.ErrorCount(value, s.Reference)
	s.RawWpm = metrics.RawWPM(value, elapsed)
	s.Wpm = metrics.NetWPM(value, s.Errors, elapsed)
	s.Accuracy = metrics.Accuracy(value, s.Reference)

	progress := metrics.Progress(len(typedRunes), len(refRunes))
	if err := c.publisher.Progress(ctx, progress, s.Wpm, s.Errors); err != nil {
		log.Warn().Err(err).Msg("typing_progress publish failed")
	}

	if len(typedRunes) == len(refRunes) {
		c.finish(s, now)
	}
}

// finish runs exactly once per session: the length check above cannot
// pass again because State flips to Finished here.
func (c *Controller) finish(s *Session, now time.Time) {
	s.State = StateFinished
	s.EndedAt = now
	s.Consistency = metrics.Consistency(s.Wpm, s.Typed, s.Errors)

	result := models.PendingResult{
		SessionID: s.ID,
		Result: models.TestResult{
			Username:    c.username,
			Wpm:         s.Wpm,
			RawWpm:      s.RawWpm,
			Accuracy:    s.Accuracy,
			Consistency: s.Consistency,
			TimeSpent:   s.EndedAt.Sub(s.StartedAt).Seconds(),
			TextID:      s.TextID,
			ErrorCount:  s.Errors,
		},
	}
	if err := c.results.Enqueue(result); err != nil {
		log.Error().
			Err(err).
			Str("session_id", s.ID.String()).
			Msg("failed to enqueue result submission")
	}

	log.Info().
		Str("session_id", s.ID.String()).
		Int("wpm", s.Wpm).
		Int("accuracy", s.Accuracy).
		Msg("session finished")
}

// Snapshot returns a copy of the current attempt for rendering. The
// second return is false while no text is loaded, which renders as
// "loading" rather than zero metrics.
func (c *Controller) Snapshot() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Username returns the injected identity.
func (c *Controller) Username() string {
	return c.username
}
