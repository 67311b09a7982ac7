package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/typesprint/go/internal/models"
)

// Config holds worker tuning.
type Config struct {
	PollInterval time.Duration
	MaxRetries   int // retries per drain pass, on top of the first try
	RetryDelay   time.Duration
	MaxAttempts  int // total tries before a result is dropped
}

// DefaultConfig returns default worker configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		MaxAttempts:  12,
	}
}

// Submitter delivers one result to the backend.
type Submitter interface {
	SubmitResult(ctx context.Context, result models.TestResult) error
}

// Worker drains the outbox queue on a poll interval, retrying failed
// submissions with linear backoff. A result that exhausts its total
// attempt budget is dropped with an error log; the local session
// already showed its metrics, so this is the accepted local/remote
// inconsistency surfaced loudly instead of silently.
type Worker struct {
	queue     *Queue
	submitter Submitter
	config    Config

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a worker draining the given queue.
func NewWorker(queue *Queue, submitter Submitter, cfg Config) *Worker {
	return &Worker{
		queue:     queue,
		submitter: submitter,
		config:    cfg,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the drain loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	// A fresh channel each start: Stop closes it, and a restarted
	// worker must not inherit the closed one.
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Int("max_attempts", w.config.MaxAttempts).
		Msg("outbox worker started")
	return nil
}

// Stop halts the drain loop and waits for the in-flight pass.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	close(w.stopChan)
	w.mu.Unlock()

	w.wg.Wait()

	log.Info().Msg("outbox worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain immediately on start.
	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	batch := w.queue.snapshot()
	if len(batch) == 0 {
		return
	}

	log.Debug().Int("count", len(batch)).Msg("draining outbox")

	var carryOver []entry
	for _, e := range batch {
		err := w.submitWithRetry(ctx, &e)
		if err == nil {
			continue
		}
		if e.attempts >= w.config.MaxAttempts {
			log.Error().
				Err(err).
				Str("session_id", e.result.SessionID.String()).
				Int("attempts", e.attempts).
				Msg("dropping result submission after exhausting attempts")
			continue
		}
		carryOver = append(carryOver, e)
	}
	w.queue.requeue(carryOver)
}

func (w *Worker) submitWithRetry(ctx context.Context, e *entry) error {
	var lastErr error

	for retry := 0; retry <= w.config.MaxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.stopChan:
				return fmt.Errorf("worker stopping")
			case <-time.After(w.config.RetryDelay * time.Duration(retry)):
			}
		}

		e.attempts++
		if err := w.submitter.SubmitResult(ctx, e.result.Result); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("session_id", e.result.SessionID.String()).
				Int("attempt", e.attempts).
				Msg("result submission failed, retrying")
			continue
		}

		log.Info().
			Str("session_id", e.result.SessionID.String()).
			Int("wpm", e.result.Result.Wpm).
			Msg("result submitted")
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", e.attempts, lastErr)
}
