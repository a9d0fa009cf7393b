// Package tracker holds the sleep tracker screen state: the night currently
// being tracked, the history of all nights, and the one-shot events a UI
// reacts to. Every operation goes through a night.Store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/sleeptrack/internal/night"
	"github.com/fakeyudi/sleeptrack/internal/observable"
)

// ErrClosed is returned by operations issued after Close.
var ErrClosed = errors.New("tracker closed")

// Formatter renders the night history for display.
type Formatter interface {
	FormatNights(nights []night.Night) string
}

// Clock abstracts time so tests can pin it.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithFormatter sets the history formatter.
func WithFormatter(f Formatter) Option {
	return func(t *Tracker) { t.formatter = f }
}

// WithLogger sets the logger used for operation traces.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithIDGenerator overrides how new night IDs are minted.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) { t.newID = gen }
}

// Tracker is the state holder behind the tracking screen. Observable
// callbacks run while an operation holds the tracker, so they must not call
// back into it synchronously.
type Tracker struct {
	store     night.Store
	clock     Clock
	formatter Formatter
	log       *slog.Logger
	newID     func() string

	// mu serializes store round-trips so operations never overlap.
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	tonight *observable.Value[*night.Night]
	nights  *observable.Value[[]night.Night]
	history *observable.Value[string]
	errs    *observable.Value[error]

	startVisible *observable.Value[bool]
	stopVisible  *observable.Value[bool]
	clearVisible *observable.Value[bool]

	navigateToRating *observable.Event[night.Night]
	ratingDone       *observable.Event[night.Night]
	cleared          *observable.Event[struct{}]
}

// New builds a Tracker over store and loads the current night and history.
// The returned error is the initial load failure; the Tracker is usable
// either way and reports the same error on Err.
func New(ctx context.Context, store night.Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:     store,
		clock:     systemClock{},
		formatter: plainFormatter{},
		log:       slog.Default(),
		newID:     func() string { return uuid.New().String() },

		tonight: observable.NewValue[*night.Night](),
		nights:  observable.NewValue[[]night.Night](),
		errs:    observable.NewValue[error](),

		navigateToRating: observable.NewEvent[night.Night](),
		ratingDone:       observable.NewEvent[night.Night](),
		cleared:          observable.NewEvent[struct{}](),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())

	t.history = observable.Map(t.nights, t.formatter.FormatNights)
	t.startVisible = observable.Map(t.tonight, func(n *night.Night) bool { return n == nil })
	t.stopVisible = observable.Map(t.tonight, func(n *night.Night) bool { return n != nil })
	t.clearVisible = observable.Map(t.nights, func(ns []night.Night) bool { return len(ns) > 0 })

	return t, t.Reload(ctx)
}

// Tonight is the night currently being tracked, nil when none.
func (t *Tracker) Tonight() *observable.Value[*night.Night] { return t.tonight }

// Nights is every recorded night, newest first.
func (t *Tracker) Nights() *observable.Value[[]night.Night] { return t.nights }

// History is Nights rendered through the Formatter.
func (t *Tracker) History() *observable.Value[string] { return t.history }

// Err holds the failure of the most recent operation, or nil.
func (t *Tracker) Err() *observable.Value[error] { return t.errs }

// StartVisible reports whether starting a night is possible.
func (t *Tracker) StartVisible() *observable.Value[bool] { return t.startVisible }

// StopVisible reports whether a night can be stopped.
func (t *Tracker) StopVisible() *observable.Value[bool] { return t.stopVisible }

// ClearVisible reports whether there is history to clear.
func (t *Tracker) ClearVisible() *observable.Value[bool] { return t.clearVisible }

// NavigateToRating fires with the night that was just stopped.
func (t *Tracker) NavigateToRating() *observable.Event[night.Night] { return t.navigateToRating }

// RatingDone fires with the night that was just rated.
func (t *Tracker) RatingDone() *observable.Event[night.Night] { return t.ratingDone }

// Cleared fires after all history was deleted.
func (t *Tracker) Cleared() *observable.Event[struct{}] { return t.cleared }

// Refresh reloads the current night from the store.
func (t *Tracker) Refresh(ctx context.Context) error {
	return t.run(ctx, "refresh", func(ctx context.Context) error {
		return t.refreshLocked(ctx)
	})
}

// Reload refreshes the current night and the history.
func (t *Tracker) Reload(ctx context.Context) error {
	return t.run(ctx, "reload", func(ctx context.Context) error {
		tonight, err := t.loadTonight(ctx)
		if err != nil {
			return err
		}
		return t.publishLocked(ctx, tonight)
	})
}

// Start begins tracking a new night. It does nothing while a night is
// already in progress, including one started by another process.
func (t *Tracker) Start(ctx context.Context) error {
	return t.run(ctx, "start", func(ctx context.Context) error {
		cur, err := t.loadTonight(ctx)
		if err != nil {
			return err
		}
		if cur != nil {
			t.log.Debug("night already in progress", "id", cur.ID)
			return t.publishLocked(ctx, cur)
		}
		n := night.New(t.newID(), t.clock.Now())
		if err := t.store.Insert(ctx, n); err != nil {
			return err
		}
		tonight, err := t.loadTonight(ctx)
		if err != nil {
			return err
		}
		t.log.Debug("night started", "id", n.ID, "start", n.StartTime)
		return t.publishLocked(ctx, tonight)
	})
}

// Stop ends the night in progress and publishes it on NavigateToRating.
// It does nothing when the store has no open night, even if this tracker
// still shows one.
func (t *Tracker) Stop(ctx context.Context) error {
	return t.run(ctx, "stop", func(ctx context.Context) error {
		cur, err := t.loadTonight(ctx)
		if err != nil {
			return err
		}
		if cur == nil {
			t.log.Debug("no night in progress")
			return t.publishLocked(ctx, nil)
		}
		n := *cur
		end := t.clock.Now().Truncate(time.Millisecond)
		// end must differ from start or the night would still read as open.
		if !end.After(n.StartTime) {
			end = n.StartTime.Add(time.Millisecond)
		}
		n.EndTime = end
		if err := t.store.Update(ctx, n); err != nil {
			return err
		}
		nights, err := t.store.All(ctx)
		if err != nil {
			return err
		}
		t.log.Debug("night stopped", "id", n.ID, "duration", n.Duration())
		t.tonight.Set(nil)
		t.nights.Set(nights)
		t.navigateToRating.Publish(n)
		return nil
	})
}

// Clear deletes every night.
func (t *Tracker) Clear(ctx context.Context) error {
	return t.run(ctx, "clear", func(ctx context.Context) error {
		if err := t.store.Clear(ctx); err != nil {
			return err
		}
		t.tonight.Set(nil)
		t.nights.Set([]night.Night{})
		t.cleared.Publish(struct{}{})
		return nil
	})
}

// Rate stores the quality score for the night with the given ID and
// publishes it on RatingDone.
func (t *Tracker) Rate(ctx context.Context, id string, r night.Rating) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %d", night.ErrInvalidRating, r)
	}
	return t.run(ctx, "rate", func(ctx context.Context) error {
		n, err := t.store.Get(ctx, id)
		if err != nil {
			return err
		}
		n.Quality = r
		if err := t.store.Update(ctx, n); err != nil {
			return err
		}
		nights, err := t.store.All(ctx)
		if err != nil {
			return err
		}
		t.nights.Set(nights)
		t.ratingDone.Publish(n)
		return nil
	})
}

// ConsumeNavigation marks the NavigateToRating event as handled.
func (t *Tracker) ConsumeNavigation() {
	t.navigateToRating.Consume()
}

// ConsumeRatingDone marks the RatingDone event as handled.
func (t *Tracker) ConsumeRatingDone() {
	t.ratingDone.Consume()
}

// ConsumeCleared marks the Cleared event as handled.
func (t *Tracker) ConsumeCleared() {
	t.cleared.Consume()
}

// Close abandons in-flight operations and rejects new ones. Nothing already
// written is rolled back.
func (t *Tracker) Close() {
	t.cancel()
}

// run serializes op, binds it to the tracker lifetime, and records its
// outcome on Err. State is only published by op after its store calls
// succeed, so a failure leaves observable state untouched.
func (t *Tracker) run(ctx context.Context, name string, op func(context.Context) error) error {
	if t.ctx.Err() != nil {
		return ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(t.ctx, cancel)
	defer stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.log.Debug("tracker operation", "op", name)
	err := op(ctx)
	if err != nil {
		if t.ctx.Err() != nil {
			err = fmt.Errorf("%s: %w", name, ErrClosed)
		} else {
			err = fmt.Errorf("%s: %w", name, err)
		}
		t.log.Error("tracker operation failed", "op", name, "error", err)
		t.errs.Set(err)
		return err
	}
	t.errs.Set(nil)
	return nil
}

func (t *Tracker) refreshLocked(ctx context.Context) error {
	tonight, err := t.loadTonight(ctx)
	if err != nil {
		return err
	}
	t.tonight.Set(tonight)
	return nil
}

// publishLocked loads the history and publishes it along with tonight.
func (t *Tracker) publishLocked(ctx context.Context, tonight *night.Night) error {
	nights, err := t.store.All(ctx)
	if err != nil {
		return err
	}
	t.tonight.Set(tonight)
	t.nights.Set(nights)
	return nil
}

// loadTonight returns the latest night if it is still open, nil otherwise.
func (t *Tracker) loadTonight(ctx context.Context) (*night.Night, error) {
	n, err := t.store.Latest(ctx)
	if err != nil {
		if errors.Is(err, night.ErrNoNight) {
			return nil, nil
		}
		return nil, err
	}
	if !n.InProgress() {
		return nil, nil
	}
	return &n, nil
}

// plainFormatter is used when no Formatter is configured.
type plainFormatter struct{}

func (plainFormatter) FormatNights(nights []night.Night) string {
	return fmt.Sprintf("%d nights", len(nights))
}
