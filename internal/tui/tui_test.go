package tui

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/sleeptrack/internal/night"
	"github.com/fakeyudi/sleeptrack/internal/tracker"
)

func newTestTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	store, err := night.NewStore(night.MemoryPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	tr, err := tracker.New(context.Background(), store, tracker.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}
	t.Cleanup(tr.Close)
	return tr
}

func key(s string) tea.KeyMsg {
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and runs any command it returns, feeding the result back.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(Model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			next, _ = m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestViewBeforeResize(t *testing.T) {
	m := New(context.Background(), newTestTracker(t))
	if got := m.View(); got != "Loading…" {
		t.Errorf("View before resize: got %q", got)
	}
}

func TestStartKeyStartsNight(t *testing.T) {
	tr := newTestTracker(t)
	m := sized(New(context.Background(), tr))

	if !strings.Contains(m.View(), "Not tracking") {
		t.Fatalf("initial view should say not tracking:\n%s", m.View())
	}

	m = press(t, m, "s")
	if tr.Tonight().Get() == nil {
		t.Fatal("pressing s did not start a night")
	}
	if m.busy {
		t.Error("busy flag not cleared after the operation finished")
	}

	// Observables reach the model as messages.
	next, _ := m.Update(tonightMsg{night: tr.Tonight().Get()})
	m = next.(Model)
	next, _ = m.Update(visibilityMsg{start: false, stop: true, clear: true})
	m = next.(Model)
	if !strings.Contains(m.View(), "Tracking") {
		t.Errorf("view should show tracking:\n%s", m.View())
	}
}

func TestHiddenActionsAreIgnored(t *testing.T) {
	tr := newTestTracker(t)
	m := sized(New(context.Background(), tr))

	m = press(t, m, "t")
	if _, ok := tr.NavigateToRating().Pending(); ok {
		t.Error("stop ran although it was not visible")
	}
	m = press(t, m, "c")
	if m.confirmClear {
		t.Error("clear prompt opened with no history")
	}
}

func TestNavigateShowsRatingPromptAndConsumes(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)
	if err := tr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := tr.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	stopped, _ := tr.NavigateToRating().Pending()

	m := sized(New(ctx, tr))
	next, _ := m.Update(navigateMsg(stopped))
	m = next.(Model)

	if m.rating == nil {
		t.Fatal("rating prompt not shown")
	}
	if _, ok := tr.NavigateToRating().Pending(); ok {
		t.Error("navigation event not consumed by the screen")
	}
	if !strings.Contains(m.View(), "How did you sleep?") {
		t.Errorf("view missing rating prompt:\n%s", m.View())
	}

	m = press(t, m, "4")
	got, err := tr.Nights().Get()[0], tr.Err().Get()
	if err != nil {
		t.Fatalf("Rate error: %v", err)
	}
	if got.Quality != 4 {
		t.Errorf("quality: want 4, got %d", got.Quality)
	}

	done, _ := tr.RatingDone().Pending()
	next, _ = m.Update(ratedMsg(done))
	m = next.(Model)
	if m.rating != nil {
		t.Error("rating prompt still open after rating")
	}
	if !strings.Contains(m.View(), "Rated Pretty good.") {
		t.Errorf("view missing rating confirmation:\n%s", m.View())
	}
}

func TestEscSkipsRating(t *testing.T) {
	m := sized(New(context.Background(), newTestTracker(t)))
	next, _ := m.Update(navigateMsg(night.New("n", time.UnixMilli(1))))
	m = next.(Model)

	m = press(t, m, "esc")
	if m.rating != nil {
		t.Error("esc did not close the rating prompt")
	}
}

func TestClearNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)
	if err := tr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m := sized(New(ctx, tr))
	m = press(t, m, "c")
	if !m.confirmClear {
		t.Fatal("clear did not ask for confirmation")
	}
	m = press(t, m, "n")
	if len(tr.Nights().Get()) != 1 {
		t.Fatal("declined clear still deleted history")
	}

	m = press(t, m, "c")
	m = press(t, m, "y")
	if len(tr.Nights().Get()) != 0 {
		t.Fatal("confirmed clear left history behind")
	}

	next, _ := m.Update(clearedMsg{})
	m = next.(Model)
	if _, ok := tr.Cleared().Pending(); ok {
		t.Error("cleared event not consumed")
	}
	if !strings.Contains(m.View(), "All your data is gone forever.") {
		t.Errorf("view missing snackbar:\n%s", m.View())
	}
}

func TestQuitKeys(t *testing.T) {
	m := sized(New(context.Background(), newTestTracker(t)))
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", k)
		}
	}
}

func TestWatchFailureIsLoggedAndReported(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	missing := filepath.Join(t.TempDir(), "gone", "sleep.db")

	var reported error
	watchStore(context.Background(), newTestTracker(t), missing, log, func(err error) { reported = err })

	if reported == nil || !strings.Contains(reported.Error(), missing) {
		t.Errorf("watch failure not reported: %v", reported)
	}
	if !strings.Contains(buf.String(), "database watcher stopped") {
		t.Errorf("watch failure not logged to the given logger: %q", buf.String())
	}

	m := sized(New(context.Background(), newTestTracker(t)))
	next, _ := m.Update(errMsg{err: reported})
	if !strings.Contains(next.(Model).View(), "error: watching") {
		t.Errorf("view missing watcher error:\n%s", next.(Model).View())
	}
}
