// Package night defines the sleep night record and the store that persists it.
package night

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unrated is the quality of a night that has not been rated yet.
const Unrated Rating = -1

var (
	// ErrNoNight is returned when a requested night does not exist.
	ErrNoNight = errors.New("no such night")
	// ErrAmbiguous is returned when an ID prefix matches more than one night.
	ErrAmbiguous = errors.New("ambiguous night id")
	// ErrInvalidRating is returned for ratings outside 0..5.
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
)

// Night is one tracked sleep interval.
type Night struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	// EndTime equals StartTime while the night is still being tracked.
	EndTime time.Time `json:"end_time"`
	Quality Rating    `json:"quality"`
}

// New returns an open night starting at now.
func New(id string, now time.Time) Night {
	now = now.Truncate(time.Millisecond)
	return Night{ID: id, StartTime: now, EndTime: now, Quality: Unrated}
}

// InProgress reports whether the night has not been stopped yet.
func (n Night) InProgress() bool {
	return n.EndTime.Equal(n.StartTime)
}

// Duration is the time slept; zero while in progress.
func (n Night) Duration() time.Duration {
	return n.EndTime.Sub(n.StartTime)
}

// ShortID is the abbreviated ID shown to users.
func (n Night) ShortID() string {
	if len(n.ID) <= 8 {
		return n.ID
	}
	return n.ID[:8]
}

// Match finds the single night whose ID starts with prefix.
func Match(nights []Night, prefix string) (Night, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return Night{}, ErrNoNight
	}
	var found []Night
	for _, n := range nights {
		if n.ID == prefix {
			return n, nil
		}
		if strings.HasPrefix(n.ID, prefix) {
			found = append(found, n)
		}
	}
	switch len(found) {
	case 0:
		return Night{}, fmt.Errorf("%w: %s", ErrNoNight, prefix)
	case 1:
		return found[0], nil
	default:
		return Night{}, fmt.Errorf("%w: %q matches %d nights", ErrAmbiguous, prefix, len(found))
	}
}

// Rating is the 0..5 sleep quality score.
type Rating int

var ratingLabels = [...]string{"Very bad", "Poor", "So-so", "OK", "Pretty good", "Excellent"}

// Valid reports whether r is a real score rather than Unrated or garbage.
func (r Rating) Valid() bool {
	return r >= 0 && int(r) < len(ratingLabels)
}

func (r Rating) String() string {
	if !r.Valid() {
		return "--"
	}
	return ratingLabels[r]
}

// ParseRating parses a user-supplied score.
func ParseRating(s string) (Rating, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Unrated, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	r := Rating(v)
	if !r.Valid() {
		return Unrated, fmt.Errorf("%w: %d", ErrInvalidRating, v)
	}
	return r, nil
}
