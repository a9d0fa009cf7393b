// Package format renders the night history as display text.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/fakeyudi/sleeptrack/internal/night"
)

// DefaultLayout is the date layout used when Text.Layout is empty.
const DefaultLayout = "Monday Jan-02-2006 Time: 15:04"

const title = "Here is your sleep data"

// Text formats nights as plain text, one block per night.
type Text struct {
	Layout string
}

// FormatNights lists every night; open nights only show their start.
func (f Text) FormatNights(nights []night.Night) string {
	layout := f.Layout
	if layout == "" {
		layout = DefaultLayout
	}

	var sb strings.Builder
	sb.WriteString(title + "\n")
	for _, n := range nights {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Start:\t%s\n", dateString(n.StartTime, layout))
		if n.InProgress() {
			continue
		}
		fmt.Fprintf(&sb, "End:\t%s\n", dateString(n.EndTime, layout))
		fmt.Fprintf(&sb, "Quality:\t%s\n", n.Quality)
		fmt.Fprintf(&sb, "Hours:Minutes:Seconds\t%s\n", Duration(n.Duration()))
	}
	return sb.String()
}

// Duration renders d as H:MM:SS.
func Duration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

func dateString(t time.Time, layout string) string {
	return t.Local().Format(layout)
}
