package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/edgard/file2link/internal/logger"
)

const (
	barFilled = "🟩"
	barEmpty  = "⬜"
	// DefaultBarLength is the number of squares in a progress bar.
	DefaultBarLength = 10
	calculating      = "⏳ Calculating..."
)

// ProgressBar renders current/total as a row of squares and a percentage.
func ProgressBar(current, total int64, length int) string {
	if total <= 0 {
		return calculating
	}
	if length <= 0 {
		length = DefaultBarLength
	}

	ratio := float64(current) / float64(total)
	filled := int(float64(length) * ratio)
	filled = max(0, min(filled, length))

	return strings.Repeat(barFilled, filled) +
		strings.Repeat(barEmpty, length-filled) +
		fmt.Sprintf(" %.1f%%", ratio*100)
}

// FormatMB renders a byte count in mebibytes with one decimal, e.g. "3.5MB".
func FormatMB(n int64) string {
	return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
}

// EditFunc replaces the text of the progress message.
type EditFunc func(ctx context.Context, text string) error

// RenderFunc builds the progress text for a byte count.
type RenderFunc func(current, total int64) string

// ProgressReporter throttles progress edits to at most one per interval,
// except for the final update, and never sends the same text twice.
type ProgressReporter struct {
	mu       sync.Mutex
	interval time.Duration
	render   RenderFunc
	edit     EditFunc
	now      func() time.Time
	last     time.Time
	lastText string
	logger   *slog.Logger
}

// NewProgressReporter creates a reporter; a zero interval edits on every change.
func NewProgressReporter(interval time.Duration, render RenderFunc, edit EditFunc, log *slog.Logger) *ProgressReporter {
	if log == nil {
		log = logger.Discard()
	}
	return &ProgressReporter{
		interval: interval,
		render:   render,
		edit:     edit,
		now:      time.Now,
		logger:   log,
	}
}

// Report renders the progress and edits the message when allowed.
// Edit failures are logged; progress is cosmetic and must not abort a transfer.
func (p *ProgressReporter) Report(ctx context.Context, current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	text := p.render(current, total)
	if text == p.lastText {
		return
	}

	complete := total > 0 && current >= total
	now := p.now()
	if !complete && !p.last.IsZero() && now.Sub(p.last) < p.interval {
		return
	}

	// A failed edit still counts against the interval; the text is retried
	// on the next allowed report.
	p.last = now
	if err := p.edit(ctx, text); err != nil {
		p.logger.DebugContext(ctx, "Progress edit failed", "error", err)
		return
	}
	p.lastText = text
}
