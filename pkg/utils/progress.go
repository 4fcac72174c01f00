package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	barWidth     = 40
	drawInterval = 100 * time.Millisecond
)

// ProgressBar paints a single-line transfer indicator. With a known total it
// draws a bar with percentage and ETA; without one it falls back to a running
// byte counter. Output goes to stderr so piped stdout stays clean.
type ProgressBar struct {
	out         io.Writer
	total       int64
	current     int64
	description string
	started     time.Time
	lastDraw    time.Time
}

// NewProgressBar creates a bar for total bytes. A non-positive total switches
// to counter mode (unknown content length).
func NewProgressBar(total int64, description string) *ProgressBar {
	return &ProgressBar{
		out:         os.Stderr,
		total:       total,
		description: description,
		started:     time.Now(),
	}
}

// Update sets the absolute byte position.
func (pb *ProgressBar) Update(current int64) {
	pb.current = current
	pb.draw(false)
}

// Add advances the position by n bytes.
func (pb *ProgressBar) Add(n int64) {
	pb.Update(pb.current + n)
}

// SetDescription replaces the label ahead of the bar.
func (pb *ProgressBar) SetDescription(desc string) {
	pb.description = desc
	pb.draw(true)
}

// Finish paints the completed bar and moves to a fresh line.
func (pb *ProgressBar) Finish() {
	if pb.total > 0 {
		pb.current = pb.total
	}
	pb.draw(true)
	fmt.Fprintln(pb.out)
}

// draw repaints the line in place. Unforced draws are throttled so tight
// write loops do not spend their time on terminal output.
func (pb *ProgressBar) draw(force bool) {
	now := time.Now()
	if !force && now.Sub(pb.lastDraw) < drawInterval {
		return
	}
	pb.lastDraw = now

	if pb.total <= 0 {
		fmt.Fprintf(pb.out, "\r%s %s", pb.description, FormatSize(pb.current))
		return
	}

	ratio := float64(pb.current) / float64(pb.total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(pb.out, "\r%s [%s] %.1f%% (%s/%s)%s",
		pb.description, bar, ratio*100, FormatSize(pb.current), FormatSize(pb.total), pb.eta())
}

// eta estimates time remaining from the average rate so far.
func (pb *ProgressBar) eta() string {
	if pb.current <= 0 || pb.current >= pb.total {
		return ""
	}
	elapsed := time.Since(pb.started)
	remaining := time.Duration(float64(elapsed) * float64(pb.total-pb.current) / float64(pb.current))
	if remaining <= 0 {
		return ""
	}
	return fmt.Sprintf(" ETA: %v", remaining.Round(time.Second))
}

// ProgressWriter counts bytes flowing through an io.Writer chain and drives
// a ProgressBar. Used as the tee target for archive downloads.
type ProgressWriter struct {
	bar     *ProgressBar
	written int64
}

// NewProgressWriter creates a progress writer around a bar. A nil bar turns
// it into a plain byte counter.
func NewProgressWriter(bar *ProgressBar) *ProgressWriter {
	return &ProgressWriter{bar: bar}
}

// Write implements io.Writer.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	pw.written += int64(len(p))
	if pw.bar != nil {
		pw.bar.Update(pw.written)
	}
	return len(p), nil
}

// Written returns the number of bytes seen so far.
func (pw *ProgressWriter) Written() int64 {
	return pw.written
}

// FormatSize renders a byte count with its natural unit.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(size)/float64(div), []string{"KB", "MB", "GB", "TB", "PB", "EB"}[exp])
}
