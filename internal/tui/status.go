package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const statusInterval = 100 * time.Millisecond

// StatusWriter keeps a single spinner line at the bottom of the terminal.
// The line reads "<spinner> <prefix> <message> (<elapsed>)": the prefix names
// the job being run (set by batch), the message the stage within it. Line
// prints a permanent line above the spinner.
type StatusWriter struct {
	w          io.Writer
	mu         sync.Mutex
	prefix     string
	message    string
	phaseStart time.Time
	tick       int
	done       chan struct{}
	stopped    bool
}

// NewStatusWriter starts the spinner on w.
func NewStatusWriter(w io.Writer) *StatusWriter {
	sw := &StatusWriter{
		w:          w,
		phaseStart: time.Now(),
		done:       make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// SetPrefix labels every following status line, e.g. "job 2/5 japan".
func (sw *StatusWriter) SetPrefix(prefix string) {
	sw.mu.Lock()
	sw.prefix = prefix
	sw.mu.Unlock()
}

// Update replaces the status message and restarts the phase timer.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	sw.message = msg
	sw.phaseStart = time.Now()
	sw.mu.Unlock()
}

// Line clears the spinner and prints msg on its own line.
func (sw *StatusWriter) Line(msg string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopped {
		fmt.Fprintln(sw.w, msg)
		return
	}
	fmt.Fprintf(sw.w, "\r\033[K%s\n", msg)
}

// Stop clears the status line. Later Line calls print plainly.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	fmt.Fprintf(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case now := <-ticker.C:
			sw.mu.Lock()
			if !sw.stopped {
				fmt.Fprintf(sw.w, "\r\033[K%s", sw.render(now))
				sw.tick++
			}
			sw.mu.Unlock()
		}
	}
}

// render composes the spinner line. Callers hold mu.
func (sw *StatusWriter) render(now time.Time) string {
	parts := []string{spinnerFrames[sw.tick%len(spinnerFrames)]}
	if sw.prefix != "" {
		parts = append(parts, sw.prefix)
	}
	if sw.message != "" {
		parts = append(parts, sw.message)
	}
	return fmt.Sprintf("%s (%s)", strings.Join(parts, " "), formatElapsed(now.Sub(sw.phaseStart)))
}

// formatElapsed keeps the status line short: sub-second in ms, tenths below
// ten seconds, then whole seconds and minutes.
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
