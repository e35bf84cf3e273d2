// package formatter renders sessions, queues and journal records for the terminal, and exports
// resolved queues as CSV or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/jitdj/internal/journal"
	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/desertthunder/jitdj/internal/tasks"
)

const barWidth = 20

// QueueToCSV converts resolved items to CSV with columns: Position, Title, Artist, URI
func QueueToCSV(items []models.QueueItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Title", "Artist", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range items {
		if err := writer.Write([]string{strconv.Itoa(i + 1), item.Title, item.Artist, item.URI}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// QueueToText renders items as a numbered list.
func QueueToText(items []models.QueueItem) string {
	if len(items) == 0 {
		return styles.muted.Render("(queue empty)") + "\n"
	}

	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%2d. %s - %s %s\n", i+1, item.Artist, item.Title, styles.muted.Render(item.URI))
	}
	return b.String()
}

// ProgressBar draws progress out of duration as a fixed-width bar.
func ProgressBar(progress, duration time.Duration, width int) string {
	if width <= 0 {
		width = barWidth
	}
	filled := 0
	if duration > 0 {
		filled = int(float64(width) * float64(progress) / float64(duration))
	}
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// FormatSnapshot renders the remote player state.
func FormatSnapshot(snap models.PlaybackSnapshot) string {
	if snap.TrackURI == "" {
		return styles.muted.Render("nothing playing")
	}

	state := styles.ok.Render("playing")
	if !snap.IsPlaying {
		state = styles.warn.Render("paused")
	}

	line := fmt.Sprintf("%s %s - %s %s %s/%s (-%s)",
		state, snap.Artist, snap.Title,
		ProgressBar(snap.Progress, snap.Duration, barWidth),
		shared.FormatDuration(snap.Progress), shared.FormatDuration(snap.Duration),
		shared.FormatDuration(snap.Remaining()),
	)
	if snap.DeviceName != "" {
		line += " " + styles.muted.Render("on "+snap.DeviceName)
	}
	return line
}

// FormatResult summarizes a finished session.
func FormatResult(res tasks.Result) string {
	reason := styles.ok.Render(string(res.Reason))
	switch res.Reason {
	case tasks.ReasonInternalError:
		reason = styles.err.Render(string(res.Reason))
	case tasks.ReasonTimeout, tasks.ReasonStopped:
		reason = styles.warn.Render(string(res.Reason))
	}

	s := fmt.Sprintf("session ended: %s, %d injected, %d failed, %d cycles in %s",
		reason, res.Injected, res.Failures, res.Cycles, shared.FormatDuration(res.Duration()))
	if res.Err != nil {
		s += "\n" + styles.err.Render(res.Err.Error())
	}
	return s
}

// FormatLine renders one journal record on a single line.
func FormatLine(l journal.Line) string {
	ts := l.Timestamp.Local().Format("15:04:05")
	if l.Cycle != nil {
		return ts + " " + formatCycle(l.Cycle)
	}

	kind, _ := l.Kind()
	label := styles.title.Render(l.Type)
	switch kind {
	case tasks.EventInjection:
		var d tasks.InjectionData
		if l.Decode(&d) == nil {
			return fmt.Sprintf("%s %s %s (attempts %d, %d left)", ts, styles.ok.Render(l.Type), d.Item.String(), d.Attempts, d.Remaining)
		}
	case tasks.EventInjectionFailed:
		var d tasks.InjectionData
		if l.Decode(&d) == nil {
			return fmt.Sprintf("%s %s %s: %s", ts, styles.err.Render(l.Type), d.Item.String(), d.Error)
		}
	case tasks.EventTrackChange:
		var d tasks.TrackChangeData
		if l.Decode(&d) == nil {
			return fmt.Sprintf("%s %s %s - %s", ts, label, d.Artist, d.Title)
		}
	case tasks.EventSessionStart:
		var d tasks.SessionStartData
		if l.Decode(&d) == nil {
			return fmt.Sprintf("%s %s %s (%d/%d resolved)", ts, label, d.First.String(), d.Resolved, d.Requested)
		}
	case tasks.EventQueueUpdate:
		var d tasks.QueueUpdateData
		if l.Decode(&d) == nil {
			return fmt.Sprintf("%s %s %d/%d resolved", ts, label, d.Resolved, d.Requested)
		}
	case tasks.EventSessionEnd:
		var d tasks.SessionEndData
		if l.Decode(&d) == nil {
			return fmt.Sprintf("%s %s %s, %d injected, %d failed", ts, label, d.Reason, d.Injected, d.Failures)
		}
	case tasks.EventError:
		var d tasks.ErrorData
		if l.Decode(&d) == nil {
			return fmt.Sprintf("%s %s %s", ts, styles.err.Render(l.Type), d.Error)
		}
	}
	return fmt.Sprintf("%s %s %s", ts, label, string(l.Data))
}

func formatCycle(c *tasks.CycleRecord) string {
	now := styles.muted.Render("idle")
	if c.NowPlaying != nil {
		np := c.NowPlaying
		now = fmt.Sprintf("%s - %s %s", np.Artist, np.Title,
			ProgressBar(shared.Seconds(np.Progress), shared.Seconds(np.Duration), barWidth))
	}

	next := "-"
	if c.ShadowQueue.NextItem != nil {
		next = c.ShadowQueue.NextItem.String()
	}

	flag := ""
	switch {
	case c.Injection.Eligible:
		flag = " " + styles.ok.Render("INJECT")
	case c.Injection.AlreadyInjected:
		flag = " " + styles.muted.Render("latched")
	}

	return fmt.Sprintf("#%d %s -%s | queue %d, next %s%s",
		c.Number, now, shared.FormatDuration(shared.Seconds(c.Injection.TimeRemaining)),
		c.ShadowQueue.Remaining, next, flag)
}

// FormatResolutions renders cached resolutions as a table.
func FormatResolutions(rs []*models.Resolution) string {
	if len(rs) == 0 {
		return styles.muted.Render("(cache empty)") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", styles.title.Render(fmt.Sprintf("%-5s %-30s %-24s %s", "HITS", "TITLE", "ARTIST", "URI")))
	for _, r := range rs {
		fmt.Fprintf(&b, "%-5d %-30s %-24s %s\n", r.Hits(), truncate(r.Title(), 30), truncate(r.Artist(), 24), r.URI())
	}
	return b.String()
}

// FormatSessions renders stored session history, newest first.
func FormatSessions(ss []*models.SessionRecord) string {
	if len(ss) == 0 {
		return styles.muted.Render("(no sessions)") + "\n"
	}

	var b strings.Builder
	for _, s := range ss {
		status := styles.warn.Render(string(s.Status()))
		switch s.Status() {
		case models.SessionFinished:
			status = styles.ok.Render(string(s.Status()))
		case models.SessionFailed:
			status = styles.err.Render(string(s.Status()))
		}

		fmt.Fprintf(&b, "#%d %s %s %s", s.Sequence(), s.CreatedAt().Local().Format("2006-01-02 15:04"), status, s.ID()[:min(8, len(s.ID()))])
		if s.Reason() != "" {
			fmt.Fprintf(&b, " (%s)", s.Reason())
		}
		fmt.Fprintf(&b, " %d/%d resolved, %d injected, %d failed\n", s.Resolved(), s.Requested(), s.Injected(), s.Failures())
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
