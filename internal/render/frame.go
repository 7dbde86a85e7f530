// Package render turns state snapshots into text frames for the local
// console and SSH mirror sessions. Rendering is pure: it never reaches
// back into live state.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pkt.systems/opsdeck/schema"
)

// DefaultWidth matches the 20x4 character LCD scaled up for terminals.
const DefaultWidth = 60

// Frame renders one snapshot into terminal lines.
func Frame(s schema.StateSnapshot, width int) []string {
	if width <= 0 {
		width = DefaultWidth
	}
	if !s.Backlight {
		// Dark display: a single hint so remote viewers know the device is
		// alive and input is swallowed until wake.
		return []string{pad("(display off - press any key)", width)}
	}

	lines := make([]string, 0, 16)
	lines = append(lines, header(s, width))
	lines = append(lines, strings.Repeat("-", width))

	if s.ConfirmPending != "" {
		lines = append(lines, pad(fmt.Sprintf("!! CONFIRM %s: press SELECT again", strings.ToUpper(s.ConfirmPending)), width))
	}
	if job, ok := s.RunningJob(); ok {
		lines = append(lines, pad(fmt.Sprintf(">> %s  %s  [%s]", job.Name, formatElapsed(job.Elapsed), strings.ToUpper(string(job.Phase))), width))
	}

	if s.Menu.Title != "" {
		lines = append(lines, pad(s.Menu.Title, width))
	}
	for i, item := range s.Menu.Items {
		cursor := "  "
		if i == s.Menu.Selected {
			cursor = "> "
		}
		lines = append(lines, pad(cursor+item, width))
	}

	if len(s.Alerts) > 0 {
		lines = append(lines, strings.Repeat("-", width))
		for _, alert := range lastAlerts(s.Alerts, 3) {
			lines = append(lines, pad(fmt.Sprintf("[%s] %s %s", strings.ToUpper(string(alert.Level)), alert.Time.Format("15:04:05"), alert.Message), width))
		}
	}
	return lines
}

func header(s schema.StateSnapshot, width int) string {
	left := fmt.Sprintf("[%s]", s.ModeTitle)
	m := s.Metrics
	right := ""
	if !m.Collected.IsZero() {
		right = fmt.Sprintf("C%3.0f%% M%3.0f%% %4.1fC %s", m.CPUPercent, m.MemPercent, m.TempC, m.IP)
	}
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return truncate(left+strings.Repeat(" ", gap)+right, width)
}

func lastAlerts(alerts []schema.Alert, n int) []schema.Alert {
	if len(alerts) <= n {
		return alerts
	}
	return alerts[len(alerts)-n:]
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

func pad(line string, width int) string {
	return truncate(line, width)
}

func truncate(line string, width int) string {
	if utf8.RuneCountInString(line) <= width {
		return line
	}
	runes := []rune(line)
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "~"
}
