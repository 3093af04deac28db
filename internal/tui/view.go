package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/npratt/nova/internal/tour"
)

const (
	minWidth  = 60
	minHeight = 20

	progressWidth = 20
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	inner := safeWidth(m.width - 2)

	sections := []string{
		m.renderHeader(inner),
		m.renderDivider(inner),
		m.renderBody(),
		m.renderDivider(inner),
		m.renderBubble(inner),
		m.renderDivider(inner),
		m.renderEvents(inner),
		m.renderFooter(),
	}

	rendered := styles.Container.
		Width(inner).
		Render(strings.Join(sections, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderTooSmall renders a message when the terminal is too small.
func (m model) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small (%dx%d). Need at least %dx%d.",
		m.width, m.height, minWidth, minHeight)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
}

// renderHeader renders the status line: brand, phase, stop and progress.
func (m model) renderHeader(w int) string {
	snap := m.view.Tour

	left := styles.Brand.Render("◉ NOVA") + " " + m.renderStatus()
	if snap.CurrentStop != nil {
		left += "  " + styles.Stop.Render(fmt.Sprintf("stop %d/%d %s",
			snap.CurrentStopIndex+1, snap.TotalStops, snap.CurrentStop.ID))
	}
	if m.notice != "" {
		left += "  " + styles.Notice.Render(m.notice)
	}

	voice := "voice off"
	switch {
	case !m.view.VoiceSupported:
		voice = "voice n/a"
	case m.view.VoiceEnabled:
		voice = "voice on"
	}
	right := renderProgress(snap.Progress, progressWidth) + " " + styles.Footer.Render(voice)

	gap := max(1, w-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

// renderStatus renders the tour phase with its color.
func (m model) renderStatus() string {
	snap := m.view.Tour
	switch {
	case snap.IsActive && snap.IsPaused:
		return styles.StatusPaused.Render("paused")
	case snap.Phase == tour.PhaseGreeting || snap.Phase == tour.PhaseAtStop:
		return styles.StatusTouring.Render("touring")
	case snap.Phase == tour.PhaseCompleted:
		return styles.StatusCompleted.Render("completed")
	default:
		return styles.StatusIdle.Render("idle")
	}
}

// renderProgress draws a fixed-width bar for a 0-100 percentage.
func renderProgress(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(width, filled))
	return styles.Progress.Render(strings.Repeat("█", filled)) +
		styles.Track.Render(strings.Repeat("░", width-filled)) +
		styles.Footer.Render(fmt.Sprintf(" %3.0f%%", percent))
}

// renderDivider renders a horizontal rule.
func (m model) renderDivider(w int) string {
	return styles.Divider.Render(strings.Repeat("─", w))
}

// renderBody renders the page and, when open, the chat pane beside it.
func (m model) renderBody() string {
	pageWidth, chatWidth := m.paneWidths()
	height := m.bodyHeight()

	page := m.renderPage(pageWidth, height)
	if chatWidth == 0 {
		return page
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, page, m.chat.View(m.spinner.View()))
}

// renderPage renders the page canvas with the orb and highlight.
func (m model) renderPage(width, height int) string {
	if m.page == nil {
		return styles.Placeholder.Width(width).Height(height).Render("no page")
	}

	snap := m.view.Tour
	lines := renderPage(pageScene{
		Sections:  m.page.Sections(),
		Viewport:  m.page.Viewport(),
		Highlight: snap.HighlightedElementID,
		Orb:       snap.Orb,
		OrbSize:   m.layout.OrbSize,
	}, width, height)

	for i, line := range lines {
		lines[i] = stylePageLine(line)
	}
	return strings.Join(lines, "\n")
}

// stylePageLine colors the orb and highlight runes of one canvas row.
func stylePageLine(line string) string {
	var sb strings.Builder
	var run []rune
	var runStyle *lipgloss.Style

	flush := func() {
		if len(run) == 0 {
			return
		}
		sb.WriteString(runStyle.Render(string(run)))
		run = run[:0]
	}

	for _, r := range line {
		style := &styles.Page
		switch {
		case r == orbRune:
			style = &styles.Orb
		case strings.ContainsRune("═║╔╗╚╝", r):
			style = &styles.Highlight
		}
		if style != runStyle {
			flush()
			runStyle = style
		}
		run = append(run, r)
	}
	flush()
	return sb.String()
}

// renderBubble renders NOVA's latest line, or the typing indicator.
func (m model) renderBubble(w int) string {
	snap := m.view.Tour
	var text string
	switch {
	case snap.IsTyping:
		text = styles.Typing.Render(m.spinner.View() + " NOVA is typing")
	case snap.IsActive && snap.IsPaused:
		text = styles.StatusPaused.Render("Paused. Press space to resume.")
	default:
		msg, ok := snap.LastMessage()
		if !ok {
			text = styles.Placeholder.Render("Press s to start the tour, or tab to chat.")
			break
		}
		text = styles.Bubble.Render(msg.Content)
	}

	wrapped := lipgloss.NewStyle().Width(w).Render(text)
	lines := strings.Split(wrapped, "\n")
	if len(lines) > bubbleRows {
		lines = lines[:bubbleRows]
	}
	for len(lines) < bubbleRows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderEvents renders the most recent event lines.
func (m model) renderEvents(w int) string {
	start := max(0, len(m.eventLines)-eventRows)
	visible := m.eventLines[start:]

	lines := make([]string, 0, eventRows)
	for _, el := range visible {
		lines = append(lines, m.renderEventLine(el, w))
	}
	for len(lines) < eventRows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderEventLine renders a single event line with its style.
func (m model) renderEventLine(el eventLine, maxWidth int) string {
	timestamp := el.Time.Format("15:04:05")
	text := truncate(el.Text, max(1, maxWidth-len(timestamp)-1))
	return styles.Footer.Render(timestamp) + " " + el.Style.Render(text)
}

// renderFooter renders keyboard shortcuts help text.
func (m model) renderFooter() string {
	if m.focusedPane == FocusChat {
		return styles.Footer.Render("enter: send  esc: back  tab: page  ctrl+c: quit")
	}
	return m.help.View(m.keys)
}

// safeWidth returns a width that is at least 1 to prevent negative values.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}
