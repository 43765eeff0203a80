package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"camconnect/internal/models"
	"camconnect/internal/wizard"
)

var statusColors = map[wizard.Status]lipgloss.Color{
	wizard.StatusWaiting:    lipgloss.Color("244"),
	wizard.StatusConnecting: lipgloss.Color("214"),
	wizard.StatusConnected:  lipgloss.Color("42"),
	wizard.StatusError:      lipgloss.Color("196"),
	wizard.StatusHint:       lipgloss.Color("33"),
}

func renderHeader(network string, noColor bool) string {
	if network == "" {
		network = "the camera"
	}
	line := "Connect to " + network
	if noColor {
		return line
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")).Render(line)
}

func renderPlatforms(platforms []string, current string, noColor bool) string {
	parts := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if p == current {
			if noColor {
				parts = append(parts, "["+p+"]")
			} else {
				parts = append(parts, lipgloss.NewStyle().Reverse(true).Render(" "+p+" "))
			}
			continue
		}
		parts = append(parts, " "+p+" ")
	}
	return "Platform: " + strings.Join(parts, " ")
}

func renderChecklist(steps []models.Step, checklist map[string]bool, locked bool, noColor bool) string {
	lines := make([]string, 0, len(steps))
	for i, step := range steps {
		box := "[ ]"
		if checklist[step.ID] {
			box = "[x]"
		}
		line := fmt.Sprintf("%d. %s %s", i+1, box, step.Label)
		if locked {
			line = stylize(line, noColor, lipgloss.Color("242"))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderStatus(snap wizard.Snapshot, spin string, noColor bool) string {
	prefix := "  "
	if snap.Status == wizard.StatusConnecting || snap.Status == wizard.StatusWaiting {
		prefix = spin + " "
	}
	return prefix + stylize(snap.Message, noColor, statusColors[snap.Status])
}

func renderCamera(snap wizard.Snapshot, cameraURL string, noColor bool) string {
	if snap.Status != wizard.StatusConnected || cameraURL == "" {
		return ""
	}
	return stylize("Open "+cameraURL+" to reach the camera.", noColor, lipgloss.Color("42"))
}

func renderFooter(steps int, paused bool, noColor bool) string {
	keys := "tab platform | r reset | q quit"
	if steps > 0 {
		keys = fmt.Sprintf("1-%d toggle step | ", min(steps, 9)) + keys
	}
	if paused {
		keys += " | probing paused"
	}
	return stylize(keys, noColor, lipgloss.Color("240"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
