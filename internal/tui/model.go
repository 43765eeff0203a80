package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"camconnect/internal/models"
	"camconnect/internal/wizard"
)

// Wizard is the part of the controller the terminal UI drives.
type Wizard interface {
	Snapshot() wizard.Snapshot
	Steps() []models.Step
	ToggleStep(id string)
	SetPlatform(platform string)
	SetVisible(visible bool)
	Reset()
}

// Options configures the terminal wizard.
type Options struct {
	NetworkName     string
	CameraURL       string
	Platforms       []string
	NoColor         bool
	RefreshInterval time.Duration
}

// Model renders the connection wizard using Bubble Tea.
type Model struct {
	wizard    Wizard
	steps     []models.Step
	snap      wizard.Snapshot
	updates   <-chan wizard.Snapshot
	spinner   spinner.Model
	opts      Options
	quitting  bool
	unfocused bool
}

// NewModel constructs a wizard model fed by a snapshot stream.
func NewModel(w Wizard, updates <-chan wizard.Snapshot, opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 250 * time.Millisecond
	}
	if len(opts.Platforms) == 0 {
		opts.Platforms = []string{"ios", "android"}
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	if !opts.NoColor {
		sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	}
	return Model{
		wizard:  w,
		steps:   w.Steps(),
		snap:    w.Snapshot(),
		updates: updates,
		spinner: sp,
		opts:    opts,
	}
}

// SnapshotMsg carries a snapshot pushed by the controller.
type SnapshotMsg wizard.Snapshot

// refreshMsg re-reads the snapshot so pushes dropped by a full buffer still show up.
type refreshMsg time.Time

// Init starts the spinner, the refresh tick and waits for the first update.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.updates), refresh(m.opts.RefreshInterval), m.spinner.Tick)
}

// Update handles keys, focus reports and controller updates.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case SnapshotMsg:
		m.snap = wizard.Snapshot(typed)
		return m, waitForSnapshot(m.updates)
	case refreshMsg:
		m.snap = m.wizard.Snapshot()
		return m, refresh(m.opts.RefreshInterval)
	case tea.FocusMsg:
		m.unfocused = false
		m.wizard.SetVisible(true)
		return m, nil
	case tea.BlurMsg:
		m.unfocused = true
		m.wizard.SetVisible(false)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.wizard.SetPlatform(nextPlatform(m.opts.Platforms, m.snap.Platform))
	case "r":
		m.wizard.Reset()
	default:
		if idx, ok := stepIndex(key.String(), len(m.steps)); ok {
			m.wizard.ToggleStep(m.steps[idx].ID)
		}
	}
	return m, nil
}

// View renders the wizard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m.opts.NetworkName, m.opts.NoColor),
		renderPlatforms(m.opts.Platforms, m.snap.Platform, m.opts.NoColor),
		"",
		renderChecklist(m.steps, m.snap.Checklist, m.snap.Status == wizard.StatusConnected, m.opts.NoColor),
		"",
		renderStatus(m.snap, m.spinner.View(), m.opts.NoColor),
		renderCamera(m.snap, m.opts.CameraURL, m.opts.NoColor),
		renderFooter(len(m.steps), m.unfocused, m.opts.NoColor),
	)
}

func waitForSnapshot(updates <-chan wizard.Snapshot) tea.Cmd {
	return func() tea.Msg {
		if updates == nil {
			return nil
		}
		snap, ok := <-updates
		if !ok {
			return tea.Quit()
		}
		return SnapshotMsg(snap)
	}
}

func refresh(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func nextPlatform(platforms []string, current string) string {
	for i, p := range platforms {
		if p == current {
			return platforms[(i+1)%len(platforms)]
		}
	}
	return platforms[0]
}

// stepIndex maps the digit keys 1-9 onto checklist positions.
func stepIndex(key string, count int) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	idx := int(key[0] - '1')
	if idx >= count {
		return 0, false
	}
	return idx, true
}
