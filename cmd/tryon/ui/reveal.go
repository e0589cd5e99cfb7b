package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"tryon-storefront/internal/domain/entities"
	"tryon-storefront/internal/domain/valueobjects"
)

type snapshotMsg entities.SessionSnapshot

type closedMsg struct{}

// RevealModel renders the reveal progress of one session.
type RevealModel struct {
	updates  <-chan entities.SessionSnapshot
	onCancel func()

	progress  progress.Model
	styles    Styles
	snap      entities.SessionSnapshot
	sawBusy   bool
	cancelled bool
	done      bool
}

func NewRevealModel(updates <-chan entities.SessionSnapshot, onCancel func()) RevealModel {
	if onCancel == nil {
		onCancel = func() {}
	}
	return RevealModel{
		updates:  updates,
		onCancel: onCancel,
		progress: progress.New(progress.WithDefaultGradient()),
		styles:   DefaultStyles(),
	}
}

func waitForSnapshot(updates <-chan entities.SessionSnapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m RevealModel) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

func (m RevealModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			m.onCancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.progress.Width = max(msg.Width-4, 10)
	case snapshotMsg:
		m.snap = entities.SessionSnapshot(msg)
		switch {
		case m.snap.State.IsBusy():
			m.sawBusy = true
		case m.snap.State.IsTerminal(), m.sawBusy:
			m.done = true
			return m, tea.Quit
		}
		return m, waitForSnapshot(m.updates)
	case closedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m RevealModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Title.Render("AI Try-On") + "\n\n")
	sb.WriteString(m.styles.Label.Render(phaseLabel(m.snap.State)) + "\n")
	sb.WriteString(m.progress.ViewAs(m.snap.Progress) + "\n\n")

	if a := m.snap.Analysis; a != nil {
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("body type: %s  skin color: %s", a.BodyType, a.SkinColor)) + "\n")
	}
	if m.snap.ReferenceImageURL != "" {
		sb.WriteString(m.styles.Muted.Render("reference: "+m.snap.ReferenceImageURL) + "\n")
	}
	if e := m.snap.Error; e != nil {
		sb.WriteString(m.styles.Error.Render(e.Message) + "\n")
	}
	if m.snap.State == valueobjects.StateComplete {
		sb.WriteString(m.styles.Success.Render("Your try-on is ready.") + "\n")
	}
	if !m.done {
		sb.WriteString("\n" + m.styles.Muted.Render("esc to cancel") + "\n")
	}
	return sb.String()
}

// Snapshot is the last snapshot the model received.
func (m RevealModel) Snapshot() entities.SessionSnapshot {
	return m.snap
}

func (m RevealModel) Cancelled() bool {
	return m.cancelled
}

func phaseLabel(state valueobjects.SessionState) string {
	switch state {
	case valueobjects.StateUploading:
		return "Photo selected"
	case valueobjects.StateProcessing:
		return "Analyzing your photo..."
	case valueobjects.StateRevealing:
		return "Generating your try-on..."
	case valueobjects.StateComplete:
		return "Done"
	case valueobjects.StateFailed:
		return "Something went wrong"
	default:
		return "Waiting"
	}
}

// RunReveal shows the reveal until the session settles. onCancel runs when
// the user quits early.
func RunReveal(ctx context.Context, updates <-chan entities.SessionSnapshot, onCancel func()) (RevealModel, error) {
	program := tea.NewProgram(NewRevealModel(updates, onCancel), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return RevealModel{}, err
	}
	return final.(RevealModel), nil
}
