// Package tui is the presenter console: it shows the current keyframe and
// its notes, maps keyboard keys to presentation keys and drives the render
// loop from bubbletea ticks.
package tui

import (
	"fmt"
	"html"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	strip "github.com/grokify/html-strip-tags-go"
	"go.uber.org/zap"

	"github.com/ivlev/simslides/internal/controller"
	"github.com/ivlev/simslides/internal/director"
)

// Stepper advances the scene, reporting whether the camera is moving.
type Stepper interface {
	Step() bool
}

// LogPlayer is implemented by scenes that replay a recorded log.
type LogPlayer interface {
	PauseLog()
	LogTime() (time.Duration, bool)
}

type tickMsg time.Time

// ReloadMsg replaces the presentation with a reloaded store.
type ReloadMsg struct {
	Store *director.Store
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	textStyle  = lipgloss.NewStyle().Padding(1, 2).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	barDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// keyCodes maps bubbletea key names to presentation key codes.
var keyCodes = map[string]int32{
	"right":  controller.KeyRight,
	"down":   controller.KeyDown,
	"pgdown": controller.KeyPageDown,
	" ":      controller.KeyRight,
	"n":      controller.KeyRight,
	"left":   controller.KeyLeft,
	"up":     controller.KeyUp,
	"pgup":   controller.KeyPageUp,
	"p":      controller.KeyLeft,
	"home":   controller.KeyHome,
	"f1":     controller.KeyF1,
	"f5":     controller.KeyF5,
	"f6":     controller.KeyF6,
}

// Model is the bubbletea model of the console.
type Model struct {
	ctrl     *controller.Controller
	stepper  Stepper
	tickRate time.Duration
	logger   *zap.SugaredLogger

	status  controller.Status
	moving  bool
	width   int
	lastErr error
}

// New returns a console for ctrl. stepper may be nil when the scene
// advances on its own.
func New(ctrl *controller.Controller, stepper Stepper, tickRate time.Duration, logger *zap.SugaredLogger) *Model {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := &Model{
		ctrl:     ctrl,
		stepper:  stepper,
		tickRate: tickRate,
		logger:   logger,
		status:   controller.Status{Index: director.Home, Total: ctrl.Store().Count()},
		width:    80,
	}
	ctrl.Subscribe(func(s controller.Status) { m.status = s })
	return m
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.tickRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.ctrl.Stop()
			return m, tea.Quit
		case ".":
			if lp, ok := m.stepper.(LogPlayer); ok {
				lp.PauseLog()
			}
			return m, nil
		}
		if code, ok := keyCodes[msg.String()]; ok {
			m.ctrl.OnControlKey(code)
		}
		return m, nil

	case ReloadMsg:
		if err := m.ctrl.Replace(msg.Store); err != nil {
			m.lastErr = err
			m.logger.Errorw("reload failed", "error", err)
		} else {
			m.lastErr = nil
			m.logger.Infow("presentation reloaded", "keyframes", msg.Store.Count())
		}
		return m, nil

	case tickMsg:
		m.ctrl.Tick()
		if m.stepper != nil {
			m.moving = m.stepper.Step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder

	position := "home"
	if m.status.Index >= 0 {
		position = fmt.Sprintf("%d/%d", m.status.Index+1, m.status.Total)
		if k, ok := m.ctrl.Keyframe(); ok {
			position += "  " + k.Type.String()
		}
	}
	b.WriteString(titleStyle.Render("simslides") + "  " + position)
	if m.moving {
		b.WriteString(dimStyle.Render("  moving"))
	}
	if lp, ok := m.stepper.(LogPlayer); ok {
		if t, paused := lp.LogTime(); !paused {
			b.WriteString(dimStyle.Render("  log " + t.Round(time.Second).String()))
		} else if t > 0 {
			b.WriteString(dimStyle.Render("  log paused"))
		}
	}
	b.WriteString("\n")
	b.WriteString(progressBar(m.status.Index+1, m.status.Total, m.width-2))
	b.WriteString("\n")

	if text := PlainText(m.status.Text); text != "" {
		b.WriteString(textStyle.Width(max(m.width-4, 10)).Render(text))
		b.WriteString("\n")
	}
	if m.lastErr != nil {
		b.WriteString(errStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("←/→ move · home/F6 start view · F1 replay · F5 restart · . pause log · q quit"))
	return b.String()
}

// PlainText renders keyframe text, which is HTML, for a terminal.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strip.StripTags(s)))
}

func progressBar(done, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	if done < 0 {
		done = 0
	}
	filled := width * done / total
	return barDone.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}
