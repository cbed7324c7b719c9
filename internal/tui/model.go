// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/qvreis/earpro/internal/audio"
	"github.com/qvreis/earpro/internal/generator"
	"github.com/qvreis/earpro/internal/model"
	"github.com/qvreis/earpro/internal/session"
	statsPkg "github.com/qvreis/earpro/internal/stats"
	"github.com/qvreis/earpro/internal/store"
)

type view int

const (
	viewHome view = iota
	viewGame
	viewSummary
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	correctStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	wrongStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
)

type samplesLoadedMsg struct{}

// phaseMsg carries a phase change tagged with the generation of the session
// that emitted it, so events from a superseded session are discarded.
type phaseMsg struct {
	gen   int
	phase session.Phase
}

type timerTickMsg time.Time

// timerTick drives the live response timer while a question waits for its
// answer.
func timerTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	cfg    model.SessionConfig
	mode   model.SessionMode
	store  *store.Store
	engine *audio.Engine
	sess   *session.Session

	// sessGen identifies the active session; phase events from older
	// generations are ignored.
	sessGen int
	phaseCh chan phaseMsg

	spin    spinner.Model
	loading bool

	width  int
	height int
	view   view

	feedback string
	errMsg   string
	saved    bool

	lastAcc float64
	hasLast bool
}

// NewModel constructs a practice TUI model over a prepared question queue.
func NewModel(cfg model.SessionConfig, mode model.SessionMode, st *store.Store, engine *audio.Engine, queue []model.Question) *Model {
	phaseCh := make(chan phaseMsg, 8)
	m := &Model{
		cfg:     cfg,
		mode:    mode,
		store:   st,
		engine:  engine,
		phaseCh: phaseCh,
		loading: true,
		spin:    spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.sess = m.newSession(mode, queue)
	m.loadFooterStats()
	return m
}

func (m *Model) newSession(mode model.SessionMode, queue []model.Question) *session.Session {
	m.sessGen++
	gen := m.sessGen
	return session.New(m.cfg, mode, queue, m.engine, m.store,
		session.WithPhaseCallback(func(p session.Phase) {
			select {
			case m.phaseCh <- phaseMsg{gen: gen, phase: p}:
			default:
			}
		}),
		session.WithLogger(logErrf),
	)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadSamples(), m.listenPhase())
}

func (m *Model) loadSamples() tea.Cmd {
	return func() tea.Msg {
		inst, ok := model.InstrumentByID(m.cfg.Instrument)
		if ok {
			if err := m.engine.Bank().EnsureLoaded(context.Background(), inst); err != nil {
				logErrf("failed to load samples: %v\n", err)
			}
		}
		return samplesLoadedMsg{}
	}
}

func (m *Model) listenPhase() tea.Cmd {
	return func() tea.Msg {
		return <-m.phaseCh
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case samplesLoadedMsg:
		m.loading = false
		return m, nil
	case timerTickMsg:
		if m.view != viewGame {
			return m, nil
		}
		return m, timerTick()
	case phaseMsg:
		if msg.gen == m.sessGen && msg.phase == session.PhaseFinished {
			m.enterSummary()
		}
		return m, m.listenPhase()
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.sess.Abandon()
			return m, tea.Quit
		}
		switch m.view {
		case viewHome:
			return m.updateHome(msg)
		case viewGame:
			return m.updateGame(msg)
		case viewSummary:
			return m.updateSummary(msg)
		}
	}
	return m, nil
}

func (m *Model) updateHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "enter", " ":
		if m.loading {
			return m, nil
		}
		m.view = viewGame
		m.playCurrent()
		return m, timerTick()
	case "m":
		return m.startReview(store.PoolMistakes)
	case "s":
		return m.startReview(store.PoolSlow)
	}
	return m, nil
}

// startReview swaps the prepared queue for a review session built from one of
// the persistent pools.
func (m *Model) startReview(pool store.Pool) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	entries, err := m.store.ListPool(context.Background(), pool)
	if err != nil {
		m.errMsg = "failed to load review pool"
		logErrf("failed to load review pool: %v\n", err)
		return m, nil
	}
	queue, err := generator.New().Review(m.cfg, entries)
	if err != nil {
		if errors.Is(err, generator.ErrEmptyQueue) {
			m.errMsg = "nothing to review yet"
		} else {
			m.errMsg = err.Error()
		}
		return m, nil
	}
	m.sess.Abandon()
	m.sess = m.newSession(model.ModeReview, queue)
	m.mode = model.ModeReview
	m.errMsg = ""
	m.feedback = ""
	m.saved = false
	m.view = viewGame
	m.playCurrent()
	return m, timerTick()
}

func (m *Model) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.sess.Abandon()
		m.enterSummary()
		return m, nil
	case " ", "r":
		m.playCurrent()
		return m, nil
	case "enter", "n":
		if m.sess.Phase() != session.PhaseAnswered {
			return m, nil
		}
		finished, err := m.sess.Advance()
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.feedback = ""
		if finished {
			m.enterSummary()
			return m, nil
		}
		m.playCurrent()
		return m, nil
	}
	if idx, ok := optionIndex(msg.String()); ok {
		m.submit(idx)
	}
	return m, nil
}

func (m *Model) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "enter":
		return m, tea.Quit
	}
	return m, nil
}

func optionIndex(key string) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	return int(key[0] - '1'), true
}

func (m *Model) playCurrent() {
	m.errMsg = ""
	if err := m.sess.PlayQuestion(); err != nil {
		switch {
		case m.engine.State() == audio.StateFailed:
			m.errMsg = "audio device unavailable"
		default:
			m.errMsg = err.Error()
		}
	}
}

func (m *Model) submit(idx int) {
	q, ok := m.sess.Current()
	if !ok || idx >= len(q.Options) {
		return
	}
	ans, err := m.sess.SubmitAnswer(context.Background(), q.Options[idx].ID)
	if err != nil {
		return
	}
	if ans.IsCorrect {
		m.feedback = correctStyle.Render("Correct!")
		return
	}
	name := string(ans.CorrectID)
	if iv, ok := model.IntervalByID(ans.CorrectID); ok {
		name = iv.Name
	}
	m.feedback = wrongStyle.Render(fmt.Sprintf("It was %s", name))
}

func (m *Model) enterSummary() {
	if m.view == viewSummary {
		return
	}
	m.view = viewSummary
	m.saveSession()
}

func (m *Model) saveSession() {
	if m.saved {
		return
	}
	m.saved = true
	rec := m.sess.Record()
	if rec.Questions == 0 {
		return
	}
	if _, err := m.store.InsertSession(context.Background(), rec, m.sess.Results()); err != nil {
		logErrf("failed to save session: %v\n", err)
	}
	m.lastAcc = statsPkg.SessionAccuracy(rec.Correct, rec.Questions)
	m.hasLast = true
}

func (m *Model) loadFooterStats() {
	sessions, err := m.store.ListSessions(context.Background(), model.StatsConfig{})
	if err != nil {
		logErrf("failed to load session stats: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		return
	}
	last := sessions[len(sessions)-1]
	m.lastAcc = statsPkg.SessionAccuracy(last.Correct, last.Questions)
	m.hasLast = true
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.view {
	case viewHome:
		content = m.renderHome()
	case viewGame:
		content = m.renderGame()
	case viewSummary:
		content = m.renderSummary()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderHome() string {
	inst := string(m.cfg.Instrument)
	if i, ok := model.InstrumentByID(m.cfg.Instrument); ok {
		inst = i.Name
	}
	lines := []string{
		titleStyle.Render("earpro"),
		"",
		mutedStyle.Render(fmt.Sprintf("Mode: %s  Instrument: %s  Questions: %d", m.mode, inst, m.cfg.QuestionCount)),
		mutedStyle.Render(fmt.Sprintf("Range: %s - %s", model.NoteName(m.cfg.RangeMin), model.NoteName(m.cfg.RangeMax))),
		"",
	}
	if m.loading {
		lines = append(lines, m.spin.View()+mutedStyle.Render(" loading samples..."))
	} else {
		lines = append(lines, promptStyle.Render("Press Enter to start"))
	}
	if counts := m.poolSummary(); counts != "" {
		lines = append(lines, "", mutedStyle.Render(counts))
	}
	if m.errMsg != "" {
		lines = append(lines, "", errorStyle.Render(m.errMsg))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderGame() string {
	q, ok := m.sess.Current()
	if !ok {
		return ""
	}
	idx, total := m.sess.Progress()
	phase := m.sess.Phase()

	lines := []string{
		progressStyle.Render(fmt.Sprintf("Question %d of %d", idx+1, total)),
		"",
	}
	switch phase {
	case session.PhasePlaying:
		lines = append(lines, promptStyle.Render("Listening..."))
	case session.PhaseWaitingAnswer:
		prompt := "What interval was that?"
		if d, ok := m.sess.ResponseElapsed(); ok {
			prompt = fmt.Sprintf("%s  %.1fs", prompt, d.Seconds())
		}
		lines = append(lines, promptStyle.Render(prompt))
	case session.PhaseAnswered:
		lines = append(lines, m.feedback)
	default:
		lines = append(lines, mutedStyle.Render("Press Space to play"))
	}
	lines = append(lines, "")

	var chosen model.IntervalID
	answered := false
	if ans, ok := m.sess.CurrentAnswer(); ok {
		chosen = ans.ChosenID
		answered = true
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	lines = append(lines, renderOptions(q, chosen, answered, width))
	if m.errMsg != "" {
		lines = append(lines, "", errorStyle.Render(m.errMsg))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderSummary() string {
	rec := m.sess.Record()
	lines := []string{
		titleStyle.Render("Session Complete"),
		"",
	}
	if rec.Questions == 0 {
		lines = append(lines, mutedStyle.Render("No questions answered."))
	} else {
		acc := statsPkg.SessionAccuracy(rec.Correct, rec.Questions)
		lines = append(lines,
			fmt.Sprintf("Answered: %d", rec.Questions),
			fmt.Sprintf("Correct:  %d (%.0f%%)", rec.Correct, acc*100),
			fmt.Sprintf("Avg response: %d ms", rec.AvgResponseMs),
		)
		if counts := m.poolSummary(); counts != "" {
			lines = append(lines, "", mutedStyle.Render(counts))
		}
	}
	lines = append(lines, "", promptStyle.Render("Press Enter to exit"))
	return strings.Join(lines, "\n")
}

func (m *Model) poolSummary() string {
	ctx := context.Background()
	mistakes, err := m.store.CountPool(ctx, store.PoolMistakes)
	if err != nil {
		return ""
	}
	slow, err := m.store.CountPool(ctx, store.PoolSlow)
	if err != nil {
		return ""
	}
	if mistakes == 0 && slow == 0 {
		return ""
	}
	return fmt.Sprintf("Review pools: %d mistakes, %d slow responses", mistakes, slow)
}

func (m *Model) renderFooter() string {
	var segments []string
	switch m.view {
	case viewHome:
		segments = append(segments, "Enter: start", "m: review mistakes", "s: review slow", "q: quit")
	case viewGame:
		if m.sess.Phase() == session.PhaseAnswered {
			segments = append(segments, "Enter: next")
		}
		segments = append(segments, "Space: replay", "1-9: answer", "Esc: end session")
	case viewSummary:
		segments = append(segments, "Enter: exit")
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.0f%%", m.lastAcc*100))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
