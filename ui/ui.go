// Package ui implements the terminal front end embedding the quiz core.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/muesli/reflow/truncate"

	"github.com/memorylane/recall/internal/assetcache"
	"github.com/memorylane/recall/internal/audio"
	"github.com/memorylane/recall/internal/source"
	"github.com/memorylane/recall/quiz"
	"github.com/memorylane/recall/quiz/speech"
)

const loadTimeout = 30 * time.Second

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	optionStyle   = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(2).Bold(true)
	correctStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	wrongStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	photoStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 3).
			Foreground(lipgloss.Color("252"))
)

// recordsLoadedMsg carries the initial record fetch result.
type recordsLoadedMsg struct {
	records []quiz.MemoryRecord
	err     error
}

type model struct {
	cfg Config

	session *quiz.Session
	orch    *quiz.Orchestrator
	src     *source.Client
	player  *audio.Player

	spinner  spinner.Model
	loading  bool
	fatalErr error

	width int
}

// NewProgram constructs the quiz application and all of its
// collaborators.
func NewProgram(cfg Config) (*tea.Program, error) {
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		scope := gap.NewScope(gap.User, "recall")
		dir, err := scope.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to determine cache directory: %w", err)
		}
		cacheDir = filepath.Join(dir, "assets")
	}
	cache, err := assetcache.New(cacheDir)
	if err != nil {
		return nil, err
	}

	synth := speech.New(speech.Config{
		APIKey:  cfg.SpeechAPIKey,
		BaseURL: cfg.SpeechBaseURL,
		ModelID: cfg.SpeechModelID,
	})
	if !synth.Configured() {
		log.Debug("no speech credential configured, prompts will be silent")
	}

	player := audio.NewPlayer()

	preview := time.Duration(cfg.PreviewSeconds) * time.Second
	if preview <= 0 {
		preview = quiz.DefaultPreviewWindow
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := model{
		cfg:     cfg,
		session: quiz.NewSession(nil),
		orch:    quiz.NewOrchestrator(cache, synth, player, quiz.WithPreviewWindow(preview)),
		src:     source.New(source.Config{URL: cfg.SourceURL, APIKey: cfg.SourceAPIKey}),
		player:  player,
		spinner: sp,
		loading: true,
	}
	return tea.NewProgram(m, tea.WithAltScreen()), nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadRecords())
}

func (m model) loadRecords() tea.Cmd {
	limit := m.cfg.Questions
	if limit <= 0 {
		limit = 7
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		records, err := m.src.Recent(ctx, limit)
		return recordsLoadedMsg{records: records, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case recordsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, nil
		}
		if err := m.session.Load(msg.records); err != nil {
			m.fatalErr = err
			return m, nil
		}
		return m, m.beginCurrent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading || m.orch.Stage() == quiz.StageCaching {
			return m, cmd
		}
		return m, nil
	}

	return m, m.orch.Update(msg)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q", "ctrl+c":
		m.orch.Shutdown()
		m.player.Close()
		return m, tea.Quit
	}

	if m.loading || m.fatalErr != nil {
		return m, nil
	}

	if m.session.Phase() == quiz.PhaseComplete {
		if key == "enter" || key == "r" {
			m.session.Restart()
			return m, m.beginCurrent()
		}
		return m, nil
	}

	switch key {
	case "1", "2", "3":
		if m.orch.Stage() != quiz.StageRevealed {
			return m, nil
		}
		opts := m.session.Options()
		i := int(key[0] - '1')
		if i < len(opts) {
			m.session.Select(opts[i])
		}
		return m, nil

	case "n", "enter":
		if m.orch.Stage() != quiz.StageRevealed || !m.session.Answered() {
			return m, nil
		}
		m.session.Next()
		if m.session.Phase() == quiz.PhaseComplete {
			m.orch.Shutdown()
			return m, nil
		}
		return m, m.beginCurrent()

	case "r":
		return m, m.orch.ReplayPreview()

	case "esc":
		m.orch.ClearTransientErr()
		return m, nil
	}

	return m, nil
}

// beginCurrent kicks off the pipeline for the session's current
// question. The spinner is re-armed for the caching stage.
func (m model) beginCurrent() tea.Cmd {
	rec, ok := m.session.Current()
	if !ok {
		return nil
	}
	return tea.Batch(m.orch.BeginQuestion(rec, m.session.Kind()), m.spinner.Tick)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Recall"))
	if m.session.Phase() == quiz.PhaseActive {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  question %d of %d  •  score %d",
			m.session.Index()+1, m.session.Len(), m.session.Score())))
	}
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading memories…\n")
	case m.fatalErr != nil:
		b.WriteString(noticeStyle.Render("Could not start the quiz: "+m.fatalErr.Error()) + "\n")
		b.WriteString(subtleStyle.Render("Check the source configuration and try again.") + "\n")
	case m.session.Phase() == quiz.PhaseComplete:
		b.WriteString(m.viewComplete())
	default:
		b.WriteString(m.viewQuestion())
	}

	b.WriteString("\n" + m.helpLine())
	return b.String()
}

func (m model) viewQuestion() string {
	var b strings.Builder

	switch m.orch.Stage() {
	case quiz.StageCaching:
		b.WriteString(m.spinner.View() + " Fetching photo…\n")

	case quiz.StagePreviewing:
		name := truncate.StringWithTail(filepath.Base(m.orch.AssetPath()), 40, "…")
		photo := fmt.Sprintf("📷  %s\n%s", name,
			subtleStyle.Render(humanize.Bytes(uint64(m.orch.AssetSize()))))
		b.WriteString(photoStyle.Render(photo) + "\n\n")
		b.WriteString(subtleStyle.Render(fmt.Sprintf("Look at the photo… %s",
			m.orch.Remaining().Round(time.Second))) + "\n")

	case quiz.StageRevealed:
		b.WriteString(promptStyle.Render(m.session.Kind().Prompt()) + "\n\n")
		for i, opt := range m.session.Options() {
			line := fmt.Sprintf("%d. %s", i+1, opt)
			if m.session.Answered() && opt == m.session.Selected() {
				style := correctStyle
				if !m.session.WasCorrect() {
					style = wrongStyle
				}
				b.WriteString(selectedStyle.Render(style.Render(line)) + "\n")
				continue
			}
			b.WriteString(optionStyle.Render(line) + "\n")
		}
		if m.session.Answered() {
			b.WriteString("\n")
			if m.session.WasCorrect() {
				b.WriteString(correctStyle.Render("That's right!") + "\n")
			} else {
				rec, _ := m.session.Current()
				b.WriteString(wrongStyle.Render("Not quite.") + " " +
					subtleStyle.Render("It was "+rec.Value(m.session.Kind())+".") + "\n")
			}
		}
	}

	if err := m.orch.TransientErr(); err != nil {
		b.WriteString("\n" + noticeStyle.Render("⚠ The photo could not be loaded — answering is still possible.") + "\n")
		b.WriteString(subtleStyle.Render("  (esc to dismiss)") + "\n")
	}
	return b.String()
}

func (m model) viewComplete() string {
	var b strings.Builder
	b.WriteString(promptStyle.Render("All done!") + "\n\n")
	b.WriteString(fmt.Sprintf("You remembered %d of %d.\n", m.session.Score(), m.session.Len()))
	return b.String()
}

func (m model) helpLine() string {
	switch {
	case m.loading, m.fatalErr != nil:
		return subtleStyle.Render("q: quit")
	case m.session.Phase() == quiz.PhaseComplete:
		return subtleStyle.Render("enter: play again • q: quit")
	case m.orch.Stage() == quiz.StageRevealed:
		if m.session.Answered() {
			return subtleStyle.Render("n: next • r: see photo again • q: quit")
		}
		return subtleStyle.Render("1-3: answer • r: see photo again • q: quit")
	default:
		return subtleStyle.Render("q: quit")
	}
}
