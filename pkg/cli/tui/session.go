package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"redirect-mgmt-go/pkg/cli"
	"redirect-mgmt-go/pkg/cli/links"
	"redirect-mgmt-go/pkg/coord"
	"redirect-mgmt-go/pkg/models"
	"redirect-mgmt-go/pkg/provider"
	"redirect-mgmt-go/pkg/registry"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Provider is what the session needs from the short-link provider.
type Provider interface {
	cli.Creator
	Update(ctx context.Context, alias, target string, opts provider.UpdateOptions) (*models.Link, error)
	Tokens() *provider.TokenPool
}

// Options configures a session.
type Options struct {
	Provider Provider
	Channel  *coord.Channel
	Registry *registry.Registry
	Metrics  *sdkmetric.ManualReader
	Logger   *slog.Logger
	Interval time.Duration
	Version  string

	NoCheck       bool   // skip the target reachability check on create
	BatchFile     string // created on startup when set
	CreateTimeout time.Duration
	UpdateTimeout time.Duration
	UpdateRetries int

	Clipboard func(string) error
}

const maxScrollback = 500

// Model is the interactive session. It owns the link registry; the monitor
// hears about every change through the coord channel and answers on the
// feedback side, which is applied here on the program goroutine.
type Model struct {
	ctx  context.Context
	opts Options
	reg  *registry.Registry
	ch   *coord.Channel
	prov Provider
	log  *slog.Logger

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int

	blocks   []string
	busy     bool
	busyText string
	interval time.Duration
	online   bool
	quitting bool
}

// New builds a session model. ctx bounds provider calls and the feedback
// listener.
func New(ctx context.Context, opts Options) *Model {
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.CreateTimeout <= 0 {
		opts.CreateTimeout = 30 * time.Second
	}
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = 5 * time.Second
	}
	if opts.UpdateRetries <= 0 {
		opts.UpdateRetries = 3
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	in := textinput.New()
	in.Prompt = promptStyle.Render("> ")
	in.Placeholder = "type 'help' to display options"
	in.CharLimit = 2048
	in.Width = 72
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := &Model{
		ctx:      ctx,
		opts:     opts,
		reg:      opts.Registry,
		ch:       opts.Channel,
		prov:     opts.Provider,
		log:      opts.Logger,
		input:    in,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		width:    80,
		height:   24,
		interval: opts.Interval,
		online:   true,
	}
	m.print(HelpContent())
	return m
}

// Messages produced by the session's commands.
type createdMsg struct {
	link *models.Link
	err  error
}

type updatedMsg struct {
	id   int
	link *models.Link
	err  error
}

type submittedMsg struct {
	kind coord.Kind
	err  error
}

type batchDoneMsg struct {
	results []cli.BatchResult
}

type batchFileMsg struct {
	path string
}

type feedbackMsg struct {
	msgs []coord.Message
	err  error
}

type copiedMsg struct {
	id  int
	url string
	err error
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.waitFeedback()}
	if m.opts.BatchFile != "" {
		path := m.opts.BatchFile
		cmds = append(cmds, func() tea.Msg { return batchFileMsg{path: path} })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, m.quit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			line := m.input.Value()
			m.input.Reset()
			return m, m.execute(line)
		}
		if m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case createdMsg:
		return m, m.onCreated(msg)

	case updatedMsg:
		return m, m.onUpdated(msg)

	case submittedMsg:
		m.busy = false
		if msg.err != nil {
			m.printErr(fmt.Errorf("monitor did not take %s: %w", msg.kind, msg.err))
		}
		return m, nil

	case batchFileMsg:
		return m, m.startBatch(msg.path)

	case batchDoneMsg:
		return m, m.onBatchDone(msg)

	case feedbackMsg:
		if msg.err != nil {
			return m, nil
		}
		for _, fb := range msg.msgs {
			if err := coord.DispatchFeedback(fb, m); err != nil {
				m.log.Error("unexpected feedback", "error", err)
			}
		}
		return m, m.waitFeedback()

	case copiedMsg:
		if msg.err != nil {
			m.printErr(fmt.Errorf("copy failed: %w", msg.err))
		} else {
			m.print(renderSuccess(fmt.Sprintf("Link(%d) copied: %s", msg.id, msg.url)))
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return renderInfo("Thank you for using TUM!") + "\n"
	}

	var b strings.Builder
	b.WriteString(renderTitle("TUM["+m.opts.Version+"]") + "  " + m.status() + "\n")
	b.WriteString(renderDivider(min(m.width, 80)) + "\n")
	b.WriteString(m.viewport.View() + "\n")
	if m.busy {
		b.WriteString(m.spinner.View() + " " + infoStyle.Render(m.busyText) + "\n")
	} else {
		b.WriteString(m.input.View() + "\n")
	}
	return b.String()
}

func (m *Model) status() string {
	state := successStyle.Render("online")
	if !m.online {
		state = warningStyle.Render("offline")
	}
	return mutedStyle.Render(fmt.Sprintf("%d link(s) · every %s · ", m.reg.Len(), m.interval)) + state
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = width
	m.viewport.Height = max(height-4, 3)
	m.refresh()
}

// print appends a block of output and scrolls to it.
func (m *Model) print(block string) {
	m.blocks = append(m.blocks, strings.TrimRight(block, "\n"))
	if len(m.blocks) > maxScrollback {
		m.blocks = m.blocks[len(m.blocks)-maxScrollback:]
	}
	m.refresh()
}

func (m *Model) printErr(err error) {
	m.print(renderError(userMessage(err)))
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.blocks, "\n"))
	m.viewport.GotoBottom()
}

// Output returns everything printed so far.
func (m *Model) Output() string {
	return strings.Join(m.blocks, "\n")
}

// Registry exposes the session's links.
func (m *Model) Registry() *registry.Registry {
	return m.reg
}

// Busy reports whether a command is in flight.
func (m *Model) Busy() bool {
	return m.busy
}

// start marks the session busy and runs work alongside the spinner.
func (m *Model) start(text string, work tea.Cmd) tea.Cmd {
	m.busy = true
	m.busyText = text
	return tea.Batch(m.spinner.Tick, work)
}

// submit hands msg to the monitor and waits for the acknowledgement. The
// session stays busy until then so submits never overlap.
func (m *Model) submit(text string, msg coord.Message) tea.Cmd {
	return m.start(text, func() tea.Msg {
		return submittedMsg{kind: msg.Kind(), err: m.ch.Submit(m.ctx, msg)}
	})
}

func (m *Model) submitAll(text string, msgs []coord.Message) tea.Cmd {
	return m.start(text, func() tea.Msg {
		for _, msg := range msgs {
			if err := m.ch.Submit(m.ctx, msg); err != nil {
				return submittedMsg{kind: msg.Kind(), err: err}
			}
		}
		return submittedMsg{kind: coord.KindUpdate}
	})
}

func (m *Model) waitFeedback() tea.Cmd {
	if m.ch == nil {
		return nil
	}
	return func() tea.Msg {
		msgs, err := m.ch.WaitFeedback(m.ctx)
		return feedbackMsg{msgs: msgs, err: err}
	}
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.ch != nil {
		m.ch.Send(coord.Exit{})
	}
	return tea.Quit
}

func (m *Model) trackMsg(link models.Link) coord.Message {
	return coord.Update{
		ShortURL: link.ShortURL,
		Alias:    link.Alias,
		Target:   link.IntendedTarget,
		Domain:   links.Domain(link),
	}
}

// userMessage prefers the provider's user-facing text.
func userMessage(err error) string {
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.UserMessage()
	}
	return err.Error()
}
