package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/engine"
	"github.com/matzehuels/forcegraph/pkg/interact"
	"github.com/matzehuels/forcegraph/pkg/render/frame"
	"github.com/matzehuels/forcegraph/pkg/render/term"
	"github.com/matzehuels/forcegraph/pkg/sim"
)

const (
	defaultFrameInterval = 33 * time.Millisecond
	viewChromeLines      = 2 // header and status line
	panCells             = 4
	dragCells            = 2
	zoomStep             = 1.25
)

var (
	viewHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	viewStatusStyle = lipgloss.NewStyle().Foreground(colorDim)
	viewErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		flags    layoutFlags
		labels   bool
		plain    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "view [source]",
		Short: "Explore a graph interactively in the terminal",
		Long: `Explore a graph interactively in the terminal.

The simulation runs live with the streaming preset. Keys:

  arrows      pan
  + / -       zoom about the center
  tab         select the next node (shift+tab: previous)
  space       grab or release the selected node
  h j k l     drag the grabbed node
  c           center on the selected node
  f           fit the graph to the terminal
  r           reset the camera
  L           toggle labels
  q           quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), sourceArg(args), flags, labels, plain, interval)
		},
	}

	flags.register(cmd, sim.ModeStreaming)
	cmd.Flags().BoolVar(&labels, "labels", true, "show node labels")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable colors")
	cmd.Flags().DurationVar(&interval, "interval", defaultFrameInterval, "simulation tick interval")

	return cmd
}

func (c *CLI) runView(ctx context.Context, src string, flags layoutFlags, labels, plain bool, interval time.Duration) error {
	opts, err := flags.options(c, src)
	if err != nil {
		return err
	}
	cfg, _ := c.config()
	runner, err := c.newRunner(ctx, cfg, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, err := runner.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.Source, err)
	}

	e := engine.New(engine.Config{
		Params:   *opts.Params,
		Attrs:    opts.Attrs,
		Interact: opts.Interact,
		Logger:   c.Logger,
	})
	defer e.Close()
	if _, err := e.Load(g); err != nil {
		return err
	}

	m := newViewModel(e, opts.Source, interval)
	m.labels = labels
	m.plain = plain
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

type tickMsg time.Time

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// viewModel drives an engine from the bubbletea event loop, which makes
// the program goroutine the engine's owner.
type viewModel struct {
	engine   *engine.Engine
	title    string
	ids      []string
	selected int // index into ids, -1 for none
	grabbed  bool
	labels   bool
	plain    bool

	cols, rows int
	fitted     bool
	interval   time.Duration
	last       time.Time
	err        error
}

func newViewModel(e *engine.Engine, title string, interval time.Duration) *viewModel {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	return &viewModel{
		engine:   e,
		title:    title,
		ids:      e.Graph().NodeIDs(),
		selected: -1,
		labels:   true,
		interval: interval,
	}
}

func (m *viewModel) Init() tea.Cmd {
	return tick(m.interval)
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tickMsg:
		now := time.Time(msg)
		dt := m.interval
		if !m.last.IsZero() {
			dt = now.Sub(m.last)
		}
		m.last = now
		m.engine.Tick(dt)
		return m, tick(m.interval)
	case tea.KeyMsg:
		if m.key(msg.String()) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *viewModel) resize(cols, rows int) {
	m.cols = cols
	m.rows = max(rows-viewChromeLines, 1)
	view := term.ViewSize(m.cols, m.rows)
	m.engine.SetView(view)
	// Frame the starting spiral; the engine refits once the layout settles.
	if !m.fitted {
		_, m.err = m.engine.Fit(view, false)
		m.fitted = true
	}
}

// key applies one key press and reports whether to quit.
func (m *viewModel) key(k string) bool {
	m.err = nil
	view := term.ViewSize(m.cols, m.rows)
	cx, cy := view.Center()

	switch k {
	case "q", "ctrl+c", "esc":
		return true
	case "left":
		m.handle(interact.Event{Kind: interact.Pan, DeltaX: panCells * term.CellWidth})
	case "right":
		m.handle(interact.Event{Kind: interact.Pan, DeltaX: -panCells * term.CellWidth})
	case "up":
		m.handle(interact.Event{Kind: interact.Pan, DeltaY: panCells * term.CellHeight})
	case "down":
		m.handle(interact.Event{Kind: interact.Pan, DeltaY: -panCells * term.CellHeight})
	case "+", "=":
		m.handle(interact.Event{Kind: interact.Zoom, DeltaScale: zoomStep, X: cx, Y: cy})
	case "-", "_":
		m.handle(interact.Event{Kind: interact.Zoom, DeltaScale: 1 / zoomStep, X: cx, Y: cy})
	case "tab":
		m.cycle(1)
	case "shift+tab":
		m.cycle(-1)
	case " ":
		m.toggleGrab()
	case "h":
		m.drag(-dragCells*term.CellWidth, 0)
	case "l":
		m.drag(dragCells*term.CellWidth, 0)
	case "k":
		m.drag(0, -dragCells*term.CellHeight)
	case "j":
		m.drag(0, dragCells*term.CellHeight)
	case "c":
		if id := m.selectedID(); id != "" {
			m.err = m.engine.Focus(id, m.engine.Camera().Scale, true)
		}
	case "f":
		_, m.err = m.engine.Fit(view, true)
	case "r":
		m.engine.Reset()
	case "L":
		m.labels = !m.labels
	}
	return false
}

func (m *viewModel) handle(ev interact.Event) {
	m.err = m.engine.Handle(ev)
}

func (m *viewModel) selectedID() string {
	if m.selected < 0 || m.selected >= len(m.ids) {
		return ""
	}
	return m.ids[m.selected]
}

// cycle moves the selection. A grabbed node is released first.
func (m *viewModel) cycle(step int) {
	if len(m.ids) == 0 {
		return
	}
	if m.grabbed {
		m.toggleGrab()
	}
	if m.selected < 0 {
		if step > 0 {
			m.selected = 0
		} else {
			m.selected = len(m.ids) - 1
		}
		return
	}
	m.selected = (m.selected + step + len(m.ids)) % len(m.ids)
}

func (m *viewModel) toggleGrab() {
	id := m.selectedID()
	if id == "" {
		return
	}
	kind := interact.DragStart
	if m.grabbed {
		kind = interact.DragEnd
	}
	m.handle(interact.Event{Kind: kind, NodeID: id})
	if m.err == nil {
		m.grabbed = !m.grabbed
	}
}

// drag moves the grabbed node by a viewport offset.
func (m *viewModel) drag(dx, dy float64) {
	id := m.selectedID()
	if !m.grabbed || id == "" {
		return
	}
	p, ok := m.engine.Snapshot().Positions[id]
	if !ok {
		return
	}
	vx, vy := m.engine.Camera().Apply(p.X, p.Y)
	m.handle(interact.Event{Kind: interact.DragMove, NodeID: id, X: vx + dx, Y: vy + dy})
}

func (m *viewModel) frame() frame.Layout {
	e := m.engine
	return frame.New(e.Generation(), e.Graph(), e.Attrs(), e.Snapshot(), e.Camera(), e.Pinned())
}

func (m *viewModel) View() string {
	if m.cols == 0 {
		return "starting..."
	}
	l := m.frame()

	var b strings.Builder
	b.WriteString(viewHeaderStyle.Render(m.title))
	b.WriteString(viewStatusStyle.Render(fmt.Sprintf("  %d nodes · %d edges", len(l.Nodes), len(l.Edges))))
	b.WriteString("\n")
	b.WriteString(term.Render(l, term.Options{
		Cols:     m.cols,
		Rows:     m.rows,
		Labels:   m.labels,
		Selected: m.selectedID(),
		Plain:    m.plain,
	}))
	b.WriteString("\n")
	b.WriteString(m.status(l))
	return b.String()
}

func (m *viewModel) status(l frame.Layout) string {
	if m.err != nil {
		return viewErrorStyle.Render(m.err.Error())
	}
	parts := []string{
		fmt.Sprintf("%s step %d", l.State, l.Step),
		fmt.Sprintf("alpha %.3f", l.Alpha),
		fmt.Sprintf("zoom %.2fx", l.Transform.Scale),
	}
	if id := m.selectedID(); id != "" {
		sel := "selected " + id
		if n, ok := l.Node(id); ok && n.Label != "" {
			sel = "selected " + n.Label
		}
		if m.grabbed {
			sel += " (grabbed)"
		}
		parts = append(parts, sel)
	}
	return viewStatusStyle.Render(strings.Join(parts, " · "))
}
