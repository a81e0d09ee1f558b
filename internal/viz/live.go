package viz

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/lavarand/internal/capture"
	"github.com/san-kum/lavarand/internal/history"
	"github.com/san-kum/lavarand/internal/keygen"
	"github.com/san-kum/lavarand/internal/metrics"
	"github.com/san-kum/lavarand/internal/pipeline"
	"github.com/san-kum/lavarand/internal/render"
	"github.com/san-kum/lavarand/internal/sim"
)

const (
	panelWidth      = 46
	activityHistory = 120
	previewEvery    = 15
	keyWidth        = 36
)

// Options wires the model to the running lamp. Camera may be nil, in which
// case the source cannot be switched. UseCamera starts on the camera.
type Options struct {
	Context   context.Context
	Loop      *sim.Loop
	Surface   *render.Surface
	Pipeline  *pipeline.Pipeline
	Activity  *metrics.Activity
	Camera    *capture.Camera
	Request   keygen.Request
	Algorithm string
	Theme     string
	UseCamera bool
}

type TickMsg time.Time

// DerivedMsg reports a finished derivation.
type DerivedMsg struct {
	Record history.Record
	Err    error
}

// CameraMsg reports the outcome of a camera start or retry.
type CameraMsg struct {
	Err error
}

type Model struct {
	opts       Options
	ctx        context.Context
	sim        capture.Source
	useCamera  bool
	preview    *image.RGBA
	processing bool
	theme      Theme
	styles     styles
	canvas     *Canvas
	activity   []float64
	status     string
	lastErr    error
	showHelp   bool
	frame      int
}

func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	theme := GetTheme(opts.Theme)
	return Model{
		opts:      opts,
		ctx:       ctx,
		sim:       capture.NewSimulated(opts.Surface),
		theme:     theme,
		styles:    newStyles(theme),
		canvas:    NewCanvas(64, 20),
		activity:  make([]float64, 0, activityHistory),
		status:    "ready",
		useCamera: opts.UseCamera && opts.Camera != nil,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Loop.Interval(), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	if m.opts.UseCamera && m.opts.Camera != nil {
		cam, ctx := m.opts.Camera, m.ctx
		start := func() tea.Msg { return CameraMsg{Err: cam.Start(ctx)} }
		return tea.Batch(m.tick(), start)
	}
	return m.tick()
}

// Update handles input events and advances the lamp one tick per frame.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.opts.Camera != nil {
				m.opts.Camera.Close()
			}
			return m, tea.Quit
		case "h", "H":
			return m.derive(keygen.Hex)
		case "u", "U":
			return m.derive(keygen.UUID)
		case "i", "I":
			return m.derive(keygen.Int)
		case "s", "S":
			return m.toggleSource()
		case "r", "R":
			return m.retryCamera()
		case "t", "T":
			m.theme = NextTheme(m.theme.Name)
			m.styles = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}

	case tea.WindowSizeMsg:
		w := msg.Width - panelWidth - 4
		h := msg.Height - 2
		if w < 16 {
			w = 16
		}
		if h < 8 {
			h = 8
		}
		m.canvas = NewCanvas(w, h)

	case TickMsg:
		m.opts.Loop.Tick()
		m.frame++
		if m.opts.Activity != nil {
			m.activity = append(m.activity, m.opts.Activity.Value())
			if len(m.activity) > activityHistory {
				m.activity = m.activity[1:]
			}
		}
		if m.useCamera && m.frame%previewEvery == 0 {
			m.refreshPreview()
		}
		return m, m.tick()

	case DerivedMsg:
		m.processing = false
		if msg.Err != nil {
			m.lastErr = msg.Err
			m.status = "derivation failed"
		} else {
			m.lastErr = nil
			m.status = "derived " + msg.Record.Kind.String()
		}

	case CameraMsg:
		if msg.Err != nil {
			m.lastErr = msg.Err
			m.status = "camera unavailable"
		} else {
			m.lastErr = nil
			m.status = "camera active"
			m.refreshPreview()
		}
	}
	return m, nil
}

func (m Model) source() capture.Source {
	if m.useCamera && m.opts.Camera != nil {
		return m.opts.Camera
	}
	return m.sim
}

func (m Model) derive(kind keygen.Kind) (tea.Model, tea.Cmd) {
	if m.processing {
		return m, nil
	}
	m.processing = true
	m.status = "capturing"

	req := m.opts.Request
	req.Kind = kind
	ctx, p, src := m.ctx, m.opts.Pipeline, m.source()
	return m, func() tea.Msg {
		rec, err := p.Derive(ctx, src, req)
		return DerivedMsg{Record: rec, Err: err}
	}
}

func (m Model) toggleSource() (tea.Model, tea.Cmd) {
	cam := m.opts.Camera
	if cam == nil {
		m.status = "no camera configured"
		return m, nil
	}

	if m.useCamera {
		m.useCamera = false
		m.preview = nil
		cam.Stop()
		m.status = "simulated lamp"
		return m, nil
	}

	m.useCamera = true
	m.status = "requesting camera"
	ctx := m.ctx
	return m, func() tea.Msg { return CameraMsg{Err: cam.Start(ctx)} }
}

func (m Model) retryCamera() (tea.Model, tea.Cmd) {
	cam := m.opts.Camera
	if cam == nil || !m.useCamera || cam.State() != capture.StateErrored {
		return m, nil
	}
	m.status = "retrying camera"
	ctx := m.ctx
	return m, func() tea.Msg { return CameraMsg{Err: cam.Retry(ctx)} }
}

func (m *Model) refreshPreview() {
	cam := m.opts.Camera
	if cam == nil || cam.State() != capture.StateActive {
		return
	}
	snap, err := cam.Snapshot()
	if err != nil {
		m.lastErr = err
		m.preview = nil
		return
	}
	m.preview = &image.RGBA{
		Pix:    snap.Pix,
		Stride: snap.Width * 4,
		Rect:   image.Rect(0, 0, snap.Width, snap.Height),
	}
}

// View renders the lamp and the side panel.
func (m Model) View() string {
	m.draw()
	canvasView := lipgloss.NewStyle().Padding(1, 1).Render(m.canvas.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, m.styles.panel.Render(m.panel()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

func (m *Model) draw() {
	switch {
	case !m.useCamera:
		m.opts.Surface.View(m.canvas.Sample)
	case m.preview != nil:
		m.canvas.Sample(m.preview)
	default:
		bg, _ := colorful.Hex(render.Background)
		m.canvas.Fill(bg)
	}
}

func (m Model) panel() string {
	st := m.styles
	var s strings.Builder

	s.WriteString(st.header.Render(GradientText("LAVARAND", m.theme.Primary, m.theme.Secondary)) + "\n")

	s.WriteString(st.label.Render("Source") + st.value.Render(m.sourceLabel()) + "\n")
	s.WriteString(st.label.Render("Digest") + st.value.Render(m.opts.Algorithm) + "\n")
	s.WriteString(st.label.Render("Range") + st.value.Render(fmt.Sprintf("%d..%d", m.opts.Request.Min, m.opts.Request.Max)) + "\n")
	s.WriteString(st.label.Render("Ticks") + st.value.Render(fmt.Sprintf("%d", m.opts.Loop.Ticks())) + "\n")

	if m.opts.Activity != nil {
		s.WriteString("\n" + st.label.Render("Activity") + st.progressBar(m.opts.Activity.Level(), panelWidth-14) + "\n")
		s.WriteString(st.label.Render("") + st.sparkline(m.activity, panelWidth-14) + "\n")
	}

	s.WriteString("\n")
	if m.processing {
		s.WriteString(st.warning.Render(AnimatedSpinner(m.frame)+" "+m.status) + "\n")
	} else {
		s.WriteString(st.success.Render(m.status) + "\n")
	}
	if m.lastErr != nil {
		s.WriteString(st.err.Render(errorMessage(m.lastErr)) + "\n")
	}

	s.WriteString("\n" + st.header.Render("CAPTURE LOG") + "\n")
	entries := m.opts.Pipeline.Log().Entries()
	if len(entries) == 0 {
		s.WriteString(st.muted.Render("  press H, U or I") + "\n")
	}
	for i, r := range entries {
		key := r.Key
		if len(key) > keyWidth {
			key = key[:keyWidth-1] + "…"
		}
		line := fmt.Sprintf("%-4s %s", r.Kind, key)
		if i == 0 {
			s.WriteString(st.value.Render(line) + "\n")
		} else {
			s.WriteString(st.label.Width(0).Render(line) + "\n")
		}
		s.WriteString(st.muted.Render("     "+r.Timestamp.Format("15:04:05")+"  seed "+r.SeedPreview) + "\n")
	}

	s.WriteString("\n" + st.separator(panelWidth-4) + "\n")
	s.WriteString(st.key.Render("H:Hex U:UUID I:Int S:Source R:Retry") + "\n")
	s.WriteString(st.key.Render("T:Theme ?:Help Q:Quit"))
	return s.String()
}

func (m Model) sourceLabel() string {
	if !m.useCamera || m.opts.Camera == nil {
		return "simulated"
	}
	return "camera (" + m.opts.Camera.State().String() + ")"
}

func errorMessage(err error) string {
	var de *capture.DeviceError
	switch {
	case errors.As(err, &de):
		return de.Message()
	case errors.Is(err, capture.ErrSourceUnavailable):
		return "source not ready"
	}
	return err.Error()
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  H        - Derive a hex key         ║
║  U        - Derive a UUID            ║
║  I        - Derive an integer        ║
║  S        - Switch lamp / camera     ║
║  R        - Retry the camera         ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// Run blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
