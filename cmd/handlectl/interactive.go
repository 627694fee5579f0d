package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/handle-table/errors"
	"github.com/wippyai/handle-table/gdi"
	"github.com/wippyai/handle-table/objtable"
	"github.com/wippyai/handle-table/snapshot"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxEvents = 8

// eventLog keeps the most recent table events for display.
type eventLog struct {
	lines []string
	mu    sync.Mutex
}

func (l *eventLog) OnObjectEvent(e objtable.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%-9s %-8s %v", e.Kind, e.Type, e.Handle))
	if len(l.lines) > maxEvents {
		l.lines = l.lines[len(l.lines)-maxEvents:]
	}
}

func (l *eventLog) recent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

type interactiveModel struct {
	err    error
	gctx   *gdi.Context
	events *eventLog
	result string
	input  textinput.Model
}

func newInteractiveModel(gctx *gdi.Context) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "pen | brush | font | bitmap | palette | dc | stock NAME | select DC OBJ | del H | ref H | unref H | sys H | free H"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()

	events := &eventLog{}
	gctx.Table().Subscribe(events)

	return &interactiveModel{gctx: gctx, events: events, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.gctx.Table().Unsubscribe(m.events)
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "q" || line == "quit" {
				m.gctx.Table().Unsubscribe(m.events)
				return m, tea.Quit
			}
			m.result, m.err = m.execute(line)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// execute runs one command line against the context.
func (m *interactiveModel) execute(line string) (result string, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	// Unbalanced selections are a caller bug and must abort the inspector.
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*errors.Error); ok && e.Kind == errors.KindRefUnderflow {
				panic(r)
			}
			err = fmt.Errorf("%v", r)
		}
	}()

	if fields[0] == "stock" {
		if len(fields) < 2 {
			return "", fmt.Errorf("stock takes a name, e.g. %q", gdi.BlackPen.String())
		}
		so, err := gdi.ParseStockObject(strings.Join(fields[1:], " "))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s is %v", so, m.gctx.Stock(so)), nil
	}

	args, err := parseHandles(fields[1:])
	if err != nil {
		return "", err
	}
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d handle(s)", fields[0], n)
		}
		return nil
	}

	c := m.gctx
	switch fields[0] {
	case "pen":
		return created(c.CreatePen(gdi.PenSolid, 1, gdi.RGB(0, 0, 0)))
	case "brush":
		return created(c.CreateSolidBrush(gdi.RGB(0xff, 0xff, 0xff)))
	case "font":
		return created(c.CreateFont("System", 16))
	case "bitmap":
		return created(c.CreateBitmap(16, 16, 32))
	case "palette":
		return created(c.CreatePalette([]gdi.Color{gdi.RGB(0, 0, 0), gdi.RGB(0xff, 0xff, 0xff)}))
	case "dc":
		return created(c.CreateDC())
	case "select":
		if err := need(2); err != nil {
			return "", err
		}
		if typ := c.GetObjectType(args[0]); typ != gdi.TypeDC {
			return "", errors.TypeMismatch(errors.PhaseLookup, uint32(args[0]), gdi.TypeDC.String(), typ.String())
		}
		prev, ok := c.SelectObject(args[0], args[1])
		return outcome(ok, args[1], "previous %v", prev)
	case "del":
		if err := need(1); err != nil {
			return "", err
		}
		return outcome(c.DeleteObject(args[0]), args[0], "delete %v", args[0])
	case "ref":
		if err := need(1); err != nil {
			return "", err
		}
		h := c.Table().IncRef(args[0])
		return outcome(h != 0, args[0], "refcount %d", c.Table().RefCount(h))
	case "unref":
		if err := need(1); err != nil {
			return "", err
		}
		return outcome(c.Table().DecRef(args[0]), args[0], "released %v", args[0])
	case "sys":
		if err := need(1); err != nil {
			return "", err
		}
		return outcome(c.MakeSystem(args[0], true), args[0], "%v is now a system object", args[0])
	case "free":
		if err := need(1); err != nil {
			return "", err
		}
		return outcome(c.DeleteClientObj(args[0]), args[0], "slot of %v released", args[0])
	default:
		return "", fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseHandles(fields []string) ([]objtable.Handle, error) {
	hs := make([]objtable.Handle, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad handle %q", f)
		}
		hs[i] = objtable.Handle(v)
	}
	return hs, nil
}

func created(h objtable.Handle, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("created %v", h), nil
}

func outcome(ok bool, h objtable.Handle, format string, args ...any) (string, error) {
	if !ok {
		return "", errors.InvalidHandle(errors.PhaseLookup, uint32(h))
	}
	return fmt.Sprintf(format, args...), nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	stats := m.gctx.Table().Stats()
	b.WriteString(titleStyle.Render("Object Table"))
	b.WriteString(fmt.Sprintf(" %d live, %d/%d slots used\n\n", stats.Live, stats.Used, stats.Capacity))

	b.WriteString(snapshot.Render(snapshot.FromSlots(m.gctx.Table().Snapshot())))
	b.WriteString("\n\n")

	for _, line := range m.events.recent() {
		b.WriteString(eventStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.result != "" {
		b.WriteString(resultStyle.Render(m.result))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • esc quit"))
	return b.String()
}

func runInteractive(cfg Config) error {
	gctx, err := gdi.NewContext(cfg.Table)
	if err != nil {
		return err
	}
	p := tea.NewProgram(newInteractiveModel(gctx), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
