package snapshot

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/handle-table/errors"
	"github.com/wippyai/handle-table/objtable"
)

// Format selects a snapshot encoding.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat parses a format name. The empty string means FormatText.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return "", errors.New(errors.PhaseSnapshot, errors.KindUnsupported).
			Value(s).Detail("unknown snapshot format %q", s).Build()
	}
}

// Entry is the serialized form of one table slot.
type Entry struct {
	Type     string `yaml:"type" cbor:"1,keyasint"`
	Handle   uint32 `yaml:"handle" cbor:"2,keyasint"`
	Index    int    `yaml:"index" cbor:"3,keyasint"`
	RefCount uint32 `yaml:"refcount,omitempty" cbor:"4,keyasint,omitempty"`
	Gen      uint8  `yaml:"gen" cbor:"5,keyasint"`
	Free     bool   `yaml:"free,omitempty" cbor:"6,keyasint,omitempty"`
	Deleted  bool   `yaml:"deleted,omitempty" cbor:"7,keyasint,omitempty"`
	System   bool   `yaml:"system,omitempty" cbor:"8,keyasint,omitempty"`
}

// FromSlots converts table slot information to entries.
func FromSlots(slots []objtable.SlotInfo) []Entry {
	entries := make([]Entry, len(slots))
	for i, s := range slots {
		entries[i] = Entry{
			Type:     s.TypeName,
			Handle:   uint32(s.Handle),
			Index:    s.Index,
			RefCount: s.RefCount,
			Gen:      s.Generation,
			Free:     s.Free,
			Deleted:  s.Deleted,
			System:   s.System,
		}
	}
	return entries
}

// Write encodes slots to w in the given format.
func Write(w io.Writer, format Format, slots []objtable.SlotInfo) error {
	entries := FromSlots(slots)
	switch format {
	case FormatText:
		_, err := io.WriteString(w, Render(entries)+"\n")
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "encode yaml")
		}
		return enc.Close()
	case FormatCBOR:
		if err := cbor.NewEncoder(w).Encode(entries); err != nil {
			return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "encode cbor")
		}
		return nil
	default:
		return errors.Unsupported(errors.PhaseSnapshot, fmt.Sprintf("write %q", format))
	}
}

// Read decodes entries written by Write. The text format cannot be read back.
func Read(r io.Reader, format Format) ([]Entry, error) {
	var entries []Entry
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "decode yaml")
		}
	case FormatCBOR:
		if err := cbor.NewDecoder(r).Decode(&entries); err != nil {
			return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "decode cbor")
		}
	default:
		return nil, errors.Unsupported(errors.PhaseSnapshot, fmt.Sprintf("read %q", format))
	}

	for i, e := range entries {
		if int(e.Handle&0xffff) != e.Index {
			return nil, errors.InvalidData(errors.PhaseSnapshot,
				fmt.Sprintf("entry %d: handle %#08x does not address slot %d", i, e.Handle, e.Index))
		}
	}
	return entries, nil
}

// Leaks returns the live entries of after whose handle was not live in before,
// ordered by handle index.
func Leaks(before, after []Entry) []Entry {
	seen := make(map[uint32]struct{}, len(before))
	for _, e := range before {
		if !e.Free {
			seen[e.Handle] = struct{}{}
		}
	}

	var leaks []Entry
	for _, e := range after {
		if e.Free {
			continue
		}
		if _, ok := seen[e.Handle]; ok {
			continue
		}
		leaks = append(leaks, e)
	}
	sort.Slice(leaks, func(i, j int) bool { return leaks[i].Index < leaks[j].Index })
	return leaks
}

// LeakError wraps leaked entries in an *errors.LeakError, or returns nil.
func LeakError(leaks []Entry) error {
	if len(leaks) == 0 {
		return nil
	}
	list := make([]errors.Leak, len(leaks))
	for i, e := range leaks {
		list[i] = errors.Leak{TypeName: e.Type, Handle: e.Handle}
	}
	return errors.NewLeakError(list)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	freeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	deletedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	liveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))
)

// Render formats entries as a fixed-width table.
func Render(entries []Entry) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-8s %5s %4s %s", "HANDLE", "TYPE", "REFS", "GEN", "FLAGS")))

	live := 0
	for _, e := range entries {
		line := fmt.Sprintf("%#08x %-8s %5d %4d %s", e.Handle, e.Type, e.RefCount, e.Gen, flags(e))
		b.WriteByte('\n')
		switch {
		case e.Free:
			b.WriteString(freeStyle.Render(line))
		case e.Deleted:
			b.WriteString(deletedStyle.Render(line))
			live++
		case e.System:
			b.WriteString(systemStyle.Render(line))
			live++
		default:
			b.WriteString(liveStyle.Render(line))
			live++
		}
	}
	fmt.Fprintf(&b, "\n%d live, %d free", live, len(entries)-live)
	return b.String()
}

func flags(e Entry) string {
	var f []string
	if e.Free {
		f = append(f, "free")
	}
	if e.Deleted {
		f = append(f, "deleted")
	}
	if e.System {
		f = append(f, "system")
	}
	return strings.Join(f, ",")
}
