package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Phase indicates which table operation produced the error
type Phase string

const (
	PhaseAlloc    Phase = "alloc"    // slot allocation
	PhaseLookup   Phase = "lookup"   // handle decode and typed lookup
	PhaseRefCount Phase = "refcount" // selection counting
	PhaseDelete   Phase = "delete"   // delete requests and slot release
	PhaseConfig   Phase = "config"   // options and config files
	PhaseSnapshot Phase = "snapshot" // dump encoding and decoding
	PhaseObject   Phase = "object"   // type-specific object layer
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle Kind = "invalid_handle"
	KindTypeMismatch  Kind = "type_mismatch"
	KindExhausted     Kind = "exhausted"
	KindReservedType  Kind = "reserved_type"
	KindNilObject     Kind = "nil_object"
	KindRefUnderflow  Kind = "ref_underflow"
	KindInvalidConfig Kind = "invalid_config"
	KindInvalidData   Kind = "invalid_data"
	KindUnsupported   Kind = "unsupported"
	KindNotFound      Kind = "not_found"
	KindInvalidInput  Kind = "invalid_input"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	TypeName string
	Detail   string
	Handle   uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Handle != 0 {
		fmt.Fprintf(&b, " handle %#x", e.Handle)
	}

	if e.TypeName != "" {
		b.WriteString(": type ")
		b.WriteString(e.TypeName)
	}

	if e.Detail != "" {
		if e.TypeName != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the offending handle value
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// TypeName sets the object type name
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidHandle creates an invalid handle error
func InvalidHandle(phase Phase, h uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Handle: h,
	}
}

// TypeMismatch creates a typed lookup mismatch error
func TypeMismatch(phase Phase, h uint32, want, got string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Handle:   h,
		TypeName: got,
		Detail:   fmt.Sprintf("expected %s", want),
	}
}

// Exhausted creates a table exhaustion error
func Exhausted(typeName string, capacity int) *Error {
	return &Error{
		Phase:    PhaseAlloc,
		Kind:     KindExhausted,
		TypeName: typeName,
		Detail:   fmt.Sprintf("out of object handles (capacity %d)", capacity),
		Value:    capacity,
	}
}

// ReservedType creates an error for allocations using the free-slot type tag
func ReservedType() *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindReservedType,
		Detail: "type 0 is reserved for free slots",
	}
}

// NilObject creates an error for allocations without an object
func NilObject(typeName string) *Error {
	return &Error{
		Phase:    PhaseAlloc,
		Kind:     KindNilObject,
		TypeName: typeName,
		Detail:   "nil object",
	}
}

// RefUnderflow creates the error carried by the selection count underflow panic
func RefUnderflow(h uint32, typeName string) *Error {
	return &Error{
		Phase:    PhaseRefCount,
		Kind:     KindRefUnderflow,
		Handle:   h,
		TypeName: typeName,
		Detail:   "selection count decremented below zero",
	}
}

// InvalidConfig creates a configuration validation error
func InvalidConfig(field string, value any, detail string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Detail: fmt.Sprintf("%s: %s", field, detail),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Leak represents a single object still live after it was expected to be gone
type Leak struct {
	TypeName string
	Handle   uint32
}

// LeakError is returned when a leak check finds live objects
type LeakError struct {
	Leaks []Leak
}

// NewLeakError creates an error from a list of leaked objects
func NewLeakError(leaks []Leak) *LeakError {
	return &LeakError{Leaks: leaks}
}

func (e *LeakError) Error() string {
	if len(e.Leaks) == 0 {
		return "[snapshot] leak: no objects specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("leaked %d object(s):\n", len(e.Leaks)))

	// Group by type for cleaner output
	byType := make(map[string][]uint32)
	var typeOrder []string
	for _, l := range e.Leaks {
		name := l.TypeName
		if name == "" {
			name = "unknown"
		}
		if _, exists := byType[name]; !exists {
			typeOrder = append(typeOrder, name)
		}
		byType[name] = append(byType[name], l.Handle)
	}

	for _, name := range typeOrder {
		handles := byType[name]
		sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
		b.WriteString("\n  ")
		b.WriteString(name)
		b.WriteString(":\n")
		for _, h := range handles {
			fmt.Fprintf(&b, "    - %#08x\n", h)
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *LeakError) Is(target error) bool {
	_, ok := target.(*LeakError)
	return ok
}
