package objtable

import "fmt"

// Handle is an opaque reference to an object in a table.
// The low 16 bits carry the slot index, the high 16 bits the slot generation.
// Handle 0 is reserved and always invalid.
type Handle uint32

const (
	handleIndexBits = 16
	handleIndexMask = 1<<handleIndexBits - 1

	// MaxCapacity is the largest slot count a 16-bit index can address.
	MaxCapacity = 1 << handleIndexBits
)

func (h Handle) index() int {
	return int(h & handleIndexMask)
}

func (h Handle) generation() uint16 {
	return uint16(h >> handleIndexBits)
}

// IsWildcard reports whether the handle has no generation bits.
// Such a handle matches whatever object currently occupies its slot.
func (h Handle) IsWildcard() bool {
	return h != 0 && h>>handleIndexBits == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%#08x", uint32(h))
}

// Type tags the kind of object stored in a slot.
// Type 0 is reserved to mark free slots.
type Type uint16

// Header is the bookkeeping record every managed object embeds.
// Its fields are owned by the table and only touched under the table lock.
type Header struct {
	funcs    Funcs
	selcount uint32
	system   bool
	deleted  bool
}

// ObjectHeader returns the header itself, so embedding Header satisfies Object.
func (h *Header) ObjectHeader() *Header {
	return h
}

// Object is implemented by anything that can be stored in a table.
// Implementations embed Header:
//
//	type Pen struct {
//	    objtable.Header
//	    Width int
//	}
type Object interface {
	ObjectHeader() *Header
}

// Funcs is the per-type operation table the table dispatches to.
type Funcs interface {
	// Destroy releases type-specific resources. It is called exactly once,
	// outside the table lock, after the slot has been released; h is the
	// handle the object had.
	Destroy(h Handle, obj Object) bool
}

// Unrealizer is optionally implemented by Funcs for objects with realized state.
type Unrealizer interface {
	Unrealize(h Handle, obj Object) bool
}

// InfoGetter is optionally implemented by Funcs to describe an object.
type InfoGetter interface {
	GetInfo(h Handle, obj Object) any
}

// EventType identifies an object lifecycle notification.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventFreed
	EventDeferred
	EventPreserved
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventFreed:
		return "freed"
	case EventDeferred:
		return "deferred"
	case EventPreserved:
		return "preserved"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event represents an object lifecycle event.
type Event struct {
	Object Object
	Handle Handle
	Type   Type
	Kind   EventType
}

// Observer receives notifications about object lifecycle events.
// Notifications are delivered outside the table lock.
type Observer interface {
	OnObjectEvent(Event)
}

// SlotInfo describes one slot at the time of a Snapshot.
type SlotInfo struct {
	TypeName   string
	Handle     Handle
	Index      int
	RefCount   uint32
	Type       Type
	Generation uint8
	Free       bool
	Deleted    bool
	System     bool
}

// Stats summarises table occupancy.
type Stats struct {
	Capacity    int
	FirstHandle int
	Used        int // slots ever handed out
	Live        int
	Free        int // slots waiting on the free list
}
