package objtable

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	typeNamesMu sync.RWMutex
	typeNames   = make(map[Type]string)
)

// RegisterTypeName associates a readable name with a type tag for logs and dumps.
func RegisterTypeName(t Type, name string) {
	typeNamesMu.Lock()
	defer typeNamesMu.Unlock()
	typeNames[t] = name
}

func (t Type) String() string {
	if t == 0 {
		return "free"
	}
	typeNamesMu.RLock()
	name, ok := typeNames[t]
	typeNamesMu.RUnlock()
	if ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint16(t))
}

// Snapshot returns one SlotInfo per slot handed out so far, free ones included.
func (t *Table) Snapshot() []SlotInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	infos := make([]SlotInfo, 0, t.nextUnused-t.first)
	for idx := t.first; idx < t.nextUnused; idx++ {
		s := &t.slots[idx]
		info := SlotInfo{
			Handle:     t.encode(idx),
			Index:      idx,
			Generation: s.gen,
			Type:       s.typ,
			TypeName:   s.typ.String(),
			Free:       s.typ == 0,
		}
		if !info.Free {
			hdr := s.obj.ObjectHeader()
			info.RefCount = hdr.selcount
			info.Deleted = hdr.deleted
			info.System = hdr.system
		}
		infos = append(infos, info)
	}
	return infos
}

// Stats returns occupancy counters.
func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Stats{
		Capacity:    len(t.slots),
		FirstHandle: t.first,
		Used:        t.nextUnused - t.first,
		Live:        t.live,
		Free:        t.freeCount,
	}
}

// Dump logs every slot at debug level. It does nothing unless debug logging is enabled.
func (t *Table) Dump() {
	if !traceOn() {
		return
	}
	log := Logger()
	infos := t.Snapshot()

	log.Debug("object table", zap.Int("capacity", len(t.slots)), zap.Int("slots", len(infos)))
	for _, info := range infos {
		if info.Free {
			log.Debug("slot free", zap.Stringer("handle", info.Handle))
			continue
		}
		log.Debug("slot",
			zap.Stringer("handle", info.Handle),
			zap.String("type", info.TypeName),
			zap.Uint32("selcount", info.RefCount),
			zap.Bool("deleted", info.Deleted),
			zap.Bool("system", info.System))
	}
}
