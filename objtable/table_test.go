package objtable

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/handle-table/errors"
)

const (
	typeA Type = 1
	typeB Type = 2
)

type testObj struct {
	Header
	name string
}

type testFuncs struct {
	mu        sync.Mutex
	destroyed map[string]int
	onDestroy func(h Handle, obj Object)
}

func newTestFuncs() *testFuncs {
	return &testFuncs{destroyed: make(map[string]int)}
}

func (f *testFuncs) Destroy(h Handle, obj Object) bool {
	if f.onDestroy != nil {
		f.onDestroy(h, obj)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed[obj.(*testObj).name]++
	return true
}

func (f *testFuncs) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed[name]
}

func newSmallTable(t *testing.T, capacity int) *Table {
	t.Helper()
	table, err := New(Options{Capacity: capacity, FirstHandle: 0})
	require.NoError(t, err)
	return table
}

func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	return logs
}

func TestTable_RoundTrip(t *testing.T) {
	table := NewDefault()
	obj := &testObj{name: "a"}

	h, err := table.Alloc(obj, typeA, nil)
	require.NoError(t, err)
	require.NotZero(t, h)
	assert.Equal(t, 32, h.index(), "first handle index should honour FirstHandle")

	got, ok := table.Get(h, typeA)
	require.True(t, ok)
	table.Release()
	assert.Same(t, obj, got)

	got, typ, ok := table.GetAny(h)
	require.True(t, ok)
	table.Release()
	assert.Same(t, obj, got)
	assert.Equal(t, typeA, typ)
}

func TestTable_GetTypeMismatch(t *testing.T) {
	table := NewDefault()
	h, err := table.Alloc(&testObj{}, typeA, nil)
	require.NoError(t, err)

	_, ok := table.Get(h, typeB)
	require.False(t, ok)

	// the lock must have been released by the mismatch
	assert.Equal(t, typeA, table.TypeOf(h))
}

func TestTable_AllocErrors(t *testing.T) {
	table := NewDefault()

	h, err := table.Alloc(&testObj{}, 0, nil)
	assert.Zero(t, h)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindReservedType})

	h, err = table.Alloc(nil, typeA, nil)
	assert.Zero(t, h)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindNilObject})

	assert.Equal(t, 0, table.Len())
}

func TestTable_AllocResetsHeader(t *testing.T) {
	table := NewDefault()
	obj := &testObj{}
	obj.selcount = 5
	obj.deleted = true
	obj.system = true

	h, err := table.Alloc(obj, typeA, nil)
	require.NoError(t, err)
	assert.Zero(t, table.RefCount(h))
	assert.False(t, table.IsSystem(h))
	assert.False(t, table.IsDeleted(h))
}

func TestTable_StaleGeneration(t *testing.T) {
	table := newSmallTable(t, 1)

	old, err := table.Alloc(&testObj{name: "old"}, typeA, nil)
	require.NoError(t, err)
	_, ok := table.FreeSlot(old)
	require.True(t, ok)

	fresh, err := table.Alloc(&testObj{name: "new"}, typeA, nil)
	require.NoError(t, err)
	require.Equal(t, old.index(), fresh.index(), "slot should be reused")
	require.NotEqual(t, old, fresh)

	_, _, ok = table.GetAny(old)
	assert.False(t, ok, "stale handle must not resolve")
	assert.False(t, table.Delete(old))
	assert.Zero(t, table.IncRef(old))
	assert.Equal(t, 1, table.Len())
}

func TestTable_GenerationWrap(t *testing.T) {
	table := newSmallTable(t, 1)
	seen := make(map[uint16]bool)

	for i := 0; i < 600; i++ {
		h, err := table.Alloc(&testObj{}, typeA, nil)
		require.NoError(t, err)
		require.NotZero(t, h)
		g := h.generation()
		require.NotZero(t, g)
		require.NotEqual(t, uint16(0xff), g)
		require.False(t, h.IsWildcard())
		seen[g] = true

		_, ok := table.FreeSlot(h)
		require.True(t, ok)
	}
	assert.Len(t, seen, 254)
}

func TestTable_FreeSlot(t *testing.T) {
	table := NewDefault()
	funcs := newTestFuncs()
	obj := &testObj{name: "a"}

	h, err := table.Alloc(obj, typeA, funcs)
	require.NoError(t, err)
	table.IncRef(h)

	got, ok := table.FreeSlot(h)
	require.True(t, ok)
	assert.Same(t, obj, got)
	assert.Zero(t, funcs.count("a"), "FreeSlot must not call Destroy")
	assert.Zero(t, table.TypeOf(h))
}

func TestTable_FreeUnmanaged(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)
	table := NewDefault()
	funcs := newTestFuncs()

	managed, err := table.Alloc(&testObj{name: "m"}, typeA, funcs)
	require.NoError(t, err)
	table.IncRef(managed)
	plain, err := table.Alloc(&testObj{name: "p"}, typeB, nil)
	require.NoError(t, err)

	obj, ok := table.FreeUnmanaged(managed)
	assert.False(t, ok)
	assert.Nil(t, obj)
	assert.Equal(t, typeA, table.TypeOf(managed))
	assert.EqualValues(t, 1, table.RefCount(managed))
	assert.Equal(t, 1, logs.FilterMessage("refusing to free managed object").Len())

	obj, ok = table.FreeUnmanaged(plain)
	require.True(t, ok)
	assert.Equal(t, "p", obj.(*testObj).name)
	assert.Zero(t, table.TypeOf(plain))

	_, ok = table.FreeUnmanaged(plain)
	assert.False(t, ok)
	assert.Zero(t, funcs.count("m"))
}

func TestTable_FreeSlotInvalidIsNoop(t *testing.T) {
	table := newSmallTable(t, 4)
	a, err := table.Alloc(&testObj{name: "a"}, typeA, nil)
	require.NoError(t, err)
	b, err := table.Alloc(&testObj{name: "b"}, typeA, nil)
	require.NoError(t, err)
	_, ok := table.FreeSlot(b)
	require.True(t, ok)

	before := table.Snapshot()
	statsBefore := table.Stats()

	for _, h := range []Handle{0, b, a + 1<<16, Handle(3), Handle(0xffff)} {
		obj, ok := table.FreeSlot(h)
		assert.False(t, ok, "handle %v", h)
		assert.Nil(t, obj)
	}

	if diff := cmp.Diff(before, table.Snapshot()); diff != "" {
		t.Errorf("snapshot changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, statsBefore, table.Stats())
}

func TestTable_Exhaustion(t *testing.T) {
	table := newSmallTable(t, 3)
	var handles []Handle
	for i := 0; i < 3; i++ {
		h, err := table.Alloc(&testObj{}, typeA, nil)
		require.NoError(t, err)
		handles = append(handles, h)
	}

	h, err := table.Alloc(&testObj{}, typeA, nil)
	assert.Zero(t, h)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseAlloc, Kind: errors.KindExhausted})

	_, ok := table.FreeSlot(handles[1])
	require.True(t, ok)

	h, err = table.Alloc(&testObj{}, typeA, nil)
	require.NoError(t, err)
	assert.Equal(t, handles[1].index(), h.index())
}

func TestTable_ExhaustionLogsAndDumps(t *testing.T) {
	logs := observeLogs(t, zapcore.DebugLevel)
	table := newSmallTable(t, 2)
	for i := 0; i < 2; i++ {
		_, err := table.Alloc(&testObj{}, typeA, nil)
		require.NoError(t, err)
	}

	_, err := table.Alloc(&testObj{}, typeA, nil)
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("out of object handles").FilterField(zap.Int("capacity", 2)).Len())
	assert.Equal(t, 2, logs.FilterMessage("slot").Len(), "exhaustion should dump every slot")
}

func TestTable_ExhaustionNoDumpWithoutDebug(t *testing.T) {
	logs := observeLogs(t, zapcore.InfoLevel)
	table := newSmallTable(t, 1)
	_, err := table.Alloc(&testObj{}, typeA, nil)
	require.NoError(t, err)

	_, err = table.Alloc(&testObj{}, typeA, nil)
	require.Error(t, err)

	assert.Equal(t, 1, logs.FilterMessage("out of object handles").Len())
	assert.Zero(t, logs.FilterMessage("slot").Len())
}

// Capacity 4: A-D fill the table, E fails, deleting B frees its slot for F,
// and B's old handle does not resolve to F.
func TestTable_EndToEndScenario(t *testing.T) {
	table := newSmallTable(t, 4)
	funcs := newTestFuncs()

	handles := make(map[string]Handle)
	for _, name := range []string{"A", "B", "C", "D"} {
		h, err := table.Alloc(&testObj{name: name}, typeA, funcs)
		require.NoError(t, err)
		handles[name] = h
	}
	require.Equal(t, 4, table.Len())

	e, err := table.Alloc(&testObj{name: "E"}, typeA, funcs)
	require.Error(t, err)
	require.Zero(t, e)

	require.True(t, table.Delete(handles["B"]))
	assert.Equal(t, 1, funcs.count("B"))
	assert.Equal(t, 3, table.Len())

	f, err := table.Alloc(&testObj{name: "F"}, typeA, funcs)
	require.NoError(t, err)
	assert.Equal(t, handles["B"].index(), f.index())
	assert.Greater(t, f.generation(), handles["B"].generation())

	_, ok := table.Get(handles["B"], typeA)
	assert.False(t, ok)

	obj, ok := table.Get(f, typeA)
	require.True(t, ok)
	table.Release()
	assert.Equal(t, "F", obj.(*testObj).name)
}

func TestTable_WildcardHandle(t *testing.T) {
	table := NewDefault()
	obj := &testObj{}
	h, err := table.Alloc(obj, typeA, nil)
	require.NoError(t, err)

	wild := Handle(h.index())
	require.True(t, wild.IsWildcard())

	got, ok := table.Get(wild, typeA)
	require.True(t, ok)
	table.Release()
	assert.Same(t, obj, got)
	assert.Equal(t, h, table.FullHandle(wild))
	assert.Zero(t, table.FullHandle(h+1<<16))
}

func TestTable_InvalidHandleLogging(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)
	table := NewDefault()

	_, _, ok := table.GetAny(0)
	assert.False(t, ok)
	assert.False(t, table.Delete(0))
	assert.Zero(t, logs.Len(), "null handle must fail silently")

	_, _, ok = table.GetAny(0x12345)
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("invalid handle").Len())
}

func TestTable_TypeMismatchNotLogged(t *testing.T) {
	table := NewDefault()
	h, err := table.Alloc(&testObj{}, typeA, nil)
	require.NoError(t, err)

	logs := observeLogs(t, zapcore.DebugLevel)
	_, ok := table.Get(h, typeB)
	assert.False(t, ok)
	assert.Zero(t, logs.Len())
}

func TestTable_With(t *testing.T) {
	table := NewDefault()
	h, err := table.Alloc(&testObj{name: "a"}, typeA, nil)
	require.NoError(t, err)

	var name string
	assert.True(t, table.With(h, typeA, func(o Object) { name = o.(*testObj).name }))
	assert.Equal(t, "a", name)
	assert.False(t, table.With(h, typeB, func(Object) { t.Fatal("called on mismatch") }))
	assert.Equal(t, 1, table.Len())
}

type testObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *testObserver) OnObjectEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *testObserver) kinds() []EventType {
	o.mu.Lock()
	defer o.mu.Unlock()
	var kinds []EventType
	for _, e := range o.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestTable_Observer(t *testing.T) {
	table := NewDefault()
	obs := &testObserver{}
	table.Subscribe(obs)

	h, err := table.Alloc(&testObj{}, typeA, nil)
	require.NoError(t, err)
	table.IncRef(h)
	table.Delete(h)
	table.DecRef(h)

	sys, err := table.Alloc(&testObj{}, typeB, nil)
	require.NoError(t, err)
	table.SetSystem(sys, true)
	table.Delete(sys)

	assert.Equal(t, []EventType{EventAllocated, EventDeferred, EventFreed, EventAllocated, EventPreserved}, obs.kinds())

	table.Unsubscribe(obs)
	_, err = table.Alloc(&testObj{}, typeA, nil)
	require.NoError(t, err)
	assert.Len(t, obs.kinds(), 5, "should not receive events after Unsubscribe")
}

func TestTable_Concurrent(t *testing.T) {
	table := newSmallTable(t, 128)
	funcs := newTestFuncs()
	var g errgroup.Group

	for i := 0; i < 64; i++ {
		g.Go(func() error {
			for j := 0; j < 200; j++ {
				h, err := table.Alloc(&testObj{name: "x"}, typeA, funcs)
				if err != nil {
					return err
				}
				table.IncRef(h)
				if _, ok := table.Get(h, typeA); ok {
					table.Release()
				}
				table.Delete(h)
				table.DecRef(h)
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 64*200, funcs.count("x"))
}

func TestTable_StringerAndTypeNames(t *testing.T) {
	RegisterTypeName(Type(900), "widget")
	assert.Equal(t, "widget", Type(900).String())
	assert.Equal(t, "type(901)", Type(901).String())
	assert.Equal(t, "free", Type(0).String())
	assert.Equal(t, "0x00010020", Handle(0x10020).String())
}
