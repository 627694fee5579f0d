package objtable

// Typed provides type-safe access to objects of a single type.
type Typed[T Object] struct {
	table *Table
	funcs Funcs
	typ   Type
}

// NewTyped binds a type tag and operation table to t.
func NewTyped[T Object](t *Table, typ Type, funcs Funcs) *Typed[T] {
	return &Typed[T]{table: t, typ: typ, funcs: funcs}
}

// Type returns the bound type tag.
func (tt *Typed[T]) Type() Type {
	return tt.typ
}

// Table returns the underlying table.
func (tt *Typed[T]) Table() *Table {
	return tt.table
}

// Alloc stores obj and returns its handle.
func (tt *Typed[T]) Alloc(obj T) (Handle, error) {
	return tt.table.Alloc(obj, tt.typ, tt.funcs)
}

// Get resolves h with the table lock left held, see Table.Get.
func (tt *Typed[T]) Get(h Handle) (T, bool) {
	var zero T
	obj, ok := tt.table.Get(h, tt.typ)
	if !ok {
		return zero, false
	}
	v, ok := obj.(T)
	if !ok {
		tt.table.Release()
		return zero, false
	}
	return v, true
}

// Release leaves the lock taken by a successful Get.
func (tt *Typed[T]) Release() {
	tt.table.Release()
}

// With calls fn with the object behind h while holding the table lock.
func (tt *Typed[T]) With(h Handle, fn func(T)) bool {
	v, ok := tt.Get(h)
	if !ok {
		return false
	}
	defer tt.table.Release()
	fn(v)
	return true
}
