package placebo

import (
	"fmt"
	"strings"
)

// enumEntry binds a Go enumeration value to its native tag and name.
type enumEntry[E comparable] struct {
	value  E
	native int32
	name   string
}

// enumTable is the single bidirectional mapping of an enumeration.
type enumTable[E comparable] struct {
	kind     string
	entries  []enumEntry[E]
	byValue  map[E]int
	byNative map[int32]int
	byName   map[string]int
}

func newEnumTable[E comparable](kind string, entries ...enumEntry[E]) *enumTable[E] {
	t := &enumTable[E]{
		kind:     kind,
		entries:  entries,
		byValue:  make(map[E]int, len(entries)),
		byNative: make(map[int32]int, len(entries)),
		byName:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if _, dup := t.byValue[e.value]; dup {
			panic(fmt.Sprintf("placebo: duplicate %s value %v", kind, e.value))
		}
		if _, dup := t.byNative[e.native]; dup {
			panic(fmt.Sprintf("placebo: duplicate %s tag %d", kind, e.native))
		}
		t.byValue[e.value] = i
		t.byNative[e.native] = i
		t.byName[e.name] = i
	}
	return t
}

// seqTable builds a table whose native tags follow the declaration order.
func seqTable[E comparable](kind string, values []E, names ...string) *enumTable[E] {
	if len(values) != len(names) {
		panic(fmt.Sprintf("placebo: %s: %d values, %d names", kind, len(values), len(names)))
	}
	entries := make([]enumEntry[E], len(values))
	for i := range values {
		entries[i] = enumEntry[E]{value: values[i], native: int32(i), name: names[i]}
	}
	return newEnumTable(kind, entries...)
}

func (t *enumTable[E]) tag(v E) int32 {
	if i, ok := t.byValue[v]; ok {
		return t.entries[i].native
	}
	return -1
}

func (t *enumTable[E]) fromTag(n int32) (E, error) {
	if i, ok := t.byNative[n]; ok {
		return t.entries[i].value, nil
	}
	var zero E
	return zero, fmt.Errorf("%w: unknown %s tag %d", ErrInvalidParams, t.kind, n)
}

func (t *enumTable[E]) name(v E) string {
	if i, ok := t.byValue[v]; ok {
		return t.entries[i].name
	}
	return fmt.Sprintf("%s(%v)", t.kind, v)
}

func (t *enumTable[E]) parse(s string) (E, error) {
	if i, ok := t.byName[strings.ToLower(s)]; ok {
		return t.entries[i].value, nil
	}
	var zero E
	return zero, fmt.Errorf("%w: unknown %s %q", ErrInvalidParams, t.kind, s)
}

func (t *enumTable[E]) values() []E {
	out := make([]E, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.value
	}
	return out
}
