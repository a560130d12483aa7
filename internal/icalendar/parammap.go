package icalendar

import (
	"fmt"
	"sort"
)

// Values is a non-empty parameter value list.
type Values struct {
	First string
	Rest  []string
}

// Len returns the number of values, always at least one.
func (v Values) Len() int { return 1 + len(v.Rest) }

// All returns the values in order.
func (v Values) All() []string {
	return append([]string{v.First}, v.Rest...)
}

// Single returns the only value or an error when there are several.
func (v Values) Single() (string, error) {
	if len(v.Rest) > 0 {
		return "", fmt.Errorf("%w: expected a single value, got %d", ErrInvalidParam, v.Len())
	}
	return v.First, nil
}

type paramEntry struct {
	name   Name
	values Values
	seq    int
}

// ParamMap holds the parameters of one content line. Registered and
// extension names are kept apart. The zero value is empty and ready to use.
type ParamMap struct {
	registered map[string]*paramEntry
	extension  map[string]*paramEntry
	seq        int
}

func (m *ParamMap) bucket(name Name, create bool) map[string]*paramEntry {
	if name.Extension {
		if m.extension == nil && create {
			m.extension = make(map[string]*paramEntry)
		}
		return m.extension
	}
	if m.registered == nil && create {
		m.registered = make(map[string]*paramEntry)
	}
	return m.registered
}

// Add appends values under name. A repeated name extends the existing list.
func (m *ParamMap) Add(name Name, first string, rest ...string) {
	b := m.bucket(name, true)
	key := name.key()
	if e, ok := b[key]; ok {
		e.values.Rest = append(e.values.Rest, first)
		e.values.Rest = append(e.values.Rest, rest...)
		return
	}
	m.seq++
	b[key] = &paramEntry{
		name:   name,
		values: Values{First: first, Rest: append([]string(nil), rest...)},
		seq:    m.seq,
	}
}

// Take removes name and returns its values.
func (m *ParamMap) Take(name Name) (Values, bool) {
	b := m.bucket(name, false)
	key := name.key()
	e, ok := b[key]
	if !ok {
		return Values{}, false
	}
	delete(b, key)
	return e.values, true
}

// TakeName is Take for a name given as text. Invalid names are never present.
func (m *ParamMap) TakeName(name string) (Values, bool) {
	n, err := ParseName(name)
	if err != nil {
		return Values{}, false
	}
	return m.Take(n)
}

// Get returns the values of name without removing them.
func (m *ParamMap) Get(name string) (Values, bool) {
	n, err := ParseName(name)
	if err != nil {
		return Values{}, false
	}
	e, ok := m.bucket(n, false)[n.key()]
	if !ok {
		return Values{}, false
	}
	return e.values, true
}

// Len returns the number of distinct parameter names left.
func (m *ParamMap) Len() int { return len(m.registered) + len(m.extension) }

// Names returns the remaining names in the order they were first added.
func (m *ParamMap) Names() []Name {
	entries := make([]*paramEntry, 0, m.Len())
	for _, e := range m.registered {
		entries = append(entries, e)
	}
	for _, e := range m.extension {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	names := make([]Name, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// CheckNoRegistered fails if any registered parameter is left. Extension
// parameters are always tolerated.
func (m *ParamMap) CheckNoRegistered() error {
	if len(m.registered) == 0 {
		return nil
	}
	for _, n := range m.Names() {
		if !n.Extension {
			return fmt.Errorf("%w: unexpected parameter %s", ErrInvalidParam, n)
		}
	}
	return nil
}

// ParamType binds a parameter name to the parser of its value list.
type ParamType[T any] struct {
	Name    string
	Default T
	Parse   func(Values) (T, error)
}

// TakeParam removes p from m and parses it. ok is false when the parameter
// is absent; the caller then applies p.Default or its own default.
func TakeParam[T any](m *ParamMap, p ParamType[T]) (v T, ok bool, err error) {
	vs, ok := m.TakeName(p.Name)
	if !ok {
		return v, false, nil
	}
	v, err = p.Parse(vs)
	if err != nil {
		return v, true, fmt.Errorf("parameter %s: %w", p.Name, err)
	}
	return v, true, nil
}

// TakeParamOrDefault is TakeParam with p.Default applied to a missing parameter.
func TakeParamOrDefault[T any](m *ParamMap, p ParamType[T]) (T, error) {
	v, ok, err := TakeParam(m, p)
	if err != nil {
		return v, err
	}
	if !ok {
		return p.Default, nil
	}
	return v, nil
}
