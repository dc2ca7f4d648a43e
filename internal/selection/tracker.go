// Package selection keeps the checkbox state of the fetched catalog.
package selection

import (
	"errors"
	"fmt"
)

var ErrUnknownTarget = errors.New("unknown target")

// Tracker holds the selected subset of an ordered catalog. Target names are
// identities: a name listed twice is tracked once, at its first position.
// Tracker is not safe for concurrent use.
type Tracker struct {
	names    []string
	selected map[string]bool
}

// New returns a tracker over names with every name selected.
func New(names []string) *Tracker {
	t := &Tracker{}
	t.Replace(names)
	return t
}

// Replace drops the previous catalog and selects every name of the new one.
func (t *Tracker) Replace(names []string) {
	t.names = make([]string, 0, len(names))
	t.selected = make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := t.selected[name]; ok {
			continue
		}
		t.names = append(t.names, name)
		t.selected[name] = true
	}
}

// Toggle sets the state of a single target.
func (t *Tracker) Toggle(name string, selected bool) error {
	if _, ok := t.selected[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	t.selected[name] = selected
	return nil
}

// SelectAll forces every target to the same state.
func (t *Tracker) SelectAll(selected bool) {
	for _, name := range t.names {
		t.selected[name] = selected
	}
}

func (t *Tracker) IsSelected(name string) bool {
	return t.selected[name]
}

func (t *Tracker) Len() int {
	return len(t.names)
}

func (t *Tracker) Count() int {
	n := 0
	for _, name := range t.names {
		if t.selected[name] {
			n++
		}
	}
	return n
}

// Names returns the catalog in its original order.
func (t *Tracker) Names() []string {
	return append([]string(nil), t.names...)
}

// Selected returns the selected names in catalog order.
func (t *Tracker) Selected() []string {
	out := make([]string, 0, len(t.names))
	for _, name := range t.names {
		if t.selected[name] {
			out = append(out, name)
		}
	}
	return out
}

// CanLaunch is true iff at least one target is selected.
func (t *Tracker) CanLaunch() bool {
	return t.Count() > 0
}

// Label is the counter shown next to the catalog.
func (t *Tracker) Label() string {
	return fmt.Sprintf("已選: %d", t.Count())
}
