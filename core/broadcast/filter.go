package broadcast

import (
	"slices"
	"strings"
)

// Filter selects broadcasts by action. Matching ignores case, in line with
// the action lookups of the event and command tables.
type Filter struct {
	actions map[string]string
}

func NewFilter(actions ...string) Filter {
	f := Filter{}
	for _, action := range actions {
		f.AddAction(action)
	}
	return f
}

func (f *Filter) AddAction(action string) {
	if f.actions == nil {
		f.actions = map[string]string{}
	}
	f.actions[strings.ToLower(action)] = action
}

func (f Filter) Matches(action string) bool {
	_, ok := f.actions[strings.ToLower(action)]
	return ok
}

// Actions returns the filter's actions, sorted.
func (f Filter) Actions() []string {
	actions := make([]string, 0, len(f.actions))
	for _, action := range f.actions {
		actions = append(actions, action)
	}
	slices.Sort(actions)
	return actions
}

func (f Filter) keys() []string {
	keys := make([]string, 0, len(f.actions))
	for key := range f.actions {
		keys = append(keys, key)
	}
	return keys
}
