package milestone

import "sort"

// CollapsedSet records which milestones are folded in the timeline.
type CollapsedSet map[string]struct{}

// DefaultCollapsed folds only the Unscheduled group.
func DefaultCollapsed() CollapsedSet {
	return NewCollapsedSet(UnscheduledName)
}

func NewCollapsedSet(names ...string) CollapsedSet {
	s := make(CollapsedSet, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

func (s CollapsedSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Toggle returns a new set with name flipped.
func (s CollapsedSet) Toggle(name string) CollapsedSet {
	next := make(CollapsedSet, len(s)+1)
	for k := range s {
		next[k] = struct{}{}
	}
	if _, ok := next[name]; ok {
		delete(next, name)
	} else {
		next[name] = struct{}{}
	}
	return next
}

// Names returns the folded milestone names sorted.
func (s CollapsedSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Apply returns a copy of milestones with Collapsed taken from the set. A nil
// set keeps the defaults set by Extract.
func (s CollapsedSet) Apply(milestones []Milestone) []Milestone {
	out := make([]Milestone, len(milestones))
	copy(out, milestones)
	if s == nil {
		return out
	}
	for i := range out {
		out[i].Collapsed = s.Has(out[i].Name)
	}
	return out
}
