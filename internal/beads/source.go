package beads

import "github.com/google/uuid"

// Source is one issue collection loaded into the timeline, for example a
// local JSONL file or a repository's issues.jsonl.
type Source struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Repo   string  `json:"repo,omitempty"`
	SHA    string  `json:"sha,omitempty"`
	Issues []Issue `json:"issues"`
}

// Sources is an ordered set of sources keyed by Source.Key.
type Sources []Source

// FileSourceKey returns a fresh key for a source with no natural identity.
func FileSourceKey() string {
	return "file:" + uuid.NewString()
}

// Upsert replaces the source with the same key in place, or appends it.
func (s Sources) Upsert(src Source) Sources {
	out := make(Sources, len(s), len(s)+1)
	copy(out, s)
	for i := range out {
		if out[i].Key == src.Key {
			out[i] = src
			return out
		}
	}
	return append(out, src)
}

// Remove drops the source with key.
func (s Sources) Remove(key string) Sources {
	out := make(Sources, 0, len(s))
	for _, src := range s {
		if src.Key != key {
			out = append(out, src)
		}
	}
	return out
}

// Get returns the source with key.
func (s Sources) Get(key string) (Source, bool) {
	for _, src := range s {
		if src.Key == key {
			return src, true
		}
	}
	return Source{}, false
}

// Merge concatenates every source's issues in source order. Issues that share
// an ID across sources are kept as separate records.
func (s Sources) Merge() []Issue {
	n := 0
	for _, src := range s {
		n += len(src.Issues)
	}
	out := make([]Issue, 0, n)
	for _, src := range s {
		out = append(out, src.Issues...)
	}
	return out
}
