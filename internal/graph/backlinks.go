// Package graph maintains the symmetric backlink adjacency lists.
// Invariant: an entry A→B at similarity s exists iff B→A exists at the
// same similarity. All functions mutate in memory only; persistence is
// the caller's concern.
package graph

import (
	"sort"

	"github.com/starford/ansuz/internal/indexes"
	"github.com/starford/ansuz/internal/similarity"
)

// Pair is one undirected link in a full rebuild.
type Pair struct {
	A, B       string
	Similarity float64
}

// AddLink symmetrically inserts or overwrites the link between a and b.
// Self-links are a no-op.
func AddLink(idx *indexes.BacklinksIndex, a, b string, sim float64) {
	if a == b {
		return
	}
	setEntry(idx, a, b, sim)
	setEntry(idx, b, a, sim)
}

// RemoveLink symmetrically deletes the link between a and b. A per-note
// list emptied by the removal is deleted entirely.
func RemoveLink(idx *indexes.BacklinksIndex, a, b string) {
	dropEntry(idx, a, b)
	dropEntry(idx, b, a)
}

// ApplyMatches adds or refreshes the links from source to every match.
// Additive only: links the matches do not mention are left alone.
func ApplyMatches(idx *indexes.BacklinksIndex, source string, matches []similarity.Match) {
	for _, m := range matches {
		AddLink(idx, source, m.NoteID, m.Similarity)
	}
}

// Rebuild constructs a fresh index from a complete pair list. Used by
// full re-link passes; the result replaces, never merges.
func Rebuild(pairs []Pair) indexes.BacklinksIndex {
	idx := indexes.BacklinksIndex{Links: make(map[string][]indexes.BacklinkEntry)}
	for _, p := range pairs {
		AddLink(&idx, p.A, p.B, p.Similarity)
	}
	return idx
}

// Links returns the link list for id sorted by descending similarity,
// ties on target id.
func Links(idx indexes.BacklinksIndex, id string) []indexes.BacklinkEntry {
	entries := append([]indexes.BacklinkEntry(nil), idx.Links[id]...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Similarity != entries[j].Similarity {
			return entries[i].Similarity > entries[j].Similarity
		}
		return entries[i].TargetID < entries[j].TargetID
	})
	return entries
}

func setEntry(idx *indexes.BacklinksIndex, from, to string, sim float64) {
	if idx.Links == nil {
		idx.Links = make(map[string][]indexes.BacklinkEntry)
	}
	list := idx.Links[from]
	for i := range list {
		if list[i].TargetID == to {
			list[i].Similarity = sim
			return
		}
	}
	idx.Links[from] = append(list, indexes.BacklinkEntry{TargetID: to, Similarity: sim})
}

func dropEntry(idx *indexes.BacklinksIndex, from, to string) {
	list := idx.Links[from]
	for i := range list {
		if list[i].TargetID == to {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(idx.Links, from)
		return
	}
	idx.Links[from] = list
}
