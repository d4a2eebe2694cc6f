// Package indexes defines the derived-index document schemas and the
// typed repository that reads and mutates them in the document store.
package indexes

import "time"

// Store paths for the index documents. Each index is one self-contained
// JSON document owned by the store.
const (
	PathEmbeddings   = "indexes/embeddings.json"
	PathBacklinks    = "indexes/backlinks.json"
	PathClusters     = "indexes/clusters.json"
	PathTensions     = "indexes/tensions.json"
	PathDecay        = "indexes/decay.json"
	PathRelations    = "indexes/relations.json"
	PathExplorations = "indexes/explorations.json"
	PathSnapshots    = "indexes/snapshots.json"
)

// EmbeddingRecord is the vector stored for one note. Created once at
// ingestion, never mutated, never deleted.
type EmbeddingRecord struct {
	NoteID    string    `json:"note_id"`
	Vector    []float64 `json:"vector"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingsIndex maps note id to its embedding record.
type EmbeddingsIndex struct {
	Records map[string]EmbeddingRecord `json:"records"`
}

// BacklinkEntry is one directed edge of a symmetric link.
type BacklinkEntry struct {
	TargetID   string  `json:"target_id"`
	Similarity float64 `json:"similarity"`
}

// BacklinksIndex maps note id to its link list. Invariant: symmetry —
// an entry A→B at similarity s exists iff B→A exists at the same s.
type BacklinksIndex struct {
	Links map[string][]BacklinkEntry `json:"links"`
}

// Cluster is one topic cluster produced by a clustering pass.
type Cluster struct {
	ID        string    `json:"id"`
	Centroid  []float64 `json:"centroid"`
	MemberIDs []string  `json:"member_ids"` // sorted
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClustersIndex is wholesale replaced on every clustering pass.
type ClustersIndex struct {
	Clusters   map[string]Cluster `json:"clusters"`
	ComputedAt time.Time          `json:"computed_at"`
}

// Tension is a pair of notes sharing a cluster but diverging
// semantically. NoteA sorts before NoteB.
type Tension struct {
	ID         string    `json:"id"`
	NoteA      string    `json:"note_a"`
	NoteB      string    `json:"note_b"`
	Similarity float64   `json:"similarity"`
	ClusterID  string    `json:"cluster_id"`
	DetectedAt time.Time `json:"detected_at"`
}

// TensionsIndex is wholesale replaced per detection pass.
type TensionsIndex struct {
	Tensions   []Tension `json:"tensions"`
	ComputedAt time.Time `json:"computed_at"`
}

// DecayRecord scores one stale note. A note is present only when its
// score reached the threshold; absence means healthy, not unscored.
type DecayRecord struct {
	NoteID     string    `json:"note_id"`
	Score      float64   `json:"score"` // in [0,1]
	Reasons    []string  `json:"reasons"`
	ComputedAt time.Time `json:"computed_at"`
}

// DecayIndex is wholesale replaced per scoring pass.
type DecayIndex struct {
	Records    map[string]DecayRecord `json:"records"`
	ComputedAt time.Time              `json:"computed_at"`
}

// RelationType is the closed set of typed-relation classifications.
type RelationType string

const (
	RelationSupports    RelationType = "supports"
	RelationContradicts RelationType = "contradicts"
	RelationExtends     RelationType = "extends"
	RelationExampleOf   RelationType = "example-of"
	RelationRelatesTo   RelationType = "relates-to"
)

// Valid reports whether t is a member of the closed enum.
func (t RelationType) Valid() bool {
	switch t {
	case RelationSupports, RelationContradicts, RelationExtends, RelationExampleOf, RelationRelatesTo:
		return true
	}
	return false
}

// RelationTypes lists the closed enum in declaration order.
func RelationTypes() []RelationType {
	return []RelationType{
		RelationSupports,
		RelationContradicts,
		RelationExtends,
		RelationExampleOf,
		RelationRelatesTo,
	}
}

// TypedRelation classifies the edge between a canonical note pair.
// Upserted by canonical pair key, never auto-expired.
type TypedRelation struct {
	NoteA        string       `json:"note_a"`
	NoteB        string       `json:"note_b"`
	Type         RelationType `json:"type"`
	Reason       string       `json:"reason"`
	Similarity   float64      `json:"similarity"`
	ClassifiedAt time.Time    `json:"classified_at"`
}

// RelationsIndex maps canonical pair key to its classification.
type RelationsIndex struct {
	Relations map[string]TypedRelation `json:"relations"`
}

// SuggestionKind tags an ExplorationSuggestion variant.
type SuggestionKind string

const (
	SuggestionOrphanNote      SuggestionKind = "orphan-note"
	SuggestionCloseClusters   SuggestionKind = "close-clusters"
	SuggestionStructuralHole  SuggestionKind = "structural-hole"
	SuggestionMetaNoteMissing SuggestionKind = "meta-note-missing"
)

// ExplorationSuggestion is one structural-gap finding. The populated
// fields depend on Kind: orphan-note carries NoteID, close-clusters
// carries ClusterA/ClusterB/Similarity, structural-hole and
// meta-note-missing carry ClusterID.
type ExplorationSuggestion struct {
	ID         string         `json:"id"`
	Kind       SuggestionKind `json:"kind"`
	NoteID     string         `json:"note_id,omitempty"`
	ClusterA   string         `json:"cluster_a,omitempty"`
	ClusterB   string         `json:"cluster_b,omitempty"`
	ClusterID  string         `json:"cluster_id,omitempty"`
	Similarity float64        `json:"similarity,omitempty"`
}

// ExplorationsIndex is wholesale replaced per detection pass.
type ExplorationsIndex struct {
	Suggestions []ExplorationSuggestion `json:"suggestions"`
	ComputedAt  time.Time               `json:"computed_at"`
}

// GraphSnapshot records aggregate graph counts at a point in time.
type GraphSnapshot struct {
	ID           string    `json:"id"`
	TakenAt      time.Time `json:"taken_at"`
	Notes        int       `json:"notes"`
	Links        int       `json:"links"`
	Clusters     int       `json:"clusters"`
	Tensions     int       `json:"tensions"`
	DecayedNotes int       `json:"decayed_notes"`
	Relations    int       `json:"relations"`
	Suggestions  int       `json:"suggestions"`
}

// SnapshotsIndex is append-only.
type SnapshotsIndex struct {
	Snapshots []GraphSnapshot `json:"snapshots"`
}

// OrderPair returns the canonical ordering of an unordered note pair:
// the lexicographically smaller id first.
func OrderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PairKey returns the deterministic key identifying an unordered pair.
func PairKey(a, b string) string {
	a, b = OrderPair(a, b)
	return a + "|" + b
}
