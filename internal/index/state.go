package index

// State is a step of one indexing run.
type State int

const (
	StateDiscovered State = iota
	StateValidated
	StateFingerprinted
	StateDuplicate
	StateUnique
	StateChunked
	StateEmbedded
	StatePersisted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateValidated:
		return "validated"
	case StateFingerprinted:
		return "fingerprinted"
	case StateDuplicate:
		return "duplicate"
	case StateUnique:
		return "unique"
	case StateChunked:
		return "chunked"
	case StateEmbedded:
		return "embedded"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is how a successful run ended.
type Outcome int

const (
	// OutcomeIndexed means records were written.
	OutcomeIndexed Outcome = iota
	// OutcomeDuplicate means identical content was already stored; nothing was written.
	OutcomeDuplicate
	// OutcomeEmpty means the file produced no chunks; nothing was written.
	OutcomeEmpty
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIndexed:
		return "indexed"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
