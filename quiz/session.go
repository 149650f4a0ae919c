package quiz

import (
	"math/rand"
	"time"
)

// maxQuestions caps how many records a session draws from the pool.
const maxQuestions = 7

// SessionPhase represents the lifecycle state of a session.
type SessionPhase int

const (
	// PhaseNotLoaded indicates no records have been loaded yet.
	PhaseNotLoaded SessionPhase = iota
	// PhaseActive indicates a question is in progress.
	PhaseActive
	// PhaseComplete indicates every question has been answered.
	PhaseComplete
)

// String returns the string representation of the phase.
func (p SessionPhase) String() string {
	switch p {
	case PhaseNotLoaded:
		return "not-loaded"
	case PhaseActive:
		return "active"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Session is the quiz state machine. It owns the drawn record subset,
// the score, and the current question's option set. All transitions are
// synchronous field mutations with no I/O, and the session is expected
// to be driven from a single goroutine (the Bubble Tea update loop).
type Session struct {
	rng *rand.Rand

	records []MemoryRecord // drawn subset, fixed for the session
	phase   SessionPhase

	index   int
	score   int
	kind    QuestionKind
	options []string // always exactly 3 while active

	answered bool
	selected string
	correct  bool
}

// NewSession creates a session. A nil rng gets a time-seeded source;
// tests inject a fixed seed for reproducible draws.
func NewSession(rng *rand.Rand) *Session {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Session{rng: rng}
}

// Load filters the pool, draws up to seven records uniformly at random
// without replacement, and enters the first question. Records without
// an asset URL are dropped; empty display fields are normalized.
// Returns ErrEmptyDataset when nothing eligible remains.
func (s *Session) Load(pool []MemoryRecord) error {
	var eligible []MemoryRecord
	for _, r := range pool {
		if r.AssetURL == "" {
			continue
		}
		eligible = append(eligible, r.Normalize())
	}
	if len(eligible) == 0 {
		return ErrEmptyDataset
	}

	n := len(eligible)
	if n > maxQuestions {
		n = maxQuestions
	}
	drawn := make([]MemoryRecord, 0, n)
	for _, i := range s.rng.Perm(len(eligible))[:n] {
		drawn = append(drawn, eligible[i])
	}

	s.records = drawn
	s.reset()
	return nil
}

// Select records an answer for the current question. It is idempotent:
// once a question is answered, further calls leave score and selection
// untouched.
func (s *Session) Select(option string) {
	if s.phase != PhaseActive || s.answered {
		return
	}
	s.answered = true
	s.selected = option
	s.correct = option == s.records[s.index].Value(s.kind)
	if s.correct {
		s.score++
	}
}

// Next advances to the following question, or to PhaseComplete from the
// last one. Calling it while complete or before loading is a no-op.
func (s *Session) Next() {
	if s.phase != PhaseActive {
		return
	}
	if s.index >= len(s.records)-1 {
		s.phase = PhaseComplete
		return
	}
	s.index++
	s.clearAnswer()
	s.regenerate()
}

// Restart re-enters the first question with score and flags reset. The
// drawn subset is kept; only kinds and options are regenerated.
func (s *Session) Restart() {
	if len(s.records) == 0 {
		return
	}
	s.reset()
}

func (s *Session) reset() {
	s.phase = PhaseActive
	s.index = 0
	s.score = 0
	s.clearAnswer()
	s.regenerate()
}

func (s *Session) clearAnswer() {
	s.answered = false
	s.selected = ""
	s.correct = false
}

// regenerate picks a kind for the current record and rebuilds the
// option set, padding with the Unknown sentinel up to three entries.
func (s *Session) regenerate() {
	s.kind = QuestionKind(s.rng.Intn(numKinds))
	s.options = GenerateOptions(s.rng, s.kind, s.records[s.index], s.records)
	for len(s.options) < 3 {
		s.options = append(s.options, Unknown)
	}
}

// Phase returns the session lifecycle phase.
func (s *Session) Phase() SessionPhase { return s.phase }

// Current returns the record under question, and false when no
// question is active.
func (s *Session) Current() (MemoryRecord, bool) {
	if s.phase != PhaseActive {
		return MemoryRecord{}, false
	}
	return s.records[s.index], true
}

// Index returns the zero-based current question index.
func (s *Session) Index() int { return s.index }

// Len returns the number of drawn records.
func (s *Session) Len() int { return len(s.records) }

// Score returns the number of correctly answered questions.
func (s *Session) Score() int { return s.score }

// Kind returns the current question kind.
func (s *Session) Kind() QuestionKind { return s.kind }

// Options returns the current three-way option set.
func (s *Session) Options() []string { return s.options }

// Answered reports whether the current question has been answered.
func (s *Session) Answered() bool { return s.answered }

// Selected returns the chosen option, empty until answered.
func (s *Session) Selected() string { return s.selected }

// WasCorrect reports whether the recorded answer was correct.
func (s *Session) WasCorrect() bool { return s.correct }
