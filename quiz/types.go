// Package quiz implements the recall session core: the question state
// machine, multiple-choice option generation, and the per-question
// orchestration pipeline that coordinates asset caching, the preview
// countdown, and speech synthesis.
package quiz

import "fmt"

// Unknown is the sentinel substituted for empty record fields.
const Unknown = "Unknown"

// fallbackOptions backfill the decoy pool when too few distinct
// values exist among the loaded records.
var fallbackOptions = []string{Unknown, "Not sure", "I don't remember"}

// MemoryRecord is a single photograph with its recall metadata.
// Records are loaded once at session start and never mutated.
type MemoryRecord struct {
	ID         string
	PersonName string
	Location   string
	Event      string
	AssetURL   string
	VoiceID    string // empty means "skip speech", not an error
}

// Normalize substitutes the Unknown sentinel for empty display fields.
// AssetURL is left alone; records without one are dropped at load time.
func (r MemoryRecord) Normalize() MemoryRecord {
	if r.PersonName == "" {
		r.PersonName = Unknown
	}
	if r.Location == "" {
		r.Location = Unknown
	}
	if r.Event == "" {
		r.Event = Unknown
	}
	return r
}

// Value returns the record field the given question kind asks about.
func (r MemoryRecord) Value(kind QuestionKind) string {
	switch kind {
	case KindPerson:
		return r.PersonName
	case KindLocation:
		return r.Location
	case KindEvent:
		return r.Event
	default:
		return ""
	}
}

// QuestionKind selects which record field a question asks about.
type QuestionKind int

const (
	// KindPerson asks who appears in the photograph.
	KindPerson QuestionKind = iota
	// KindLocation asks where the photograph was taken.
	KindLocation
	// KindEvent asks what was happening in the photograph.
	KindEvent

	numKinds = 3
)

// String returns the string representation of the question kind.
func (k QuestionKind) String() string {
	switch k {
	case KindPerson:
		return "person"
	case KindLocation:
		return "location"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Prompt returns the display prompt shown with the answer options.
func (k QuestionKind) Prompt() string {
	switch k {
	case KindPerson:
		return "Who is in this photo?"
	case KindLocation:
		return "Where was this photo taken?"
	case KindEvent:
		return "What was happening in this photo?"
	default:
		return ""
	}
}

// SpokenPrompt returns the text handed to speech synthesis for a
// question about the given record. It is phrased for listening rather
// than reading, so it differs from the display prompt.
func (k QuestionKind) SpokenPrompt(r MemoryRecord) string {
	switch k {
	case KindPerson:
		return "Take a look at this photo. Do you remember who this is?"
	case KindLocation:
		return fmt.Sprintf("Here is a photo of %s. Do you remember where this was?", r.PersonName)
	case KindEvent:
		return fmt.Sprintf("Here is a photo of %s. Do you remember what was happening?", r.PersonName)
	default:
		return ""
	}
}
