package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for knowledge records.
// It is generated from database sequences or content hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Audio is an opaque recording handed to a transcriber.
type Audio struct {
	Data     []byte
	Filename string // Optional; used as a format hint
}

// Transcript is the text form of a conversation. Produced once per run.
type Transcript struct {
	Text            string
	DurationSeconds float64
	SourceID        string // Audio filename, or "text" for direct text input
}

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntitySymptom    EntityType = "SYMPTOM"
	EntityCondition  EntityType = "CONDITION"
	EntityMedication EntityType = "MEDICATION"
	EntityOther      EntityType = "OTHER"
)

// EntityTypes lists the entity types in report order.
var EntityTypes = []EntityType{EntitySymptom, EntityCondition, EntityMedication, EntityOther}

// ParseEntityType maps a model label onto an EntityType.
// Unknown labels become EntityOther.
func ParseEntityType(label string) EntityType {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "SYMPTOM", "SIGN_SYMPTOM", "SIGN", "SYMPTOMS":
		return EntitySymptom
	case "CONDITION", "DISEASE", "DISEASE_DISORDER", "DIAGNOSIS", "CONDITIONS":
		return EntityCondition
	case "MEDICATION", "DRUG", "MEDICATIONS", "TREATMENT":
		return EntityMedication
	default:
		return EntityOther
	}
}

// Span locates an entity in the transcript text as byte offsets [Start, End).
type Span struct {
	Start int
	End   int
}

// Entity is a medical term found in a transcript.
type Entity struct {
	Term       string
	Type       EntityType
	Confidence float64 // In [0, 1]
	Span       Span
}

// Summary is a condensed form of a transcript.
// Lengths are measured in words.
type Summary struct {
	Text          string
	SourceLength  int
	SummaryLength int
}

// NewSummary builds a Summary of text, recording word lengths.
func NewSummary(source, text string) *Summary {
	return &Summary{
		Text:          text,
		SourceLength:  WordCount(source),
		SummaryLength: WordCount(text),
	}
}

// WordCount returns the number of whitespace separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// KnowledgeRecord is one entry of the knowledge base.
// Immutable after insertion.
type KnowledgeRecord struct {
	ID         ID
	Text       string
	Embedding  []float32
	InsertedAt time.Time
}

// RetrievalMatch is a knowledge record ranked against a query.
type RetrievalMatch struct {
	RecordID ID
	Score    float32
	Content  string
}

// PatientContext carries optional details about the visit.
type PatientContext struct {
	Name      string
	Age       string
	Gender    string
	Physician string
	VisitDate string
}

// IsZero reports whether no patient details were supplied.
func (p *PatientContext) IsZero() bool {
	return p == nil || *p == PatientContext{}
}

// TermExplanation is a plain-language description of a medical term.
type TermExplanation struct {
	Term        string
	Explanation string
}

// Report is the final artifact of a pipeline run.
type Report struct {
	ID        string
	Patient   *PatientContext
	Entities  []Entity
	Summary   Summary
	Narrative string
	Context   []RetrievalMatch
	Degraded  bool // Narrative came from the template fallback
	CreatedAt time.Time
}

// ReportDraft holds the inputs a Report is built from.
type ReportDraft struct {
	ID         string
	SourceText string
	Patient    *PatientContext
	Entities   []Entity
	Summary    *Summary
	Narrative  string
	Context    []RetrievalMatch
	Degraded   bool
}

// NewReport builds a Report from a draft.
// A report always derives from a transcript, an entity list and a summary,
// so a draft missing any of them is rejected.
func NewReport(draft ReportDraft, createdAt time.Time) (*Report, error) {
	if err := ValidateReportDraft(&draft); err != nil {
		return nil, err
	}
	return &Report{
		ID:        draft.ID,
		Patient:   draft.Patient,
		Entities:  draft.Entities,
		Summary:   *draft.Summary,
		Narrative: draft.Narrative,
		Context:   draft.Context,
		Degraded:  draft.Degraded,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// GroupEntities groups entity terms by type, dropping repeated terms
// while keeping first-seen order.
func GroupEntities(entities []Entity) map[EntityType][]string {
	grouped := make(map[EntityType][]string)
	seen := make(map[EntityType]map[string]bool)
	for _, e := range entities {
		if seen[e.Type] == nil {
			seen[e.Type] = make(map[string]bool)
		}
		key := strings.ToLower(e.Term)
		if seen[e.Type][key] {
			continue
		}
		seen[e.Type][key] = true
		grouped[e.Type] = append(grouped[e.Type], e.Term)
	}
	return grouped
}
