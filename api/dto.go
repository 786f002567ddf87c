package api

import (
	"time"

	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/pipeline"
)

// Entity is the wire form of core.Entity.
type Entity struct {
	Term       string  `json:"term"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// Patient is the wire form of core.PatientContext.
type Patient struct {
	Name      string `json:"name,omitempty"`
	Age       string `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Physician string `json:"physician,omitempty"`
	VisitDate string `json:"visit_date,omitempty"`
}

// Match is one knowledge base result.
type Match struct {
	ID      uint64  `json:"id"`
	Score   float32 `json:"score"`
	Content string  `json:"content"`
}

// Explanation is a plain-language description of a term.
type Explanation struct {
	Term        string `json:"term"`
	Explanation string `json:"explanation"`
}

// Report is the JSON form of a stored report.
type Report struct {
	ID        string   `json:"id"`
	Patient   *Patient `json:"patient,omitempty"`
	Entities  []Entity `json:"entities"`
	Summary   string   `json:"summary"`
	Narrative string   `json:"narrative"`
	Context   []Match  `json:"context"`
	Degraded  bool     `json:"degraded"`
	CreatedAt string   `json:"created_at"`
	Document  string   `json:"document"`
}

// Partial carries the outputs a failed run completed.
type Partial struct {
	Transcription *string  `json:"transcription,omitempty"`
	Entities      []Entity `json:"entities,omitempty"`
	Summary       *string  `json:"summary,omitempty"`
	Context       []Match  `json:"context,omitempty"`
}

// EntitiesFromCore converts entities to their wire form. Never returns nil.
func EntitiesFromCore(entities []core.Entity) []Entity {
	out := make([]Entity, len(entities))
	for i, e := range entities {
		out[i] = Entity{
			Term:       e.Term,
			Type:       string(e.Type),
			Confidence: e.Confidence,
			Start:      e.Span.Start,
			End:        e.Span.End,
		}
	}
	return out
}

// EntitiesToCore converts wire entities back. Spans are kept as given.
func EntitiesToCore(entities []Entity) []core.Entity {
	out := make([]core.Entity, len(entities))
	for i, e := range entities {
		out[i] = core.Entity{
			Term:       e.Term,
			Type:       core.ParseEntityType(e.Type),
			Confidence: e.Confidence,
			Span:       core.Span{Start: e.Start, End: e.End},
		}
	}
	return out
}

// MatchesFromCore converts retrieval matches. Never returns nil.
func MatchesFromCore(matches []core.RetrievalMatch) []Match {
	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = Match{ID: uint64(m.RecordID), Score: m.Score, Content: m.Content}
	}
	return out
}

// ExplanationsFromCore converts term explanations. Never returns nil.
func ExplanationsFromCore(explanations []core.TermExplanation) []Explanation {
	out := make([]Explanation, len(explanations))
	for i, e := range explanations {
		out[i] = Explanation{Term: e.Term, Explanation: e.Explanation}
	}
	return out
}

func (p *Patient) toCore() *core.PatientContext {
	if p == nil {
		return nil
	}
	pc := &core.PatientContext{
		Name:      p.Name,
		Age:       p.Age,
		Gender:    p.Gender,
		Physician: p.Physician,
		VisitDate: p.VisitDate,
	}
	if pc.IsZero() {
		return nil
	}
	return pc
}

func patientFromCore(p *core.PatientContext) *Patient {
	if p.IsZero() {
		return nil
	}
	return &Patient{
		Name:      p.Name,
		Age:       p.Age,
		Gender:    p.Gender,
		Physician: p.Physician,
		VisitDate: p.VisitDate,
	}
}

// ReportFromCore converts a report, including its rendered document.
func ReportFromCore(r *core.Report) Report {
	return Report{
		ID:        r.ID,
		Patient:   patientFromCore(r.Patient),
		Entities:  EntitiesFromCore(r.Entities),
		Summary:   r.Summary.Text,
		Narrative: r.Narrative,
		Context:   MatchesFromCore(r.Context),
		Degraded:  r.Degraded,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		Document:  r.Document(),
	}
}

func partialFromPipeline(p pipeline.Partial) Partial {
	var out Partial
	if p.Transcript != nil {
		out.Transcription = &p.Transcript.Text
	}
	if p.Entities != nil {
		out.Entities = EntitiesFromCore(p.Entities)
	}
	if p.Summary != nil {
		out.Summary = &p.Summary.Text
	}
	if p.Matches != nil {
		out.Context = MatchesFromCore(p.Matches)
	}
	return out
}

type transcribeResponse struct {
	Transcription   string  `json:"transcription"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type textRequest struct {
	Text string `json:"text"`
}

type entitiesResponse struct {
	Entities []Entity `json:"entities"`
}

type summarizeRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
	MinLength int    `json:"min_length"`
}

type summarizeResponse struct {
	Summary       string `json:"summary"`
	SourceLength  int    `json:"source_length"`
	SummaryLength int    `json:"summary_length"`
}

type generateReportRequest struct {
	Entities []Entity `json:"entities"`
	Summary  string   `json:"summary"`
	Patient  *Patient `json:"patient"`
}

type generateReportResponse struct {
	ReportID  string `json:"report_id"`
	ReportURL string `json:"report_url"`
	Report    string `json:"report"`
	Degraded  bool   `json:"degraded"`
}

type processRequest struct {
	Text    string   `json:"text"`
	Patient *Patient `json:"patient"`
}

type processResponse struct {
	Transcription *string  `json:"transcription,omitempty"`
	Entities      []Entity `json:"entities"`
	Summary       string   `json:"summary"`
	Report        string   `json:"report"`
	ReportID      string   `json:"report_id"`
	ReportURL     string   `json:"report_url"`
	Degraded      bool     `json:"degraded"`
}

type queryRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k"`
}

type queryResponse struct {
	Results []Match `json:"results"`
}

type knowledgeRequest struct {
	Text  string `json:"text"`
	Chunk bool   `json:"chunk"`
}

type knowledgeResponse struct {
	IDs []uint64 `json:"ids"`
}

type explainRequest struct {
	Terms []string `json:"terms"`
}

type explainResponse struct {
	Explanations []Explanation `json:"explanations"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Stage   string   `json:"stage,omitempty"`
	Partial *Partial `json:"partial,omitempty"`
}
