package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// TemplateGenerator assembles a narrative from the report inputs without
// a language model. The pipeline also uses it as the fallback when a
// remote generator fails.
type TemplateGenerator struct{}

// NewTemplateGenerator creates a new template narrative generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// GenerateNarrative implements ai.NarrativeGenerator.
func (g *TemplateGenerator) GenerateNarrative(ctx context.Context, req ai.NarrativeRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	if !req.Patient.IsZero() {
		b.WriteString("## Patient Information\n\n")
		writeField(&b, "Name", req.Patient.Name)
		writeField(&b, "Age", req.Patient.Age)
		writeField(&b, "Gender", req.Patient.Gender)
		writeField(&b, "Physician", req.Patient.Physician)
		writeField(&b, "Visit date", req.Patient.VisitDate)
		b.WriteString("\n")
	}

	b.WriteString("## Chief Complaint & History\n\n")
	if text := strings.TrimSpace(req.Summary.Text); text != "" {
		b.WriteString(text)
	} else {
		b.WriteString("No history was recorded.")
	}
	b.WriteString("\n\n")

	b.WriteString("## Findings\n\n")
	b.WriteString(core.FormatEntities(req.Entities))
	b.WriteString("\n\n")

	b.WriteString("## Assessment\n\n")
	b.WriteString(assessment(core.GroupEntities(req.Entities)))
	b.WriteString("\n\n")

	b.WriteString("## Reference Material\n\n")
	b.WriteString(core.FormatMatches(req.Context))
	b.WriteString("\n")
	return b.String(), nil
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", name, value)
}

func assessment(grouped map[core.EntityType][]string) string {
	var sentences []string
	if terms := grouped[core.EntitySymptom]; len(terms) > 0 {
		sentences = append(sentences, "The patient presents with "+joinTerms(terms)+".")
	}
	if terms := grouped[core.EntityCondition]; len(terms) > 0 {
		sentences = append(sentences, "Conditions discussed include "+joinTerms(terms)+".")
	}
	if terms := grouped[core.EntityMedication]; len(terms) > 0 {
		sentences = append(sentences, "Medications mentioned: "+joinTerms(terms)+".")
	}
	if len(sentences) == 0 {
		return "No significant medical findings were identified in the conversation."
	}
	sentences = append(sentences, "Clinical correlation is recommended.")
	return strings.Join(sentences, " ")
}

func joinTerms(terms []string) string {
	switch len(terms) {
	case 1:
		return terms[0]
	case 2:
		return terms[0] + " and " + terms[1]
	}
	return strings.Join(terms[:len(terms)-1], ", ") + " and " + terms[len(terms)-1]
}
