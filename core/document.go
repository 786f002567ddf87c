package core

import (
	"fmt"
	"strings"
)

// Document renders the report as a markdown document suitable for download.
func (r *Report) Document() string {
	var b strings.Builder

	b.WriteString("# Medical Report\n\n")
	fmt.Fprintf(&b, "Report ID: %s\n", r.ID)
	fmt.Fprintf(&b, "Generated: %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	if !r.Patient.IsZero() {
		b.WriteString("## Patient Information\n\n")
		writeField(&b, "Name", r.Patient.Name)
		writeField(&b, "Age", r.Patient.Age)
		writeField(&b, "Gender", r.Patient.Gender)
		writeField(&b, "Physician", r.Patient.Physician)
		writeField(&b, "Visit Date", r.Patient.VisitDate)
		b.WriteString("\n")
	}

	b.WriteString("## Narrative\n\n")
	b.WriteString(strings.TrimSpace(r.Narrative))
	b.WriteString("\n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString(strings.TrimSpace(r.Summary.Text))
	b.WriteString("\n\n")

	b.WriteString("## Medical Entities\n\n")
	b.WriteString(FormatEntities(r.Entities))
	b.WriteString("\n")

	if len(r.Context) > 0 {
		b.WriteString("\n## Reference Material\n\n")
		for _, m := range r.Context {
			fmt.Fprintf(&b, "- (%.3f) %s\n", m.Score, m.Content)
		}
	}

	return b.String()
}

// FormatEntities lists entity terms grouped by type, one line per type.
func FormatEntities(entities []Entity) string {
	grouped := GroupEntities(entities)
	if len(grouped) == 0 {
		return "No significant medical entities detected."
	}

	var b strings.Builder
	for _, t := range EntityTypes {
		terms, ok := grouped[t]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", t, strings.Join(terms, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatMatches renders retrieved knowledge as a numbered list.
func FormatMatches(matches []RetrievalMatch) string {
	if len(matches) == 0 {
		return "No relevant information found in the knowledge base."
	}
	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
