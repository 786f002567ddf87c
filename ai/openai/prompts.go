package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

const entityPrompt = `Extract the medical entities mentioned in a doctor-patient conversation and return them as JSON.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or acknowledgment. Start your
response directly with the opening brace { and end with the closing brace }. Use this shape:

{"entities": [{"term": "...", "type": "...", "confidence": 0.0}]}

Rules:
- "term" must be copied exactly as it appears in the text.
- "type" must be one of: %s.
- "confidence" is a number from 0 to 1 saying how sure you are the term is a medical entity of that type.
- Include only entities explicitly mentioned in the text. Do not hallucinate.
- If no entities can be identified, return {"entities": []}.

Example:
Input: "I've had a headache and some nausea since I started the metformin."
Output:
{"entities": [
  {"term": "headache", "type": "SYMPTOM", "confidence": 0.95},
  {"term": "nausea", "type": "SYMPTOM", "confidence": 0.93},
  {"term": "metformin", "type": "MEDICATION", "confidence": 0.97}
]}`

const summaryPrompt = `You are a clinical documentation assistant. Summaries are factual, written in plain prose
and never invent findings that are not in the conversation.`

const summaryPrefix = "Summarize the following medical conversation, focusing on symptoms, diagnoses, and treatments: "

const narrativePrompt = `You are an expert medical assistant tasked with generating a detailed and structured clinical report.
Based on the extracted medical entities, summarized findings and reference material from a doctor-patient
conversation, write a well-formatted report in markdown. Follow this structure:

## Patient Information
## Chief Complaint & History
## Examination Findings & Observations
## Assessment & Diagnosis
## Treatment Plan & Recommendations
## Additional Notes & Explanations

Leave out details that were not mentioned rather than guessing. Provide simple explanations for complex
medical terms in the final section.`

const explainPrompt = `Explain medical terms in a simple and easy-to-understand way and return them as JSON.

Output ONLY valid JSON in this shape:

{"explanations": [{"term": "...", "explanation": "..."}]}

Requirements:
- Provide a concise yet informative definition for every term, in the order given.
- Explain in layman's terms (avoid medical jargon).
- If applicable, include causes, symptoms, and common treatments.

Example:
Input: "Hypertension"
Output:
{"explanations": [{"term": "Hypertension", "explanation": "Hypertension (high blood pressure) occurs when the force of blood against artery walls is too high. It increases the risk of heart disease and stroke. Treatments include lifestyle changes and medication."}]}`

func buildEntityPrompt() string {
	types := make([]string, len(core.EntityTypes))
	for i, t := range core.EntityTypes {
		types[i] = string(t)
	}
	return fmt.Sprintf(entityPrompt, strings.Join(types, ", "))
}

func buildSummaryRequest(text string, maxLength, minLength int) string {
	return fmt.Sprintf("%s%s\n\nWrite between %d and %d words.",
		summaryPrefix, ai.TruncateRunes(text, ai.MaxSummaryInput), minLength, maxLength)
}

func buildNarrativeRequest(req ai.NarrativeRequest) string {
	var b strings.Builder

	b.WriteString("Patient information:\n")
	if req.Patient.IsZero() {
		b.WriteString("Not provided.\n")
	} else {
		fmt.Fprintf(&b, "- Name: %s\n- Age: %s\n- Gender: %s\n- Physician: %s\n- Date of visit: %s\n",
			orUnknown(req.Patient.Name), orUnknown(req.Patient.Age), orUnknown(req.Patient.Gender),
			orUnknown(req.Patient.Physician), orUnknown(req.Patient.VisitDate))
	}

	b.WriteString("\nExtracted medical entities:\n")
	b.WriteString(core.FormatEntities(req.Entities))

	b.WriteString("\n\nSummary of the conversation:\n")
	b.WriteString(req.Summary.Text)

	b.WriteString("\n\nReference material:\n")
	b.WriteString(core.FormatMatches(req.Context))
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Not provided"
	}
	return s
}
