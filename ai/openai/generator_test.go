package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrativeGenerator_GenerateNarrative(t *testing.T) {
	chat, model := newTestChat(fakeReply{content: "## Patient Information\nNot provided.\n"})
	g := newNarrativeGenerator(chat)

	narrative, err := g.GenerateNarrative(context.Background(), ai.NarrativeRequest{
		Entities: []core.Entity{{Term: "cough", Type: core.EntitySymptom, Confidence: 0.9}},
		Summary:  core.Summary{Text: "Cough for two weeks."},
		Context:  []core.RetrievalMatch{{RecordID: 7, Content: "Chronic cough lasts more than eight weeks."}},
		Patient:  &core.PatientContext{Name: "Sam Lee"},
	})
	require.NoError(t, err)
	assert.Equal(t, "## Patient Information\nNot provided.", narrative)

	request := model.messages[0][1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, request, "- Name: Sam Lee")
	assert.Contains(t, request, "- Age: Not provided")
	assert.Contains(t, request, "- SYMPTOM: cough")
	assert.Contains(t, request, "Cough for two weeks.")
	assert.Contains(t, request, "1. Chronic cough lasts more than eight weeks.")
}

func TestNarrativeGenerator_PropagatesUnavailable(t *testing.T) {
	chat, _ := newTestChat(fakeReply{err: errors.New("API returned unexpected status code: 502: bad gateway")})
	_, err := newNarrativeGenerator(chat).GenerateNarrative(context.Background(), ai.NarrativeRequest{})
	assert.ErrorIs(t, err, core.ErrCapabilityUnavailable)
}

func TestNarrativeGenerator_EmptyReply(t *testing.T) {
	chat, _ := newTestChat(fakeReply{content: "\n"})
	_, err := newNarrativeGenerator(chat).GenerateNarrative(context.Background(), ai.NarrativeRequest{})
	assert.ErrorIs(t, err, core.ErrCapabilityUnavailable)
}
