package local

import (
	"context"
	"testing"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlossaryExplainer_ExplainTerms(t *testing.T) {
	g := NewGlossaryExplainer()

	explanations, err := g.ExplainTerms(context.Background(), []string{"Hypertension", "palpitations", "splenomegaly", "Headaches"})
	require.NoError(t, err)
	require.Len(t, explanations, 4)

	assert.Equal(t, "Hypertension", explanations[0].Term)
	assert.Contains(t, explanations[0].Explanation, "blood pressure")
	assert.NotEqual(t, ai.UnknownTermExplanation, explanations[1].Explanation)
	assert.Equal(t, core.TermExplanation{Term: "splenomegaly", Explanation: ai.UnknownTermExplanation}, explanations[2])
	assert.NotEqual(t, ai.UnknownTermExplanation, explanations[3].Explanation)
}

func TestGlossaryExplainer_Empty(t *testing.T) {
	explanations, err := NewGlossaryExplainer().ExplainTerms(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, explanations)
}

func TestLookup(t *testing.T) {
	entry, ok := Lookup("  Shortness   of Breath ")
	require.True(t, ok)
	assert.Equal(t, core.EntitySymptom, entry.Type)

	_, ok = Lookup("glass")
	assert.False(t, ok)
}

func TestLexicon_Consistent(t *testing.T) {
	for _, entry := range lexicon {
		assert.LessOrEqual(t, len(tokenize(entry.Term)), maxTermWords, entry.Term)
		assert.NotEmpty(t, entry.Explanation, entry.Term)
		assert.Contains(t, core.EntityTypes, entry.Type, entry.Term)
	}
	assert.Len(t, lexiconIndex, len(lexicon), "lexicon has duplicate terms")
}
