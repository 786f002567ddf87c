package openai

import (
	"context"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/medscribe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizer_Summarize(t *testing.T) {
	chat, model := newTestChat(fakeReply{content: "  Two weeks of cough and fever, likely bronchitis, inhaler prescribed. Follow up in one week.  "})
	s := newSummarizer(chat)
	text := strings.Repeat("patient describes cough and fever in detail ", 10)

	summary, err := s.Summarize(context.Background(), text, 8, 3)
	require.NoError(t, err)
	assert.Equal(t, "Two weeks of cough and fever, likely bronchitis,", summary.Text)
	assert.Equal(t, 8, summary.SummaryLength)
	assert.Equal(t, 70, summary.SourceLength)

	request := model.messages[0][1].Parts[0].(llms.TextContent).Text
	assert.True(t, strings.HasPrefix(request, summaryPrefix))
	assert.Contains(t, request, "between 3 and 8 words")
}

func TestSummarizer_ShortTextSkipsModel(t *testing.T) {
	chat, model := newTestChat(fakeReply{content: "unused"})
	s := newSummarizer(chat)

	summary, err := s.Summarize(context.Background(), "Mild fever.", 200, 30)
	require.NoError(t, err)
	assert.Equal(t, "Mild fever.", summary.Text)
	assert.Zero(t, model.Calls())
}

func TestSummarizer_InvalidBounds(t *testing.T) {
	chat, _ := newTestChat(fakeReply{content: "unused"})
	_, err := newSummarizer(chat).Summarize(context.Background(), "text", 10, 20)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestSummarizer_EmptyReplyIsTransient(t *testing.T) {
	chat, _ := newTestChat(fakeReply{content: "   "})
	_, err := newSummarizer(chat).Summarize(context.Background(), strings.Repeat("word ", 50), 20, 5)
	assert.ErrorIs(t, err, core.ErrCapabilityUnavailable)
}
