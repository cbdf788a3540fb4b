package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

func TestNewSummarizerDisabledWithoutKey(t *testing.T) {
	s, err := NewSummarizer(context.Background(), types.SummaryConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestAnnotate(t *testing.T) {
	s := &Summarizer{model: defaultModel}
	s.generate = func(ctx context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "Subject: Standup moved")
		return "  The standup moved to 10am.  ", nil
	}

	emails := []types.EmailMessage{{Id: "m1", From: "alice@example.com", Subject: "Standup moved", Body: "Hi, standup is at 10 now"}}
	s.Annotate(context.Background(), emails)

	assert.Equal(t, "The standup moved to 10am.", emails[0].Summary)
}

func TestAnnotateSkipsFailures(t *testing.T) {
	s := &Summarizer{model: defaultModel}
	s.generate = func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "bad") {
			return "", errors.New("quota exceeded")
		}
		return "ok", nil
	}

	emails := []types.EmailMessage{
		{Id: "m1", Subject: "bad"},
		{Id: "m2", Subject: "good"},
	}
	s.Annotate(context.Background(), emails)

	assert.Empty(t, emails[0].Summary)
	assert.Equal(t, "ok", emails[1].Summary)
}

func TestAnnotateNilReceiver(t *testing.T) {
	var s *Summarizer
	emails := []types.EmailMessage{{Id: "m1"}}

	// A disabled summarizer is a no-op, not a panic
	s.Annotate(context.Background(), emails)
	assert.Empty(t, emails[0].Summary)
}

func TestBuildPromptTruncatesBody(t *testing.T) {
	email := &types.EmailMessage{Body: strings.Repeat("x", maxBodyChars*2)}
	prompt := buildPrompt(email)
	assert.Less(t, len(prompt), maxBodyChars+200)

	// Falls back to the snippet when the body is empty
	prompt = buildPrompt(&types.EmailMessage{Snippet: "short snippet"})
	assert.Contains(t, prompt, "short snippet")
}
