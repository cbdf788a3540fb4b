package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const (
	defaultModel = "gemini-2.0-flash"

	// maxBodyChars bounds how much of an email body goes into the prompt
	maxBodyChars = 4000
)

// Summarizer annotates emails with short AI-generated summaries. It is an
// optional enrichment: when unconfigured or failing it leaves emails untouched
// and never fails the surrounding request.
type Summarizer struct {
	model string

	// generate is swapped out in tests
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewSummarizer creates the summarizer. Returns nil when no API key is
// configured; callers treat a nil summarizer as disabled.
func NewSummarizer(ctx context.Context, cfg types.SummaryConfig) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	s := &Summarizer{model: model}
	s.generate = func(ctx context.Context, prompt string) (string, error) {
		result, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		return extractText(result)
	}
	return s, nil
}

// Annotate fills in the Summary field of each email in place. Individual
// failures are logged and skipped.
func (s *Summarizer) Annotate(ctx context.Context, emails []types.EmailMessage) {
	if s == nil {
		return
	}

	for i := range emails {
		text, err := s.generate(ctx, buildPrompt(&emails[i]))
		if err != nil {
			log.Warn().Err(err).Str("email_id", emails[i].Id).Msg("email summary failed")
			continue
		}
		emails[i].Summary = strings.TrimSpace(text)
	}
}

func buildPrompt(email *types.EmailMessage) string {
	body := email.Body
	if body == "" {
		body = email.Snippet
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	return fmt.Sprintf(`Summarize this email in one or two sentences. Reply with only the summary.

From: %s
Subject: %s

%s`, email.From, email.Subject, body)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
