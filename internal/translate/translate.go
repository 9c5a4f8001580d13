package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lexiqai/live-transcriber/internal/transcript"
)

// Translator turns finalized transcript text into the target language
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

const translatePrompt = `You are an expert translator providing real-time translations. Translate as accurately as possible while preserving the original tone and formalities.

Target language: %s

Return only the translated text, without any additional information.`

const mergePrompt = `You maintain a live caption transcript captured from a screen. You receive the current transcript and a newly captured fragment that may repeat part of it.

Return the transcript with the fragment merged in: keep the existing text, drop any words of the fragment that duplicate it, append what is new, and do not rephrase or summarize.

Return only the merged transcript text.`

// ensure these satisfy the interfaces
var (
	_ Translator        = (*OpenAITranslator)(nil)
	_ transcript.Merger = (*OpenAIMerger)(nil)
)

// OpenAITranslator translates with a chat completion at temperature 0
type OpenAITranslator struct {
	client *openai.Client
	model  string
}

// NewOpenAITranslator creates a translator on an OpenAI or Azure OpenAI client
func NewOpenAITranslator(client *openai.Client, model string) *OpenAITranslator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAITranslator{client: client, model: model}
}

// Translate implements Translator
func (t *OpenAITranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	out, err := complete(ctx, t.client, t.model, fmt.Sprintf(translatePrompt, targetLanguage), text)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	return out, nil
}

// OpenAIMerger asks a chat model to merge a caption fragment into the rolling transcript
type OpenAIMerger struct {
	client *openai.Client
	model  string
}

// NewOpenAIMerger creates a merge engine on an OpenAI or Azure OpenAI client
func NewOpenAIMerger(client *openai.Client, model string) *OpenAIMerger {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIMerger{client: client, model: model}
}

// Merge implements transcript.Merger
func (m *OpenAIMerger) Merge(ctx context.Context, existing, fragment string) (string, error) {
	if strings.TrimSpace(existing) == "" {
		return fragment, nil
	}
	user := fmt.Sprintf("Current transcript:\n%s\n\nNew fragment:\n%s", existing, fragment)
	out, err := complete(ctx, m.client, m.model, mergePrompt, user)
	if err != nil {
		return "", fmt.Errorf("merge failed: %w", err)
	}
	if out == "" {
		return "", fmt.Errorf("merge failed: empty response")
	}
	return out, nil
}

func complete(ctx context.Context, client *openai.Client, model, system, user string) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
