// Package analysis produces frame descriptions, audio transcripts, and video
// summaries, using OpenAI when configured and deterministic fallbacks when not.
package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// TranscriptSegment is one timed span of recognised speech.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcription is the full speech content of an audio track.
type Transcription struct {
	Text     string              `json:"text"`
	Segments []TranscriptSegment `json:"segments"`
}

// Client is the model-backed analysis contract.
type Client interface {
	DescribeFrame(ctx context.Context, imagePath string) (string, error)
	Transcribe(ctx context.Context, audioPath string) (*Transcription, error)
	Summarize(ctx context.Context, descriptions []string) (string, error)
}

const (
	describePrompt = "Describe what is happening in this frame of a video in one concise sentence. Focus on visible actions and content."
	summarySystem  = "You summarise videos from frame-by-frame descriptions. Write two or three sentences covering the overall activity and outcome."
)

// OpenAIClient implements Client against the OpenAI API or any
// OpenAI-compatible endpoint.
type OpenAIClient struct {
	client       *openai.Client
	visionModel  string
	summaryModel string
}

func NewOpenAIClient(apiKey, baseURL, visionModel, summaryModel string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:       openai.NewClientWithConfig(cfg),
		visionModel:  visionModel,
		summaryModel: summaryModel,
	}
}

func (c *OpenAIClient) DescribeFrame(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("cannot read frame %s: %w", filepath.Base(imagePath), err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.visionModel,
		MaxTokens: 150,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: describePrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision response had no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string) (*Transcription, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	t := &Transcription{Text: strings.TrimSpace(resp.Text)}
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		t.Segments = append(t.Segments, TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return t, nil
}

func (c *OpenAIClient) Summarize(ctx context.Context, descriptions []string) (string, error) {
	var sb strings.Builder
	for i, d := range descriptions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, d)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.summaryModel,
		MaxTokens: 300,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystem},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary response had no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
