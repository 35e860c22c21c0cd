package analysis

import (
	"context"
	"hash/fnv"
	"log/slog"
	"path/filepath"
	"strings"
)

// Fallback content used when no API client is configured or a request fails.
// Selection is deterministic so repeated runs over the same input agree.
var fallbackDescriptions = []string{
	"A code editor showing a file being edited with syntax highlighting.",
	"A terminal window with command output scrolling past.",
	"A web browser displaying a page of documentation.",
	"A dashboard with charts and status indicators.",
	"A file manager listing project directories.",
	"A chat window with an ongoing conversation.",
	"A form being filled in with configuration values.",
	"A video player paused on a title screen.",
}

var fallbackSummaries = []string{
	"A short screen recording walking through a software workflow from start to finish.",
	"A demonstration of an application feature, showing setup, usage, and the resulting output.",
	"A recorded session alternating between code changes and verification of their effect.",
	"A walkthrough of a user interface, highlighting the main screens and interactions.",
	"A capture of routine development activity across an editor, terminal, and browser.",
}

var fallbackTranscript = strings.Fields(
	"Welcome to this walkthrough. In this session we look at the main workflow " +
		"step by step. First we open the project and review the current state. " +
		"Then we make the changes we need and check that everything still works. " +
		"Finally we wrap up with a quick look at the results.")

// fallbackWordsPerSecond paces the canned transcript at conversational speed.
const fallbackWordsPerSecond = 2.5

// Service fronts a Client with fallbacks so the pipeline always gets an
// answer. A nil client means offline mode.
type Service struct {
	client Client
	logger *slog.Logger
}

func NewService(client Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Live reports whether a model-backed client is configured.
func (s *Service) Live() bool {
	return s.client != nil
}

// DescribeFrame returns a one-sentence description of the frame image.
func (s *Service) DescribeFrame(ctx context.Context, imagePath string) string {
	if s.client != nil {
		desc, err := s.client.DescribeFrame(ctx, imagePath)
		if err == nil && desc != "" {
			return desc
		}
		if err != nil {
			s.logger.Warn("frame description failed, using fallback",
				"frame", filepath.Base(imagePath), "error", err)
		}
	}
	return fallbackDescription(imagePath)
}

// Transcribe returns the speech content of the audio file. duration bounds
// the fallback transcript when no client is available.
func (s *Service) Transcribe(ctx context.Context, audioPath string, duration float64) *Transcription {
	if s.client != nil {
		t, err := s.client.Transcribe(ctx, audioPath)
		if err == nil {
			return t
		}
		s.logger.Warn("transcription failed, using fallback", "error", err)
	}
	return fallbackTranscription(duration)
}

// Summarize condenses frame descriptions into a short narrative summary.
func (s *Service) Summarize(ctx context.Context, descriptions []string) string {
	if len(descriptions) == 0 {
		return ""
	}
	if s.client != nil {
		summary, err := s.client.Summarize(ctx, descriptions)
		if err == nil && summary != "" {
			return summary
		}
		if err != nil {
			s.logger.Warn("summary failed, using fallback", "error", err)
		}
	}
	return fallbackSummaries[len(descriptions)%len(fallbackSummaries)]
}

// fallbackDescription picks a pool entry keyed by the frame's basename, so
// the same frame always gets the same description.
func fallbackDescription(imagePath string) string {
	h := fnv.New32a()
	h.Write([]byte(filepath.Base(imagePath)))
	return fallbackDescriptions[h.Sum32()%uint32(len(fallbackDescriptions))]
}

// fallbackTranscription paces the canned transcript across the recording,
// emitting one segment per sentence-sized chunk.
func fallbackTranscription(duration float64) *Transcription {
	if duration <= 0 {
		return &Transcription{}
	}

	const wordsPerSegment = 10
	t := &Transcription{}
	pos := 0.0
	for i := 0; i < len(fallbackTranscript) && pos < duration; i += wordsPerSegment {
		end := i + wordsPerSegment
		if end > len(fallbackTranscript) {
			end = len(fallbackTranscript)
		}
		words := fallbackTranscript[i:end]
		segDur := float64(len(words)) / fallbackWordsPerSecond
		segEnd := pos + segDur
		if segEnd > duration {
			segEnd = duration
		}
		t.Segments = append(t.Segments, TranscriptSegment{
			Start: pos,
			End:   segEnd,
			Text:  strings.Join(words, " "),
		})
		pos = segEnd
	}

	parts := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		parts[i] = seg.Text
	}
	t.Text = strings.Join(parts, " ")
	return t
}
