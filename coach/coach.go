// Package coach generates speech-practice feedback with Gemini, falling back
// to rule-based feedback when the model is unreachable.
package coach

import (
	"context"
	"fmt"
	"strings"

	"clearspeak/analysis"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
)

const systemPrompt = `You are an expert speech therapist AI assistant. Your role is to provide constructive, encouraging feedback on speech practice sessions.

Your feedback should:
- Be warm, supportive, and encouraging
- Identify specific strengths in the person's speech
- Suggest 2-3 concrete, actionable improvements
- Provide techniques or exercises for improvement
- Focus on one main area for improvement at a time
- End with encouragement and next steps

Analyze the speech data provided and give personalized feedback.`

// Observation carries one analyzed session into feedback generation.
type Observation struct {
	Transcription   string
	WordCount       int
	SpeakingRateWPM float64
	Features        analysis.Features
}

// Generator produces feedback text for an analyzed session.
type Generator interface {
	Feedback(ctx context.Context, obs Observation) string
}

type Coach struct {
	model  *genai.GenerativeModel
	logger *log.Logger
}

func New(client *genai.Client, logger *log.Logger) *Coach {
	model := client.GenerativeModel("gemini-1.5-flash")
	model.GenerationConfig.SetMaxOutputTokens(500)
	model.GenerationConfig.SetTemperature(0.7)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(systemPrompt),
		},
	}
	return &Coach{model: model, logger: logger}
}

// Feedback asks the model for personalized feedback. A failed call degrades
// to FallbackFeedback rather than surfacing an error to the session.
func (c *Coach) Feedback(ctx context.Context, obs Observation) string {
	resp, err := c.model.GenerateContent(ctx, genai.Text(userPrompt(obs)))
	if err != nil {
		c.logger.Error("generate feedback", "error", err.Error())
		return FallbackFeedback(obs.SpeakingRateWPM, obs.Features)
	}

	text := responseText(resp)
	if text == "" {
		c.logger.Warn("empty feedback response")
		return FallbackFeedback(obs.SpeakingRateWPM, obs.Features)
	}

	return text
}

func userPrompt(obs Observation) string {
	return fmt.Sprintf(`Please analyze this speech practice session and provide feedback:

TRANSCRIPTION:
%q

SPEECH METRICS:
- Words spoken: %d
- Speaking rate: %.1f words per minute (ideal: 120-160 wpm)
- Duration: %.1f seconds
- Average volume: %.3f (0-1 scale)
- Volume consistency: %.3f
- Silence ratio: %.2f (pauses in speech)

Please provide:
1. What they did well
2. One main area for improvement
3. Specific technique or exercise to practice
4. Encouragement for next session`,
		obs.Transcription,
		obs.WordCount,
		obs.SpeakingRateWPM,
		obs.Features.DurationSeconds,
		obs.Features.AverageVolume,
		obs.Features.VolumeVariation,
		obs.Features.SilenceRatio,
	)
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String()
}

// FallbackFeedback gives basic rate and volume advice when the model call
// fails.
func FallbackFeedback(speakingRateWPM float64, f analysis.Features) string {
	var b strings.Builder
	b.WriteString("Great job completing this practice session!\n\n")

	switch {
	case speakingRateWPM < 120:
		b.WriteString("Try to speak a bit faster. A comfortable pace is 120-160 words per minute.\n")
	case speakingRateWPM > 160:
		b.WriteString("Try to slow down slightly. Take time to articulate each word clearly.\n")
	default:
		b.WriteString("Your speaking pace is excellent!\n")
	}

	switch {
	case f.AverageVolume < 0.02:
		b.WriteString("Try to project your voice more. Speak louder and with more confidence.\n")
	case f.AverageVolume > 0.1:
		b.WriteString("You're speaking quite loudly. Try to moderate your volume.\n")
	default:
		b.WriteString("Your volume level is great!\n")
	}

	b.WriteString("\nKeep practicing! Consistency is key to improvement.")
	return b.String()
}
