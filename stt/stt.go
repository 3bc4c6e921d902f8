package stt

import (
	"context"
	"io"
)

// Result is a whole-file transcription.
type Result struct {
	Text            string
	Confidence      float64
	DurationSeconds float64
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (Result, error)
}
