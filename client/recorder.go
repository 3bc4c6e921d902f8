package client

import (
	"context"
	"fmt"
	"io"
	"os"

	"clearspeak/scripts"
)

// State is the recorder's position in a practice session. Transitions are
// linear: Idle → Recording → Stopped → Analyzing → FeedbackShown, with Clear
// returning to Idle from anywhere.
type State int

const (
	Idle State = iota
	Recording
	Stopped
	Analyzing
	FeedbackShown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	case Analyzing:
		return "analyzing"
	case FeedbackShown:
		return "feedback shown"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CaptureDevice produces recorded audio bytes. Implementations wrap a
// microphone or, for offline analysis, a file on disk.
type CaptureDevice interface {
	io.ReadCloser
}

// DeviceOpener acquires a capture device. It returns ErrPermissionDenied
// when the user refuses microphone access.
type DeviceOpener func() (CaptureDevice, error)

const captureChunkBytes = 32 * 1024

const analysisFailedFeedback = "We couldn't analyze that recording. Check your connection and try again."

// Recorder drives one practice session against a clearspeak server.
type Recorder struct {
	api  *Client
	open DeviceOpener

	state      State
	device     CaptureDevice
	chunks     [][]byte
	clip       []byte
	difficulty string
	script     *scripts.Script
	result     *AnalysisResult
	feedback   string
}

func NewRecorder(api *Client, open DeviceOpener) *Recorder {
	return &Recorder{api: api, open: open}
}

func (r *Recorder) State() State            { return r.state }
func (r *Recorder) Script() *scripts.Script { return r.script }
func (r *Recorder) Result() *AnalysisResult { return r.result }
func (r *Recorder) Feedback() string        { return r.feedback }
func (r *Recorder) Clip() []byte            { return r.clip }

// SetDifficulty clears any shown script and fetches a fresh one at the new
// difficulty.
func (r *Recorder) SetDifficulty(ctx context.Context, difficulty string) error {
	r.difficulty = difficulty
	r.script = nil
	script, err := r.api.FetchScript(ctx, difficulty)
	if err != nil {
		return err
	}
	r.script = &script
	return nil
}

// Start acquires the capture device and begins recording.
func (r *Recorder) Start() error {
	if r.state != Idle {
		return fmt.Errorf("cannot start recording while %s", r.state)
	}
	device, err := r.open()
	if err != nil {
		return err
	}
	r.device = device
	r.chunks = nil
	r.state = Recording
	return nil
}

// Capture pulls the next chunk from the open device. It returns io.EOF when
// the device has no more audio, which callers treat as a cue to Stop.
func (r *Recorder) Capture() error {
	if r.state != Recording {
		return fmt.Errorf("cannot capture while %s", r.state)
	}
	buf := make([]byte, captureChunkBytes)
	n, err := r.device.Read(buf)
	if n > 0 {
		r.chunks = append(r.chunks, buf[:n])
	}
	return err
}

// Stop releases the device and finalizes the captured chunks into a single
// clip.
func (r *Recorder) Stop() error {
	if r.state != Recording {
		return fmt.Errorf("cannot stop while %s", r.state)
	}
	err := r.device.Close()
	r.device = nil

	var size int
	for _, chunk := range r.chunks {
		size += len(chunk)
	}
	clip := make([]byte, 0, size)
	for _, chunk := range r.chunks {
		clip = append(clip, chunk...)
	}
	r.clip = clip
	r.chunks = nil
	r.state = Stopped
	return err
}

// Analyze uploads the finalized clip. Without a token it fails before any
// request is made. A failed upload still lands in FeedbackShown with a
// generic message so the user is never stuck mid-session.
func (r *Recorder) Analyze(ctx context.Context) error {
	if r.state != Stopped {
		return fmt.Errorf("cannot analyze while %s", r.state)
	}
	if len(r.clip) == 0 {
		return ErrNoAudio
	}
	if r.api.token() == "" {
		return ErrNotAuthenticated
	}

	r.state = Analyzing
	result, err := r.api.Analyze(ctx, r.clip)
	if err != nil {
		r.result = nil
		r.feedback = analysisFailedFeedback
		r.state = FeedbackShown
		return err
	}
	r.result = &result
	r.feedback = result.AIFeedback
	r.state = FeedbackShown
	return nil
}

// Clear resets the session to its initial state, refetching a script when a
// difficulty is held.
func (r *Recorder) Clear(ctx context.Context) error {
	if r.device != nil {
		r.device.Close()
		r.device = nil
	}
	r.chunks = nil
	r.clip = nil
	r.result = nil
	r.feedback = ""
	r.state = Idle
	if r.difficulty != "" {
		return r.SetDifficulty(ctx, r.difficulty)
	}
	r.script = nil
	return nil
}

type fileDevice struct {
	f *os.File
}

func (d fileDevice) Read(p []byte) (int, error) { return d.f.Read(p) }
func (d fileDevice) Close() error               { return d.f.Close() }

// NewFileDevice opens an audio file as a capture device, for analyzing
// existing recordings from the command line.
func NewFileDevice(path string) (CaptureDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio file: %w", err)
	}
	return fileDevice{f}, nil
}
