// Package speech is the synthesis/transcription glue between the transport
// layer and the orchestration core. The core never touches audio; transports
// use this pipe to cross the text boundary.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

type Config struct {
	// Voice used for synthesis, e.g. "nova".
	Voice string
	// RecognitionHints biases transcription towards menu vocabulary, the
	// phone-line equivalent of STT keyword boosting.
	RecognitionHints []string
	Speed            float64
}

// Pipe synthesizes assistant utterances and transcribes caller audio.
type Pipe struct {
	client *openaisdk.Client
	cfg    Config
}

func NewPipe(client *openaisdk.Client, cfg Config) (*Pipe, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = "nova"
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	return &Pipe{client: client, cfg: cfg}, nil
}

// Synthesize renders text to audio and streams it into w.
func (p *Pipe) Synthesize(ctx context.Context, text string, w io.Writer) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	resp, err := p.client.Audio.Speech.New(ctx, openaisdk.AudioSpeechNewParams{
		Model: openaisdk.SpeechModelTTS1,
		Input: text,
		Voice: openaisdk.AudioSpeechNewParamsVoice(p.cfg.Voice),
		Speed: openaisdk.Float(p.cfg.Speed),
	})
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("stream synthesized audio: %w", err)
	}
	return nil
}

// Transcribe converts one caller audio segment to text.
func (p *Pipe) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	params := openaisdk.AudioTranscriptionNewParams{
		Model: openaisdk.AudioModelWhisper1,
		File:  openaisdk.File(audio, "utterance.wav", "audio/wav"),
	}
	if len(p.cfg.RecognitionHints) > 0 {
		params.Prompt = openaisdk.String(strings.Join(p.cfg.RecognitionHints, ", "))
	}

	out, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
