package extraction

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// recognitionWhitelist limits recognition to characters that appear in
// printed timetables.
const recognitionWhitelist = "0123456789:ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz |-/[]()."

// Engine is one recognition worker. It is acquired for a single pass and
// must be closed when the pass ends.
type Engine interface {
	SetWhitelist(chars string) error
	SetPreserveInterwordSpaces(preserve bool) error
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// EngineFactory starts a recognition worker. It returns an error when no
// engine can be started.
type EngineFactory func(ctx context.Context) (Engine, error)

// Recognizer runs two recognition passes over an image, one on the
// normalized image and one on the original, and keeps the longer
// transcript.
type Recognizer struct {
	newEngine  EngineFactory
	normalizer *ImageNormalizer
}

// NewRecognizer creates a recognizer. A nil factory makes every call fail
// with ErrRecognitionUnavailable.
func NewRecognizer(newEngine EngineFactory, normalizer *ImageNormalizer) *Recognizer {
	if normalizer == nil {
		normalizer = NewImageNormalizer()
	}
	return &Recognizer{newEngine: newEngine, normalizer: normalizer}
}

// Available reports whether an engine is configured.
func (r *Recognizer) Available() bool {
	return r != nil && r.newEngine != nil
}

// Recognize returns the transcript of image. Pass 1 reports progress in
// [0, 0.5] and pass 2 in [0.5, 1].
func (r *Recognizer) Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (string, error) {
	if !r.Available() {
		return "", &ExtractionError{
			Code:    ErrRecognitionUnavailable,
			Message: "no recognition engine configured",
			Method:  MethodOCR,
		}
	}

	onProgress.report("Starting multi-pass OCR...", 0)

	pass1 := onProgress.scaled(0, 0.5, "Pass 1/2: ")
	pass1.report("Preprocessing image...", 0)
	normalized, err := r.normalizer.NormalizeBytes(image)
	if err != nil {
		return "", err
	}
	text1, err1 := r.runPass(ctx, normalized, pass1)

	onProgress.report("Pass 2/2: Processing original image...", 0.5)
	text2, err2 := r.runPass(ctx, image, onProgress.scaled(0.5, 0.5, "Pass 2/2: "))

	switch {
	case err1 != nil && err2 != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &ExtractionError{
			Code:    ErrRecognitionUnavailable,
			Message: "recognition failed on both passes",
			Method:  MethodOCR,
			Cause:   errors.Join(err1, err2),
		}
	case err1 != nil:
		log.Warn().Err(err1).Str("component", "recognizer").Msg("normalized pass failed, using original image transcript")
		return text2, nil
	case err2 != nil:
		log.Warn().Err(err2).Str("component", "recognizer").Msg("original image pass failed, using normalized transcript")
		return text1, nil
	}

	log.Debug().
		Str("component", "recognizer").
		Int("pass1_chars", utf8.RuneCountInString(text1)).
		Int("pass2_chars", utf8.RuneCountInString(text2)).
		Msg("recognition passes complete")

	return selectTranscript(text1, text2), nil
}

// selectTranscript keeps the longer transcript; ties go to the original
// image pass.
func selectTranscript(normalizedPass, originalPass string) string {
	if utf8.RuneCountInString(normalizedPass) > utf8.RuneCountInString(originalPass) {
		return normalizedPass
	}
	return originalPass
}

func (r *Recognizer) runPass(ctx context.Context, image []byte, onProgress ProgressFunc) (text string, err error) {
	engine, err := r.newEngine(ctx)
	if err != nil {
		return "", &ExtractionError{
			Code:    ErrRecognitionUnavailable,
			Message: "start recognition engine",
			Method:  MethodOCR,
			Cause:   err,
		}
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("component", "recognizer").Msg("failed to release recognition engine")
		}
	}()

	onProgress.report("Initializing OCR...", 0.1)
	if err := engine.SetWhitelist(recognitionWhitelist); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := engine.SetPreserveInterwordSpaces(true); err != nil {
		return "", fmt.Errorf("set interword spacing: %w", err)
	}

	onProgress.report("Recognizing text...", 0.1)
	text, err = engine.Recognize(ctx, image)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	onProgress.report("Recognition complete", 1)
	return text, nil
}
