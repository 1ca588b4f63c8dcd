// Package tesseract provides the local recognition engine backed by
// libtesseract through gosseract.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/castlemilk/salahtime/backend/internal/extraction"
)

// Engine is a single gosseract client. It is not safe for concurrent use.
type Engine struct {
	client *gosseract.Client
}

// NewFactory returns an EngineFactory that starts a fresh client per pass
// with the given languages (default "eng").
func NewFactory(languages ...string) extraction.EngineFactory {
	langs := make([]string, 0, len(languages))
	for _, l := range languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}

	return func(ctx context.Context) (extraction.Engine, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := gosseract.NewClient()
		if err := c.SetLanguage(langs...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set languages %v: %w", langs, err)
		}
		if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
			c.Close()
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
		return &Engine{client: c}, nil
	}
}

func (e *Engine) SetWhitelist(chars string) error {
	return e.client.SetWhitelist(chars)
}

func (e *Engine) SetPreserveInterwordSpaces(preserve bool) error {
	value := "0"
	if preserve {
		value = "1"
	}
	return e.client.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), value)
}

// Recognize runs tesseract over an encoded image. libtesseract cannot be
// interrupted, so ctx is only checked before the call starts.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

func (e *Engine) Close() error {
	return e.client.Close()
}
