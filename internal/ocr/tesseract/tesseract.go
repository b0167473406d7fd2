package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/plate-tools-mcp/internal/ocr"
)

// Reader reads single plate characters with the Tesseract engine.
//
// A new gosseract client is created per call. Clients are not safe for
// concurrent use and the recognizer reads patches from several goroutines.
type Reader struct {
	// Language is the Tesseract language code, "eng" when empty.
	Language string

	// TessdataPrefix overrides the traineddata directory when non-empty.
	TessdataPrefix string

	// Whitelist restricts recognized glyphs; ocr.PlateWhitelist when empty.
	Whitelist string
}

// New returns a reader for the given language and tessdata prefix.
func New(language, tessdataPrefix string) *Reader {
	return &Reader{
		Language:       language,
		TessdataPrefix: tessdataPrefix,
		Whitelist:      ocr.PlateWhitelist,
	}
}

// ReadCharacter runs single-word recognition on one character patch and
// returns every word Tesseract reports, with confidences on a 0-100 scale.
//
// Tesseract calls cannot be interrupted. When ctx ends first ReadCharacter
// returns ctx.Err() and the engine call finishes in the background.
func (r *Reader) ReadCharacter(ctx context.Context, patch image.Image) ([]ocr.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, patch); err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}

	type outcome struct {
		tokens []ocr.Token
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		tokens, err := r.read(buf.Bytes())
		done <- outcome{tokens: tokens, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.tokens, out.err
	}
}

func (r *Reader) read(data []byte) ([]ocr.Token, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if r.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}

	language := r.Language
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	whitelist := r.Whitelist
	if whitelist == "" {
		whitelist = ocr.PlateWhitelist
	}
	if err := client.SetWhitelist(whitelist); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_WORD); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	return wordTokens(boxes), nil
}

// wordTokens converts word boxes to tokens, trimming surrounding whitespace.
// Empty words are kept; callers decide what an empty best guess means.
func wordTokens(boxes []gosseract.BoundingBox) []ocr.Token {
	tokens := make([]ocr.Token, 0, len(boxes))
	for _, box := range boxes {
		tokens = append(tokens, ocr.TextToken(strings.TrimSpace(box.Word), box.Confidence))
	}
	return tokens
}

// Info reports whether Tesseract can be initialized with this reader's
// settings, and its version.
func (r *Reader) Info() ocr.Info {
	info := ocr.Info{
		Backend:        "gosseract",
		Language:       r.Language,
		Whitelist:      r.Whitelist,
		PageSegMode:    "single_word",
		TessdataPrefix: r.TessdataPrefix,
	}
	if info.Language == "" {
		info.Language = "eng"
	}
	if info.Whitelist == "" {
		info.Whitelist = ocr.PlateWhitelist
	}

	client := gosseract.NewClient()
	defer client.Close()

	if r.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.TessdataPrefix); err != nil {
			info.Error = err.Error()
			return info
		}
	}
	if err := client.SetLanguage(info.Language); err != nil {
		info.Error = err.Error()
		return info
	}

	info.Version = client.Version()
	info.Available = info.Version != ""
	if !info.Available {
		info.Error = "tesseract did not report a version"
	}
	return info
}
