package ocr

import "strconv"

// Token is one glyph read by an OCR engine for a character patch.
//
// Engines either return text or, for some numeric glyphs, an integer code.
// Exactly one of Text or Code is meaningful, selected by IsCode.
type Token struct {
	// Text is the recognized string, usually a single character.
	Text string `json:"text,omitempty"`

	// Code is the numeric value when the engine returned a number.
	Code int `json:"code,omitempty"`

	// IsCode selects Code over Text.
	IsCode bool `json:"is_code,omitempty"`

	// Confidence is the engine's confidence on a 0-100 scale.
	Confidence float64 `json:"confidence"`
}

// TextToken returns a text token.
func TextToken(text string, confidence float64) Token {
	return Token{Text: text, Confidence: confidence}
}

// CodeToken returns a numeric token.
func CodeToken(code int, confidence float64) Token {
	return Token{Code: code, IsCode: true, Confidence: confidence}
}

// String renders the token for plate composition: text as is, a numeric code
// as its decimal digits.
func (t Token) String() string {
	if t.IsCode {
		return strconv.Itoa(t.Code)
	}
	return t.Text
}

// Empty reports whether the token carries nothing to compose.
func (t Token) Empty() bool {
	return !t.IsCode && t.Text == ""
}
