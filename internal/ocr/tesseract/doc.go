// Package tesseract reads single license-plate characters with Tesseract.
//
// The plate recognizer hands this package one small, binarized character
// patch at a time. Tesseract runs in single-word mode with a whitelist of
// digits and uppercase letters, and every word it reports comes back as an
// ocr.Token with a 0-100 confidence.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Set PLATE_TESSDATA_PREFIX to point at a non-standard tessdata directory.
//
// # Cancellation
//
// Tesseract calls are blocking cgo calls. ReadCharacter runs each call on its
// own goroutine and returns as soon as the context ends; the abandoned call
// releases its client when it completes.
package tesseract
