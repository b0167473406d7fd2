// Package ocr defines what an OCR engine hands back for one plate character.
//
// A Token is either text or a numeric code. Tesseract always produces text;
// the numeric form exists for engines that classify digits directly, and
// composes to its decimal string.
//
// This package has no cgo dependencies so the plate pipeline can be built and
// tested without an OCR engine installed. The Tesseract reader lives in the
// tesseract subpackage.
package ocr
