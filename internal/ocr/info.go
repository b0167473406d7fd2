package ocr

// PlateWhitelist is the glyph set plate characters are drawn from.
const PlateWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Info describes the OCR backend.
type Info struct {
	Available      bool   `json:"available"`
	Version        string `json:"version,omitempty"`
	Error          string `json:"error,omitempty"`
	Backend        string `json:"backend"`
	Language       string `json:"language"`
	Whitelist      string `json:"whitelist"`
	PageSegMode    string `json:"page_seg_mode"`
	TessdataPrefix string `json:"tessdata_prefix,omitempty"`
}
