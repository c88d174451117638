package score

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"unicode/utf16"
)

// Density measures the information content of text as the compressed
// size of its UTF-16 encoding. Repetitive filler compresses away, so a
// terse factual post and a padded one separate cleanly. Thresholds in
// the feature table are calibrated against this exact function.
func Density(text string) int {
	encoded := utf16.Encode([]rune(text))
	raw := make([]byte, 2*len(encoded))
	for i, unit := range encoded {
		binary.LittleEndian.PutUint16(raw[2*i:], unit)
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return len(raw)
	}
	if _, err := w.Write(raw); err != nil {
		return len(raw)
	}
	if err := w.Close(); err != nil {
		return len(raw)
	}
	return buf.Len()
}
