package importer

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Supported encoding names, as reported in ImportBatch.DetectedEncoding.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
	EncodingISO8859_1   = "iso-8859-1"
)

// minEncodingConfidence is the fraction of high bytes that must look like
// latin text before a single-byte encoding is accepted.
const minEncodingConfidence = 0.5

// DecoderFor returns the decoder for a known encoding name. Used when a
// profile pins the encoding instead of relying on detection.
func DecoderFor(name string) (*encoding.Decoder, error) {
	switch name {
	case EncodingUTF8, "":
		return unicode.UTF8BOM.NewDecoder(), nil
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), nil
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder(), nil
	case EncodingISO8859_1:
		return charmap.ISO8859_1.NewDecoder(), nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

// DetectEncoding inspects the head of the file (byte-order mark first, then a
// byte-frequency heuristic) and picks one of the supported encodings. It runs
// once per file, never per row. If nothing scores above the confidence
// threshold the whole import fails with UnsupportedEncodingError.
func DetectEncoding(head []byte) (string, *encoding.Decoder, error) {
	if len(head) == 0 {
		dec, _ := DecoderFor(EncodingUTF8)
		return EncodingUTF8, dec, nil
	}

	if name, ok := detectBOM(head); ok {
		dec, _ := DecoderFor(name)
		return name, dec, nil
	}

	if name, ok := detectUTF16(head); ok {
		dec, _ := DecoderFor(name)
		return name, dec, nil
	}

	if utf8.Valid(head) && bytes.IndexByte(head, 0x00) < 0 {
		dec, _ := DecoderFor(EncodingUTF8)
		return EncodingUTF8, dec, nil
	}

	name, ok := detectSingleByte(head)
	if !ok {
		return "", nil, &UnsupportedEncodingError{
			Reason: "byte distribution matches no supported encoding",
		}
	}
	dec, _ := DecoderFor(name)
	return name, dec, nil
}

func detectBOM(head []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(head, []byte{0xEF, 0xBB, 0xBF}):
		return EncodingUTF8, true
	case bytes.HasPrefix(head, []byte{0xFF, 0xFE}):
		return EncodingUTF16LE, true
	case bytes.HasPrefix(head, []byte{0xFE, 0xFF}):
		return EncodingUTF16BE, true
	}
	return "", false
}

// detectUTF16 looks for the NUL stripes BOM-less UTF-16 latin text produces:
// one of the two byte positions is almost always zero.
func detectUTF16(head []byte) (string, bool) {
	if len(head) < 4 {
		return "", false
	}
	n := len(head) &^ 1
	evenZeros, oddZeros := 0, 0
	for i := 0; i < n; i += 2 {
		if head[i] == 0x00 {
			evenZeros++
		}
		if head[i+1] == 0x00 {
			oddZeros++
		}
	}
	pairs := n / 2
	if oddZeros*10 >= pairs*8 && evenZeros*10 < pairs*2 {
		return EncodingUTF16LE, true
	}
	if evenZeros*10 >= pairs*8 && oddZeros*10 < pairs*2 {
		return EncodingUTF16BE, true
	}
	return "", false
}

// detectSingleByte decides between windows-1252 and iso-8859-1. Bytes in the
// 0x80-0x9F range are control characters in iso-8859-1 but printable
// punctuation in windows-1252, which makes them the deciding signal.
func detectSingleByte(head []byte) (string, bool) {
	if bytes.IndexByte(head, 0x00) >= 0 {
		return "", false
	}

	high, plausible, c1 := 0, 0, 0
	for _, b := range head {
		if b < 0x80 {
			continue
		}
		high++
		switch {
		case b >= 0xA0:
			plausible++
		case isWindows1252Punct(b):
			c1++
			plausible++
		}
	}
	if high == 0 {
		return EncodingUTF8, true // plain ASCII
	}
	if float64(plausible)/float64(high) < minEncodingConfidence {
		return "", false
	}
	if c1 > 0 {
		return EncodingWindows1252, true
	}
	return EncodingISO8859_1, true
}

// isWindows1252Punct reports whether b is one of the printable C1-region
// bytes of windows-1252 (euro sign, smart quotes, dashes and friends).
func isWindows1252Punct(b byte) bool {
	switch b {
	case 0x80, 0x82, 0x84, 0x85, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x99:
		return true
	}
	return false
}
