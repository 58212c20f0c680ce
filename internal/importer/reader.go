package importer

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/transform"

	"github.com/finch-money/finch/internal/profile"
)

// detectPeekSize is how much of the file the encoding heuristic sees.
const detectPeekSize = 8192

// RowReader yields raw CSV records with their 1-based source row numbers,
// decoding from the detected (or profile-pinned) text encoding.
type RowReader struct {
	cr       *csv.Reader
	Encoding string
	row      int
	skipped  bool
}

// NewRowReader wires encoding detection and CSV parsing for one source file.
// Detection happens here, once, before any row is decoded.
func NewRowReader(r io.Reader, p profile.Profile) (*RowReader, error) {
	br := bufio.NewReaderSize(r, detectPeekSize)

	name := p.Encoding
	var err error
	dec, derr := DecoderFor(name)
	if p.Encoding == "" {
		head, _ := br.Peek(detectPeekSize)
		name, dec, err = DetectEncoding(head)
		if err != nil {
			return nil, err
		}
	} else if derr != nil {
		return nil, derr
	}

	cr := csv.NewReader(transform.NewReader(br, dec))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	if runes := []rune(p.Delimiter); len(runes) == 1 {
		cr.Comma = runes[0]
	}

	return &RowReader{cr: cr, Encoding: name, skipped: !p.HasHeader}, nil
}

// Read returns the next non-blank record. The header row, when the profile
// declares one, is consumed silently. io.EOF signals the end of the file; any
// other error is a MalformedRowError for that row and reading may continue.
func (rr *RowReader) Read() ([]string, int, error) {
	for {
		rec, err := rr.cr.Read()
		if err == io.EOF {
			return nil, rr.row, io.EOF
		}
		rr.row++
		if err != nil {
			return nil, rr.row, &MalformedRowError{Row: rr.row, Reason: err.Error()}
		}
		if !rr.skipped {
			rr.skipped = true
			continue
		}
		if isBlank(rec) {
			continue
		}
		return rec, rr.row, nil
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
