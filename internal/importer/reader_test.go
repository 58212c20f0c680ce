package importer

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-money/finch/internal/profile"
)

func readerProfile() profile.Profile {
	return profile.Profile{
		Name:      "test",
		Account:   "Test",
		Delimiter: ",",
		HasHeader: true,
		DateCol:   0,
		DescCol:   1,
		AmountCol: 2,
	}
}

func TestRowReaderSkipsHeaderAndBlankLines(t *testing.T) {
	data := strings.Join([]string{
		"Date,Description,Amount",
		"2026-01-02,COFFEE,-4.50",
		"",
		" , , ",
		"2026-01-03,LUNCH,-12.00",
	}, "\n")

	rr, err := NewRowReader(strings.NewReader(data), readerProfile())
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, rr.Encoding)

	rec, row, err := rr.Read()
	require.NoError(t, err)
	assert.Equal(t, 2, row)
	assert.Equal(t, []string{"2026-01-02", "COFFEE", "-4.50"}, rec)

	rec, row, err = rr.Read()
	require.NoError(t, err)
	assert.Equal(t, 5, row)
	assert.Equal(t, "LUNCH", rec[1])

	_, _, err = rr.Read()
	assert.Equal(t, io.EOF, err)
}

func TestRowReaderNoHeader(t *testing.T) {
	p := readerProfile()
	p.HasHeader = false

	rr, err := NewRowReader(strings.NewReader("2026-01-02,COFFEE,-4.50\n"), p)
	require.NoError(t, err)

	rec, row, err := rr.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, row)
	assert.Equal(t, "COFFEE", rec[1])
}

func TestRowReaderSemicolonDelimiter(t *testing.T) {
	p := readerProfile()
	p.Delimiter = ";"
	p.HasHeader = false

	rr, err := NewRowReader(strings.NewReader("2026-01-02;A,B;−4,50\n"), p)
	require.NoError(t, err)
	rec, _, err := rr.Read()
	require.NoError(t, err)
	require.Len(t, rec, 3)
	assert.Equal(t, "A,B", rec[1])
}

func TestRowReaderLazyQuotes(t *testing.T) {
	p := readerProfile()
	p.HasHeader = false
	// stray quotes inside a field come back as data, not a parse error
	data := "2026-01-02,5\" DISPLAY,-1.00\n2026-01-03,OK,-2.00\n"

	rr, err := NewRowReader(strings.NewReader(data), p)
	require.NoError(t, err)

	rec, _, err := rr.Read()
	require.NoError(t, err)
	assert.Equal(t, `5" DISPLAY`, rec[1])

	rec, _, err = rr.Read()
	require.NoError(t, err)
	assert.Equal(t, "OK", rec[1])

	_, _, err = rr.Read()
	assert.Equal(t, io.EOF, err)
}

func TestRowReaderDecodesWindows1252(t *testing.T) {
	p := readerProfile()
	p.HasHeader = false
	p.Encoding = EncodingWindows1252

	data := []byte("2026-01-02,CAF")
	data = append(data, 0xC9) // É in windows-1252
	data = append(data, []byte(",-4.50\n")...)

	rr, err := NewRowReader(strings.NewReader(string(data)), p)
	require.NoError(t, err)
	assert.Equal(t, EncodingWindows1252, rr.Encoding)

	rec, _, err := rr.Read()
	require.NoError(t, err)
	assert.Equal(t, "CAFÉ", rec[1])
}

func TestRowReaderRejectsUnknownPinnedEncoding(t *testing.T) {
	p := readerProfile()
	p.Encoding = "ebcdic"
	_, err := NewRowReader(strings.NewReader("x"), p)
	assert.Error(t, err)
}
