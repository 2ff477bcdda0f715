package core

// ingest.go is the format ingestion adapter: it gates uploads by extension
// and size, decodes a recognized tabular format into raw string records,
// and hands them to buildTable for the one-shot type inference.

import (
	"io"
	"path/filepath"
	"strings"
)

// decoder turns raw file bytes into a header row plus data records.
type decoder func(data []byte) (header []string, records [][]string, err error)

// decoders is the extension allow-list. Anything else is rejected before
// any parsing attempt.
var decoders = map[string]decoder{
	".csv":  decodeCSV,
	".xlsx": decodeXLSX,
	".xls":  decodeXLS,
}

// decoderFor returns the decoder for a filename, or an
// UnsupportedFormatError naming the offending extension.
func decoderFor(filename string) (decoder, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	dec, ok := decoders[ext]
	if !ok {
		return nil, &UnsupportedFormatError{Extension: ext}
	}
	return dec, nil
}

// readLimited reads at most limit bytes from r, failing with
// FileTooLargeError as soon as the limit is crossed rather than buffering
// an arbitrarily large body.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &FileTooLargeError{Size: int64(len(data)), Limit: limit}
	}
	return data, nil
}

// decodeUpload decodes file bytes using the decoder for filename and builds
// the canonical table. The extension must already have been validated.
func decodeUpload(filename string, data []byte) (*Table, error) {
	dec, err := decoderFor(filename)
	if err != nil {
		return nil, err
	}

	header, records, err := dec(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoDataRows
	}

	return buildTable(header, records)
}

// isEmptyRecord reports whether every cell of a record is blank.
func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// splitHeader separates the header row from the data records, dropping
// fully blank rows.
func splitHeader(rows [][]string) (header []string, records [][]string, err error) {
	kept := rows[:0:0]
	for _, row := range rows {
		if !isEmptyRecord(row) {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return nil, nil, ErrEmptyFile
	}
	return kept[0], kept[1:], nil
}
