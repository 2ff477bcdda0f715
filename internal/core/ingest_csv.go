package core

import (
	"bytes"
	"encoding/csv"
	"unicode/utf8"
)

// decodeCSV parses CSV bytes into a header and data records.
// Input is sanitized to valid UTF-8 first; ragged rows are tolerated and
// short cells become nulls downstream.
func decodeCSV(data []byte) ([]string, [][]string, error) {
	data = sanitizeUTF8(stripBOM(data))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyFile
	}

	return splitHeader(rows)
}

// stripBOM removes a leading UTF-8 byte order mark, common in Excel exports.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement rune so
// the CSV reader never chokes on stray encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
