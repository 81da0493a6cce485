package core

// tokenize.go turns raw CSV text into a header and row records.
//
// The scanner is a single pass over the input with two states, normal and
// in-quotes. It tolerates the irregular output of spreadsheet exports:
//
//   - A leading UTF-8 BOM is dropped
//   - Quoted fields may contain commas, newlines and doubled quotes ("")
//   - Records end at \n, \r\n or a bare \r
//   - Lines that are blank after trimming are skipped and not counted
//   - Short rows are padded with empty strings; long rows keep the overflow
//     in Record.Extra
//
// An unterminated quote consumes the rest of the input as quoted content.
// Tokenize never fails: empty input yields an empty header and no records.

import "strings"

const utf8BOM = "\uFEFF"

// Tokenize splits raw CSV text into its header row and data records.
func Tokenize(raw string) ([]string, []Record) {
	t := tokenizer{}
	t.scan(strings.TrimPrefix(raw, utf8BOM))
	return t.header, t.records
}

type tokenizer struct {
	header  []string
	records []Record

	fields  []string
	field   strings.Builder
	quoted  bool // current logical line contained a quote
	started bool // something was consumed since the last record boundary
}

func (t *tokenizer) scan(s string) {
	inQuotes := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		t.started = true

		if inQuotes {
			if c == '"' {
				if i+1 < len(s) && s[i+1] == '"' {
					t.field.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			t.field.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inQuotes = true
			t.quoted = true
		case ',':
			t.endField()
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			t.endRecord()
		case '\n':
			t.endRecord()
		default:
			t.field.WriteByte(c)
		}
	}

	if t.started {
		t.endRecord()
	}
}

func (t *tokenizer) endField() {
	t.fields = append(t.fields, t.field.String())
	t.field.Reset()
}

func (t *tokenizer) endRecord() {
	t.endField()
	fields := t.fields
	blank := !t.quoted && len(fields) == 1 && strings.TrimSpace(fields[0]) == ""

	t.fields = nil
	t.quoted = false
	t.started = false

	if blank {
		return
	}

	if t.header == nil {
		t.header = make([]string, len(fields))
		for i, f := range fields {
			t.header[i] = strings.TrimSpace(f)
		}
		return
	}

	t.records = append(t.records, zipRecord(len(t.records)+1, t.header, fields))
}

// zipRecord pairs fields with header names by position. Missing trailing
// fields become "", and when a header name repeats only its first column
// is stored.
func zipRecord(index int, header, fields []string) Record {
	rec := Record{
		Index:  index,
		Fields: make(map[string]string, len(header)),
	}

	for i, name := range header {
		if _, seen := rec.Fields[name]; seen {
			continue
		}
		v := ""
		if i < len(fields) {
			v = strings.TrimSpace(fields[i])
		}
		rec.Fields[name] = v
	}

	// Trailing empty cells (a dangling comma) are not extra values.
	last := len(fields)
	for last > len(header) && strings.TrimSpace(fields[last-1]) == "" {
		last--
	}
	if last > len(header) {
		rec.Extra = make([]string, 0, last-len(header))
		for _, f := range fields[len(header):last] {
			rec.Extra = append(rec.Extra, strings.TrimSpace(f))
		}
	}

	return rec
}
