package core

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHeader []string
		wantRows   []map[string]string
	}{
		{
			name:       "quoted comma",
			raw:        "Name,Description\nProduct,\"A, comma\"",
			wantHeader: []string{"Name", "Description"},
			wantRows:   []map[string]string{{"Name": "Product", "Description": "A, comma"}},
		},
		{
			name:       "multi-line quoted field",
			raw:        "Name,Notes\nItem,\"Line 1\nLine 2\"",
			wantHeader: []string{"Name", "Notes"},
			wantRows:   []map[string]string{{"Name": "Item", "Notes": "Line 1\nLine 2"}},
		},
		{
			name:       "escaped quotes",
			raw:        "Name,Quote\nA,\"She said \"\"hi\"\"\"\n",
			wantHeader: []string{"Name", "Quote"},
			wantRows:   []map[string]string{{"Name": "A", "Quote": `She said "hi"`}},
		},
		{
			name:       "BOM and CRLF",
			raw:        "\uFEFFName,Email\r\nJohn,j@example.com\r\n",
			wantHeader: []string{"Name", "Email"},
			wantRows:   []map[string]string{{"Name": "John", "Email": "j@example.com"}},
		},
		{
			name:       "bare CR line endings",
			raw:        "Name\rA\rB",
			wantHeader: []string{"Name"},
			wantRows:   []map[string]string{{"Name": "A"}, {"Name": "B"}},
		},
		{
			name:       "blank lines skipped",
			raw:        "\n\nName\n\nA\n   \nB\n\n",
			wantHeader: []string{"Name"},
			wantRows:   []map[string]string{{"Name": "A"}, {"Name": "B"}},
		},
		{
			name:       "short rows padded and cells trimmed",
			raw:        " Name , Email \n  John  ",
			wantHeader: []string{"Name", "Email"},
			wantRows:   []map[string]string{{"Name": "John", "Email": ""}},
		},
		{
			name:       "duplicate header keeps first value",
			raw:        "Email,Email\nfirst@example.com,second@example.com",
			wantHeader: []string{"Email", "Email"},
			wantRows:   []map[string]string{{"Email": "first@example.com"}},
		},
		{
			name:       "unterminated quote consumes the rest",
			raw:        "Name,Notes\nA,\"open\nB,C",
			wantHeader: []string{"Name", "Notes"},
			wantRows:   []map[string]string{{"Name": "A", "Notes": "open\nB,C"}},
		},
		{
			name:       "empty input",
			raw:        "",
			wantHeader: nil,
			wantRows:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, records := Tokenize(tt.raw)

			if !reflect.DeepEqual(header, tt.wantHeader) {
				t.Errorf("header = %q, want %q", header, tt.wantHeader)
			}
			if len(records) != len(tt.wantRows) {
				t.Fatalf("got %d records, want %d", len(records), len(tt.wantRows))
			}
			for i, rec := range records {
				if rec.Index != i+1 {
					t.Errorf("record %d Index = %d, want %d", i, rec.Index, i+1)
				}
				if !reflect.DeepEqual(rec.Fields, tt.wantRows[i]) {
					t.Errorf("record %d fields = %q, want %q", i, rec.Fields, tt.wantRows[i])
				}
			}
		})
	}
}

func TestTokenize_QuotedEmptyLineIsARecord(t *testing.T) {
	_, records := Tokenize("Name\n\"\"\nA")
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Value("Name") != "" || records[1].Index != 2 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestTokenize_ExtraValues(t *testing.T) {
	_, records := Tokenize("A,B\n1,2,3, 4 \n5,6,,\n")
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if want := []string{"3", "4"}; !reflect.DeepEqual(records[0].Extra, want) {
		t.Errorf("Extra = %q, want %q", records[0].Extra, want)
	}
	if records[1].Extra != nil {
		t.Errorf("trailing empty cells should not count as extra, got %q", records[1].Extra)
	}
}

func TestTokenize_RowIndexSkipsBlankLines(t *testing.T) {
	_, records := Tokenize("Name\nA\n\n\nB\n")
	if len(records) != 2 || records[1].Index != 2 {
		t.Fatalf("blank lines must not advance the row index: %+v", records)
	}
}
