package core

// convert.go parses CSV cell text into pgtype values.
//
// The format validators (Date, Numeric, Bool) accept a cell exactly when the
// matching parser returns a Valid value, and the Postgres committer uses the
// text and UUID forms as query parameters. Blank or unparseable input always
// yields Valid=false.

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// TwoDigitYearPivot bounds how far into the future a two-digit year may land.
// "1/5/24" is read as 2024 unless that is more than this many years ahead,
// in which case the previous century is used.
var TwoDigitYearPivot = 20

type dateLayout struct {
	layout       string
	twoDigitYear bool
}

// Two-digit-year layouts are tried last.
var dateLayouts = []dateLayout{
	{"2006-01-02", false}, {"2006/01/02", false}, {"2006.01.02", false},
	{"1/2/2006", false}, {"01/02/2006", false},
	{"1-2-2006", false}, {"01-02-2006", false},
	{"1.2.2006", false}, {"01.02.2006", false},
	{"Jan 2, 2006", false}, {"2 Jan 2006", false},
	{"20060102", false},
	{"1/2/06", true}, {"01/02/06", true},
	{"1-2-06", true}, {"1.2.06", true}, {"01.02.06", true},
}

// plainNumber is what remains of a numeric cell once currency symbols,
// grouping commas and accounting parentheses are stripped. Exponents are
// not accepted.
var plainNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

var numberNoise = strings.NewReplacer("$", "", "€", "", "£", "", ",", "")

var boolWords = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true,
	"false": false, "f": false, "no": false, "n": false, "0": false,
}

// ToPgText trims s; blank text is invalid.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	return pgtype.Text{String: s, Valid: s != ""}
}

// ToPgDate parses s with the first matching layout in dateLayouts.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}
	}

	for _, dl := range dateLayouts {
		t, err := time.Parse(dl.layout, s)
		if err != nil {
			continue
		}
		if dl.twoDigitYear && t.Year() > time.Now().Year()+TwoDigitYearPivot {
			t = t.AddDate(-100, 0, 0)
		}
		return pgtype.Date{Time: t, Valid: true}
	}
	return pgtype.Date{}
}

// ToPgNumeric parses amounts such as "42", "$1,234.50" or "(99.95)".
// Parentheses mark a negative value.
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	negative := len(s) > 1 && s[0] == '(' && s[len(s)-1] == ')'
	if negative {
		s = s[1 : len(s)-1]
	}

	s = strings.TrimSpace(numberNoise.Replace(s))
	if negative {
		s = "-" + s
	}
	if !plainNumber.MatchString(s) {
		return pgtype.Numeric{}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}
	}
	return n
}

// ToPgBool accepts true/false, yes/no, t/f, y/n and 1/0 in any case.
func ToPgBool(s string) pgtype.Bool {
	b, ok := boolWords[strings.ToLower(strings.TrimSpace(s))]
	return pgtype.Bool{Bool: b, Valid: ok}
}

// ToPgUUID parses s as a UUID.
func ToPgUUID(s string) pgtype.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

// PgUUIDToString formats u, or returns "" when it is not valid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
