package core

// validators.go provides reusable ValidatorFunc constructors for entity schemas.
//
// Built-in validators accept blank input unless they are wrapped by Required;
// the row validator applies the required rule itself, so most columns only
// need a format check. LookupValidator parses compact specs such as
// "date", "enum:Low|Medium|High" or "maxlen:80" for schema catalog files.

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
)

// Date accepts any layout understood by ToPgDate.
func Date() ValidatorFunc {
	return func(raw string) error {
		if isBlank(raw) {
			return nil
		}
		if !ToPgDate(raw).Valid {
			return errors.New("invalid date format (use YYYY-MM-DD or similar)")
		}
		return nil
	}
}

// Numeric accepts numbers with optional currency symbols, thousands
// separators and accounting-style negatives.
func Numeric() ValidatorFunc {
	return func(raw string) error {
		if isBlank(raw) {
			return nil
		}
		if !ToPgNumeric(raw).Valid {
			return errors.New("invalid number format")
		}
		return nil
	}
}

// Bool accepts yes/no, true/false, y/n, t/f and 1/0.
func Bool() ValidatorFunc {
	return func(raw string) error {
		if isBlank(raw) {
			return nil
		}
		if !ToPgBool(raw).Valid {
			return errors.New("must be yes/no, true/false, or 1/0")
		}
		return nil
	}
}

// Enum accepts one of values, compared case-insensitively.
func Enum(values ...string) ValidatorFunc {
	return func(raw string) error {
		v := strings.TrimSpace(raw)
		if v == "" {
			return nil
		}
		for _, ev := range values {
			if strings.EqualFold(ev, v) {
				return nil
			}
		}
		return fmt.Errorf("value must be one of: %s", strings.Join(values, ", "))
	}
}

// Email accepts a single bare address.
func Email() ValidatorFunc {
	return func(raw string) error {
		v := strings.TrimSpace(raw)
		if v == "" {
			return nil
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v {
			return fmt.Errorf("invalid email address %q", v)
		}
		return nil
	}
}

// MaxLength rejects values longer than n characters.
func MaxLength(n int) ValidatorFunc {
	return func(raw string) error {
		if l := len([]rune(strings.TrimSpace(raw))); l > n {
			return fmt.Errorf("must be at most %d characters (got %d)", n, l)
		}
		return nil
	}
}

// Pattern rejects non-blank values that do not match re.
// The returned func runs concurrently and must not write captured state.
func Pattern(re *regexp.Regexp, message string) ValidatorFunc {
	if message == "" {
		message = fmt.Sprintf("must match %s", re.String())
	}
	return func(raw string) error {
		v := strings.TrimSpace(raw)
		if v == "" || re.MatchString(v) {
			return nil
		}
		return errors.New(message)
	}
}

// Required rejects blank values with the given message.
// Use it when a validator must own the required message for its field.
func Required(message string) ValidatorFunc {
	return func(raw string) error {
		if isBlank(raw) {
			return errors.New(message)
		}
		return nil
	}
}

// Chain runs validators in order and returns the first failure.
func Chain(validators ...ValidatorFunc) ValidatorFunc {
	return func(raw string) error {
		for _, v := range validators {
			if v == nil {
				continue
			}
			if err := v(raw); err != nil {
				return err
			}
		}
		return nil
	}
}

// LookupValidator builds a validator from a compact spec. Multiple specs can
// be joined with ",", e.g. "maxlen:120,email".
func LookupValidator(spec string) (ValidatorFunc, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	parts := splitSpecs(spec)
	if len(parts) > 1 {
		chain := make([]ValidatorFunc, 0, len(parts))
		for _, p := range parts {
			v, err := LookupValidator(p)
			if err != nil {
				return nil, err
			}
			chain = append(chain, v)
		}
		return Chain(chain...), nil
	}

	name, arg, _ := strings.Cut(spec, ":")
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "string":
		return nil, nil
	case "date":
		return Date(), nil
	case "numeric", "number", "decimal":
		return Numeric(), nil
	case "bool", "boolean":
		return Bool(), nil
	case "email":
		return Email(), nil
	case "enum":
		values := strings.Split(arg, "|")
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
		if arg == "" {
			return nil, fmt.Errorf("validator %q: enum needs values", spec)
		}
		return Enum(values...), nil
	case "maxlen":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("validator %q: maxlen needs a positive integer", spec)
		}
		return MaxLength(n), nil
	case "pattern":
		re, err := regexp.Compile(arg)
		if err != nil {
			return nil, fmt.Errorf("validator %q: %w", spec, err)
		}
		return Pattern(re, ""), nil
	default:
		return nil, fmt.Errorf("unknown validator %q", name)
	}
}

// splitSpecs splits on commas that are not part of a pattern argument.
func splitSpecs(spec string) []string {
	if strings.HasPrefix(strings.ToLower(spec), "pattern:") {
		return []string{spec}
	}
	parts := strings.Split(spec, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
