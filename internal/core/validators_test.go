package core

import (
	"regexp"
	"sync"
	"testing"
)

func TestBuiltinValidators(t *testing.T) {
	tests := []struct {
		name    string
		v       ValidatorFunc
		input   string
		wantErr bool
	}{
		{"date iso", Date(), "2024-03-15", false},
		{"date us", Date(), "3/15/2024", false},
		{"date words", Date(), "Mar 15, 2024", false},
		{"date garbage", Date(), "soon", true},
		{"date blank", Date(), "  ", false},

		{"numeric plain", Numeric(), "42", false},
		{"numeric currency", Numeric(), "$1,234.50", false},
		{"numeric accounting negative", Numeric(), "(99.95)", false},
		{"numeric text", Numeric(), "twelve", true},
		{"numeric blank", Numeric(), "", false},

		{"bool yes", Bool(), "Yes", false},
		{"bool zero", Bool(), "0", false},
		{"bool maybe", Bool(), "maybe", true},

		{"enum match ignores case", Enum("Low", "Medium", "High"), "medium", false},
		{"enum miss", Enum("Low", "Medium", "High"), "Urgent", true},
		{"enum blank", Enum("Low"), "", false},

		{"email ok", Email(), "ann@example.com", false},
		{"email trimmed", Email(), "  ann@example.com ", false},
		{"email missing at", Email(), "ann.example.com", true},
		{"email display name", Email(), "Ann <ann@example.com>", true},
		{"email blank", Email(), "", false},

		{"maxlen fits", MaxLength(5), "héllo", false},
		{"maxlen over", MaxLength(5), "hello!", true},

		{"pattern match", Pattern(regexp.MustCompile(`^[A-Z]{3}-\d+$`), ""), "CTL-12", false},
		{"pattern miss", Pattern(regexp.MustCompile(`^[A-Z]{3}-\d+$`), ""), "ctl12", true},

		{"required blank", Required("needed"), " ", true},
		{"required set", Required("needed"), "x", false},

		{"chain first failure", Chain(Required("needed"), MaxLength(2)), "abc", true},
		{"chain skips nil", Chain(nil, MaxLength(3)), "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validator(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestPattern_CustomMessage(t *testing.T) {
	v := Pattern(regexp.MustCompile(`^\d+$`), "digits only")
	if err := v("abc"); err == nil || err.Error() != "digits only" {
		t.Errorf("error = %v, want %q", err, "digits only")
	}
}

func TestLookupValidator(t *testing.T) {
	tests := []struct {
		spec    string
		input   string
		wantNil bool
		wantErr bool // from the validator, not the lookup
	}{
		{spec: "", wantNil: true},
		{spec: "text", wantNil: true},
		{spec: "date", input: "2024-01-01"},
		{spec: "DATE", input: "nope", wantErr: true},
		{spec: "number", input: "1.5"},
		{spec: "boolean", input: "y"},
		{spec: "email", input: "bad", wantErr: true},
		{spec: "enum:Open|Closed", input: "closed"},
		{spec: "enum: Open | Closed ", input: "Closed"},
		{spec: "enum:Open|Closed", input: "Pending", wantErr: true},
		{spec: "maxlen:3", input: "abcd", wantErr: true},
		{spec: "maxlen:3,email", input: "a@b.co", wantErr: true},
		{spec: "maxlen:40,email", input: "a@b.co"},
		{spec: "pattern:^[a-z]{2,3}$", input: "abc"},
		{spec: "pattern:^[a-z]{2,3}$", input: "abcd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec+"/"+tt.input, func(t *testing.T) {
			v, err := LookupValidator(tt.spec)
			if err != nil {
				t.Fatalf("LookupValidator(%q) error: %v", tt.spec, err)
			}
			if tt.wantNil {
				if v != nil {
					t.Errorf("LookupValidator(%q) should return nil", tt.spec)
				}
				return
			}
			if v == nil {
				t.Fatalf("LookupValidator(%q) returned nil", tt.spec)
			}
			if got := v(tt.input); (got != nil) != tt.wantErr {
				t.Errorf("validator(%q) error = %v, wantErr %v", tt.input, got, tt.wantErr)
			}
		})
	}
}

func TestLookupValidator_BadSpecs(t *testing.T) {
	for _, spec := range []string{"enum:", "maxlen:0", "maxlen:abc", "pattern:[", "uuid"} {
		t.Run(spec, func(t *testing.T) {
			if _, err := LookupValidator(spec); err == nil {
				t.Errorf("LookupValidator(%q) should fail", spec)
			}
		})
	}
}

func TestValidators_SharedAcrossGoroutines(t *testing.T) {
	v, err := LookupValidator("pattern:^[a-z]+$")
	if err != nil {
		t.Fatalf("LookupValidator() error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = v("123")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil || err.Error() != "must match ^[a-z]+$" {
			t.Errorf("goroutine %d error = %v", i, err)
		}
	}
}
