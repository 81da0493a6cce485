package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/csvimport/internal/core"
)

const contactsYAML = `
key: contacts_yaml
group: CRM
label: Contacts
uniqueKey: [email]
columns:
  - name: Name
    key: name
    required: true
  - name: Email
    key: email
    required: true
    aliases: [E-mail, Email Address]
    validate: email
  - name: Tier
    key: tier
    validate: enum:Gold|Silver
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(contactsYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if def.Info.Key != "contacts_yaml" || def.Info.Group != "CRM" {
		t.Errorf("info = %+v", def.Info)
	}
	if len(def.Schema) != 3 {
		t.Fatalf("schema has %d columns, want 3", len(def.Schema))
	}
	email := def.Schema[1]
	if email.CanonicalName != "Email" || email.FieldKey != "email" || !email.Required {
		t.Errorf("email column = %+v", email)
	}
	if strings.Join(email.Aliases, "|") != "E-mail|Email Address" {
		t.Errorf("aliases = %v", email.Aliases)
	}
	if _, ok := def.Validators["name"]; ok {
		t.Error("name should have no validator")
	}
	if err := def.Validators["tier"]("Bronze"); err == nil {
		t.Error("tier validator should reject Bronze")
	}

	p, err := core.Preview("Name,E-mail\nJohn,\n", def, core.PreviewOptions{})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if p.ErrorCount != 1 || p.RowErrors[0].Messages[0] != "Email is required" {
		t.Errorf("row errors = %+v", p.RowErrors)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no key", "columns: [{name: A, key: a}]", "entity key is required"},
		{"unknown validator", "key: x\ncolumns: [{name: A, key: a, validate: nope}]", "unknown validator"},
		{"unknown field", "key: x\ncolumnz: []", "decode schema"},
		{"duplicate key", "key: x\ncolumns: [{name: A, key: a}, {name: B, key: a}]", "duplicate field key"},
		{"bad unique key", "key: x\nuniqueKey: [zz]\ncolumns: [{name: A, key: a}]", "unique key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a_good.yaml", "key: loaddir_good\ncolumns: [{name: A, key: a, required: true}]")
	write("b_bad.yml", "key: loaddir_bad\ncolumns: [{name: A, key: a, validate: maxlen:x}]")
	write("notes.txt", "ignored")

	n, err := LoadDir(dir)
	if n != 1 {
		t.Errorf("loaded %d, want 1", n)
	}
	if err == nil || !strings.Contains(err.Error(), "b_bad.yml") {
		t.Errorf("error = %v, want mention of b_bad.yml", err)
	}
	if _, ok := core.Get("loaddir_good"); !ok {
		t.Error("loaddir_good not registered")
	}

	// registering the same directory again fails on the duplicate key
	if _, err := LoadDir(dir); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("second LoadDir error = %v, want already registered", err)
	}
}

func TestLoadDirMissing(t *testing.T) {
	n, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if n != 0 || err != nil {
		t.Errorf("LoadDir(missing) = %d, %v; want 0, nil", n, err)
	}
}
