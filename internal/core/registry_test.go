package core

import (
	"reflect"
	"strings"
	"testing"
)

// withRegistry replaces the global registry with defs for the duration of a test.
func withRegistry(t *testing.T, defs ...EntityDefinition) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
	for _, def := range defs {
		Register(def)
	}
}

func testEntity(key, group string) EntityDefinition {
	return EntityDefinition{
		Info:   EntityInfo{Key: key, Group: group, Label: strings.ToUpper(key)},
		Schema: Schema{{CanonicalName: "Name", FieldKey: "name", Required: true}},
	}
}

func TestRegistry(t *testing.T) {
	withRegistry(t,
		testEntity("vendors", "Third Party"),
		testEntity("risks", "Governance"),
		testEntity("controls", "Governance"),
	)

	if EntityCount() != 3 {
		t.Fatalf("EntityCount() = %d, want 3", EntityCount())
	}

	def, ok := Get("risks")
	if !ok || def.Info.Label != "RISKS" {
		t.Errorf("Get(risks) = %+v, %v", def.Info, ok)
	}
	if _, ok := Get("nope"); ok {
		t.Error("Get(nope) should not be found")
	}

	var keys []string
	for _, d := range All() {
		keys = append(keys, d.Info.Key)
	}
	if want := []string{"controls", "risks", "vendors"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("All() keys = %v, want %v", keys, want)
	}

	if got := ByGroup("Governance"); len(got) != 2 || got[0].Info.Key != "controls" {
		t.Errorf("ByGroup(Governance) = %v", got)
	}
	if want := []string{"Governance", "Third Party"}; !reflect.DeepEqual(Groups(), want) {
		t.Errorf("Groups() = %v, want %v", Groups(), want)
	}
}

func TestTryRegister(t *testing.T) {
	withRegistry(t, testEntity("controls", "Governance"))

	noLabel := testEntity("policies", "Governance")
	noLabel.Info.Label = ""
	if err := TryRegister(noLabel); err != nil {
		t.Fatalf("TryRegister() error: %v", err)
	}
	if def, _ := Get("policies"); def.Info.Label != "policies" {
		t.Errorf("label should default to key, got %q", def.Info.Label)
	}

	if err := TryRegister(testEntity("controls", "Other")); err == nil {
		t.Error("duplicate key should be rejected")
	}
}

func TestRegister_PanicsOnInvalid(t *testing.T) {
	withRegistry(t)

	defer func() {
		if recover() == nil {
			t.Error("Register should panic on an invalid definition")
		}
	}()
	Register(EntityDefinition{Info: EntityInfo{Key: "empty"}})
}

func TestEntityDefinition_Validate(t *testing.T) {
	base := func() EntityDefinition {
		return EntityDefinition{
			Info: EntityInfo{Key: "things", UniqueKey: []string{"code"}},
			Schema: Schema{
				{CanonicalName: "Code", FieldKey: "code", Required: true},
				{CanonicalName: "Name", FieldKey: "name"},
			},
			Validators: Validators{"name": MaxLength(10)},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*EntityDefinition)
		wantErr string
	}{
		{"valid", func(*EntityDefinition) {}, ""},
		{"missing key", func(d *EntityDefinition) { d.Info.Key = " " }, "entity key is required"},
		{"empty schema", func(d *EntityDefinition) { d.Schema = nil }, "schema has no columns"},
		{"unnamed column", func(d *EntityDefinition) { d.Schema[1].CanonicalName = "" }, "has no name"},
		{"no field key", func(d *EntityDefinition) { d.Schema[1].FieldKey = "" }, "has no field key"},
		{"duplicate field key", func(d *EntityDefinition) { d.Schema[1].FieldKey = "code" }, "duplicate field key"},
		{"validator for unknown field", func(d *EntityDefinition) { d.Validators["owner"] = Email() }, `unknown field "owner"`},
		{"unique key unknown", func(d *EntityDefinition) { d.Info.UniqueKey = []string{"id"} }, `unknown field "id"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := base()
			tt.mutate(&def)
			err := def.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
