package entities

import (
	"regexp"

	"github.com/JonMunkholm/csvimport/internal/core"
)

func init() {
	registerControls()
}

var controlIDPattern = regexp.MustCompile(`^[A-Za-z]{2,6}-?\d{1,4}(\.\d{1,3})?$`)

func registerControls() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:       "controls",
			Group:     "Governance",
			Label:     "Controls",
			UniqueKey: []string{"control_id"},
		},
		Schema: core.Schema{
			{CanonicalName: "Control ID", FieldKey: "control_id", Required: true, Aliases: []string{"ID", "Control Ref", "Reference"}},
			{CanonicalName: "Title", FieldKey: "title", Required: true, Aliases: []string{"Name", "Control Name"}},
			{CanonicalName: "Description", FieldKey: "description", Aliases: []string{"Details"}},
			{CanonicalName: "Owner Email", FieldKey: "owner_email", Aliases: []string{"Owner", "Owner E-mail"}},
			{CanonicalName: "Framework", FieldKey: "framework"},
			{CanonicalName: "Frequency", FieldKey: "frequency", Aliases: []string{"Test Frequency"}},
			{CanonicalName: "Status", FieldKey: "status"},
			{CanonicalName: "Last Tested", FieldKey: "last_tested", Aliases: []string{"Last Test Date", "Tested On"}},
		},
		Validators: core.Validators{
			"control_id":  core.Pattern(controlIDPattern, "must look like AC-1 or CC6.1"),
			"title":       core.MaxLength(200),
			"owner_email": core.Email(),
			"framework":   core.Enum("SOC 2", "ISO 27001", "NIST CSF", "PCI DSS", "HIPAA"),
			"frequency":   core.Enum("Continuous", "Daily", "Weekly", "Monthly", "Quarterly", "Annually"),
			"status":      core.Enum("Draft", "Active", "Retired"),
			"last_tested": core.Date(),
		},
	})
}
