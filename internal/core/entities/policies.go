package entities

import (
	"regexp"

	"github.com/JonMunkholm/csvimport/internal/core"
)

func init() {
	registerPolicies()
}

var versionPattern = regexp.MustCompile(`^v?\d+(\.\d+){0,2}$`)

func registerPolicies() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:       "policies",
			Group:     "Governance",
			Label:     "Policies",
			UniqueKey: []string{"policy_name", "version"},
		},
		Schema: core.Schema{
			{CanonicalName: "Policy Name", FieldKey: "policy_name", Required: true, Aliases: []string{"Name", "Policy", "Title"}},
			{CanonicalName: "Version", FieldKey: "version", Required: true, Aliases: []string{"Rev", "Revision"}},
			{CanonicalName: "Owner Email", FieldKey: "owner_email", Required: true, Aliases: []string{"Owner", "Approver Email"}},
			{CanonicalName: "Effective Date", FieldKey: "effective_date", Required: true, Aliases: []string{"Effective", "Published"}},
			{CanonicalName: "Review Cycle", FieldKey: "review_cycle", Aliases: []string{"Review Frequency"}},
			{CanonicalName: "Approved", FieldKey: "approved"},
		},
		Validators: core.Validators{
			"version":        core.Pattern(versionPattern, "must look like 1, 1.2 or v2.0.1"),
			"owner_email":    core.Email(),
			"effective_date": core.Date(),
			"review_cycle":   core.Enum("Quarterly", "Semi-annually", "Annually", "Biennially"),
			"approved":       core.Bool(),
		},
	})
}
