package entities

import (
	"regexp"

	"github.com/JonMunkholm/csvimport/internal/core"
)

func init() {
	registerVendors()
}

var websitePattern = regexp.MustCompile(`^(https?://)?[A-Za-z0-9.-]+\.[A-Za-z]{2,}(/\S*)?$`)

func registerVendors() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:       "vendors",
			Group:     "Third Party",
			Label:     "Vendors",
			UniqueKey: []string{"vendor_name"},
		},
		Schema: core.Schema{
			{CanonicalName: "Vendor Name", FieldKey: "vendor_name", Required: true, Aliases: []string{"Name", "Supplier", "Company"}},
			{CanonicalName: "Website", FieldKey: "website", Aliases: []string{"URL", "Domain"}},
			{CanonicalName: "Contact Email", FieldKey: "contact_email", Aliases: []string{"Email", "Contact"}},
			{CanonicalName: "Risk Tier", FieldKey: "risk_tier", Aliases: []string{"Tier", "Criticality"}},
			{CanonicalName: "Contract End", FieldKey: "contract_end", Aliases: []string{"Contract End Date", "Renewal Date"}},
			{CanonicalName: "Annual Spend", FieldKey: "annual_spend", Aliases: []string{"Spend", "ACV"}},
			{CanonicalName: "State", FieldKey: "state", Aliases: []string{"Region"}},
			{CanonicalName: "Processes PII", FieldKey: "processes_pii", Aliases: []string{"PII"}},
		},
		Validators: core.Validators{
			"vendor_name":   core.MaxLength(120),
			"website":       core.Pattern(websitePattern, "must be a domain or http(s) URL"),
			"contact_email": core.Email(),
			"risk_tier":     core.Enum("Low", "Medium", "High", "Critical"),
			"contract_end":  core.Date(),
			"annual_spend":  core.Numeric(),
			"state":         UsState(),
			"processes_pii": core.Bool(),
		},
	})
}
