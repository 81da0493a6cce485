package entities

import (
	"regexp"

	"github.com/JonMunkholm/csvimport/internal/core"
)

func init() {
	registerRisks()
}

var scorePattern = regexp.MustCompile(`^[1-5]$`)

func registerRisks() {
	score := core.Pattern(scorePattern, "must be a whole number from 1 to 5")

	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:       "risks",
			Group:     "Governance",
			Label:     "Risk Register",
			UniqueKey: []string{"risk_id"},
		},
		Schema: core.Schema{
			{CanonicalName: "Risk ID", FieldKey: "risk_id", Required: true, Aliases: []string{"ID", "Reference"}},
			{CanonicalName: "Title", FieldKey: "title", Required: true, Aliases: []string{"Risk", "Name"}},
			{CanonicalName: "Category", FieldKey: "category"},
			{CanonicalName: "Likelihood", FieldKey: "likelihood", Required: true, Aliases: []string{"Probability"}},
			{CanonicalName: "Impact", FieldKey: "impact", Required: true, Aliases: []string{"Severity"}},
			{CanonicalName: "Owner Email", FieldKey: "owner_email", Aliases: []string{"Owner"}},
			{CanonicalName: "Treatment", FieldKey: "treatment", Aliases: []string{"Response"}},
			{CanonicalName: "Review Date", FieldKey: "review_date", Aliases: []string{"Next Review"}},
		},
		Validators: core.Validators{
			"category":    core.Enum("Operational", "Security", "Compliance", "Financial", "Strategic", "Vendor"),
			"likelihood":  score,
			"impact":      score,
			"owner_email": core.Email(),
			"treatment":   core.Enum("Accept", "Mitigate", "Transfer", "Avoid"),
			"review_date": core.Date(),
		},
	})
}
