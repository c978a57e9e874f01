package llm

import "github.com/joseph-ayodele/claims-tracker/internal/schema"

var looseScalar = map[string]any{"type": []string{"string", "number", "null"}}

// claimShape is a soft check on provider output. Mismatches are logged, not rejected.
var claimShape = schema.Lazy("llm_claim", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"Patient_ID":     looseScalar,
		"Provider_ID":    looseScalar,
		"Hospital_ID":    looseScalar,
		"Claim_Amount":   looseScalar,
		"Diagnosis_Code": looseScalar,
		"Procedure_Code": looseScalar,
		"Admission_Date": looseScalar,
		"Discharge_Date": looseScalar,
		"Length_of_Stay": looseScalar,
		"Admission_Type": looseScalar,
		"Deductible":     looseScalar,
		"CoPay":          looseScalar,
		"Insurance_Plan": looseScalar,
	},
})
