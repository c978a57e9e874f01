package scoring

import "github.com/joseph-ayodele/claims-tracker/internal/schema"

const (
	LabelFraud = "TRUE"
	LabelClean = "FALSE"
)

var verdictSchema = schema.Lazy("scoring_verdict", map[string]any{
	"type":     "object",
	"required": []string{"prediction", "probability"},
	"properties": map[string]any{
		"prediction":  map[string]any{"type": "string", "enum": []string{LabelFraud, LabelClean}},
		"probability": map[string]any{"type": []string{"number", "string"}},
	},
})

func bounded(kind string, lo, hi float64) map[string]any {
	return map[string]any{"type": kind, "minimum": lo, "maximum": hi}
}

// instanceSchema mirrors the resolver's operational ranges.
var instanceSchema = schema.Lazy("scoring_instance", map[string]any{
	"type": "object",
	"required": []string{
		"Claim_Amount", "Patient_Age", "Number_of_Procedures", "Length_of_Stay_Days",
		"Deductible_Amount", "CoPay_Amount", "Provider_Patient_Distance_Miles", "Claim_Submitted_Late",
	},
	"properties": map[string]any{
		"Claim_Amount":                    map[string]any{"type": "number"},
		"Patient_Age":                     bounded("integer", 18, 100),
		"Number_of_Procedures":            bounded("integer", 1, 15),
		"Length_of_Stay_Days":             bounded("integer", 1, 60),
		"Deductible_Amount":               bounded("number", 0, 20000),
		"CoPay_Amount":                    bounded("number", 0, 10000),
		"Provider_Patient_Distance_Miles": bounded("number", 0, 500),
		"Claim_Submitted_Late":            map[string]any{"enum": []int{0, 1}},
	},
})
