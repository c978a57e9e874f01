package llm

import "strings"

// SystemInstruction is sent as the system message to every provider.
const SystemInstruction = "You extract structured fraud-model-ready medical claim data as strict JSON."

var claimSchemaLines = []string{
	`"Patient_ID": string`,
	`"Provider_ID": string`,
	`"Hospital_ID": string`,
	`"Claim_Amount": number`,
	`"Diagnosis_Code": string`,
	`"Procedure_Code": string`,
	`"Admission_Date": string`,
	`"Discharge_Date": string`,
	`"Length_of_Stay": number`,
	`"Admission_Type": string`,
	`"Deductible": number`,
	`"CoPay": number`,
}

const directiveExample = `{
"Patient_ID": "P12345",
"Provider_ID": "PR6789",
"Hospital_ID": "H4321",
"Claim_Amount": 45000,
"Diagnosis_Code": "A09",
"Procedure_Code": "80053",
"Admission_Date": "2026-01-10",
"Discharge_Date": "2026-01-15",
"Length_of_Stay": 5,
"Admission_Type": "Emergency",
"Deductible": 500,
"CoPay": 100
}`

// BuildDirective composes the completion directive with the document text embedded once at the end.
func BuildDirective(text string) string {
	sections := [][]string{
		{
			"You are a senior healthcare data engineer specializing in medical claim normalization for fraud detection pipelines.",
			"Extract, clean, normalize and complete structured claim data from the unstructured claim report below.",
			"Return ONLY valid JSON matching this schema:",
			"{\n" + strings.Join(claimSchemaLines, ",\n") + "\n}",
		},
		{
			"DATA EXTRACTION:",
			"* Extract values accurately from the text.",
			"* Use the schema field names exactly.",
		},
		{
			"DATA CLEANING:",
			"* Remove currency symbols and thousands separators from numbers.",
			"* Emit numeric fields as JSON numbers, not strings.",
			"* Convert dates to YYYY-MM-DD.",
			"* Trim whitespace.",
		},
		{
			"DATA COMPLETION (REQUIRED):",
			"If a field is missing or unclear, infer the most realistic value from document context, medical claim standards and typical hospital claim patterns:",
			"* Length_of_Stay = Discharge_Date - Admission_Date",
			"* Deductible is typically 0-2000 depending on Claim_Amount",
			"* CoPay is typically 5-20% of Claim_Amount",
			"* Admission_Type is Emergency, Urgent or Elective based on diagnosis and procedure",
			"* Provider_ID and Hospital_ID may be inferred from the hospital name or code",
			"* Procedure_Code may be inferred from the diagnosis",
			"Leave a field empty only when inference is impossible.",
		},
		{
			"CONSISTENCY:",
			"* Length_of_Stay must equal the difference between Admission_Date and Discharge_Date.",
			"* CoPay and Deductible must not exceed Claim_Amount.",
		},
		{
			"OUTPUT:",
			"* JSON only. No explanations, markdown, comments or extra text.",
			"Example:",
			directiveExample,
		},
		{
			"INPUT TEXT:",
			text,
		},
	}
	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		blocks = append(blocks, strings.Join(s, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// TruncateRunes caps s at max characters. A non-positive max leaves s untouched.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// DedupeModels drops blanks and repeats while keeping order.
func DedupeModels(models ...string) []string {
	seen := make(map[string]struct{}, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
