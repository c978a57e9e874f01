package claims

// CleanClaim is the normalized claim record. Every field is nullable.
type CleanClaim struct {
	PatientID               *string        `json:"Patient_ID"`
	ProviderID              *string        `json:"Provider_ID"`
	HospitalID              *string        `json:"Hospital_ID"`
	ClaimAmount             *float64       `json:"Claim_Amount"`
	DiagnosisCode           *string        `json:"Diagnosis_Code"`
	ProcedureCode           *string        `json:"Procedure_Code"`
	AdmissionDate           *string        `json:"Admission_Date"`
	DischargeDate           *string        `json:"Discharge_Date"`
	LengthOfStay            *int           `json:"Length_of_Stay"`
	AdmissionType           *string        `json:"Admission_Type"`
	Deductible              *float64       `json:"Deductible"`
	CoPay                   *float64       `json:"CoPay"`
	InsurancePlan           *string        `json:"Insurance_Plan"`
	OtherFraudRelatedFields map[string]any `json:"Other_Fraud_Related_Fields"`
}

// Source keys as produced by the model.
const (
	KeyPatientID       = "Patient_ID"
	KeyProviderID      = "Provider_ID"
	KeyHospitalID      = "Hospital_ID"
	KeyClaimAmount     = "Claim_Amount"
	KeyDiagnosisCode   = "Diagnosis_Code"
	KeyProcedureCode   = "Procedure_Code"
	KeyAdmissionDate   = "Admission_Date"
	KeyDischargeDate   = "Discharge_Date"
	KeyLengthOfStay    = "Length_of_Stay"
	KeyStayDaysAlias   = "Length_of_Stay_Days"
	KeyAdmissionType   = "Admission_Type"
	KeyDeductible      = "Deductible"
	KeyDeductibleAlias = "Deductible_Amount"
	KeyCoPay           = "CoPay"
	KeyCoPayAlias      = "CoPay_Amount"
	KeyInsurancePlan   = "Insurance_Plan"
	KeyPatientAge      = "Patient_Age"
	KeyProcedures      = "Number_of_Procedures"
	KeyDistance        = "Provider_Patient_Distance_Miles"
	KeyLateFlag        = "Claim_Submitted_Late"
	KeyOtherFields     = "Other_Fraud_Related_Fields"
)

// knownKeys covers canonical names, aliases and model-only features. Anything else is bucketed.
var knownKeys = map[string]struct{}{
	KeyPatientID: {}, KeyProviderID: {}, KeyHospitalID: {}, KeyClaimAmount: {},
	KeyDiagnosisCode: {}, KeyProcedureCode: {}, KeyAdmissionDate: {}, KeyDischargeDate: {},
	KeyLengthOfStay: {}, KeyStayDaysAlias: {}, KeyAdmissionType: {},
	KeyDeductible: {}, KeyDeductibleAlias: {}, KeyCoPay: {}, KeyCoPayAlias: {},
	KeyInsurancePlan: {}, KeyPatientAge: {}, KeyProcedures: {}, KeyDistance: {}, KeyLateFlag: {},
	KeyOtherFields: {},
}

// Normalize coerces raw model output into a CleanClaim. It never fails; bad values become nil.
func Normalize(raw map[string]any) CleanClaim {
	c := CleanClaim{
		PatientID:     ToStringOrNull(raw[KeyPatientID]),
		ProviderID:    ToStringOrNull(raw[KeyProviderID]),
		HospitalID:    ToStringOrNull(raw[KeyHospitalID]),
		ClaimAmount:   ToNumberOrNull(raw[KeyClaimAmount]),
		DiagnosisCode: ToStringOrNull(raw[KeyDiagnosisCode]),
		ProcedureCode: ToStringOrNull(raw[KeyProcedureCode]),
		AdmissionDate: ToISODateOrNull(raw[KeyAdmissionDate]),
		DischargeDate: ToISODateOrNull(raw[KeyDischargeDate]),
		LengthOfStay:  ToIntOrNull(firstPresent(raw, KeyStayDaysAlias, KeyLengthOfStay)),
		AdmissionType: ToStringOrNull(raw[KeyAdmissionType]),
		Deductible:    ToNumberOrNull(firstPresent(raw, KeyDeductibleAlias, KeyDeductible)),
		CoPay:         ToNumberOrNull(firstPresent(raw, KeyCoPayAlias, KeyCoPay)),
		InsurancePlan: ToStringOrNull(raw[KeyInsurancePlan]),
	}

	other := map[string]any{}
	if prior, ok := raw[KeyOtherFields].(map[string]any); ok {
		for k, v := range prior {
			other[k] = v
		}
	}
	for k, v := range raw {
		if _, known := knownKeys[k]; !known {
			other[k] = v
		}
	}
	if len(other) > 0 {
		c.OtherFraudRelatedFields = other
	}
	return c
}

// firstPresent returns the first non-nil value among keys.
func firstPresent(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
