package claims

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// FraudModelInstance is the fixed feature vector consumed by the scorer.
type FraudModelInstance struct {
	ClaimAmount                  float64 `json:"Claim_Amount"`
	PatientAge                   int     `json:"Patient_Age"`
	NumberOfProcedures           int     `json:"Number_of_Procedures"`
	LengthOfStayDays             int     `json:"Length_of_Stay_Days"`
	DeductibleAmount             float64 `json:"Deductible_Amount"`
	CoPayAmount                  float64 `json:"CoPay_Amount"`
	ProviderPatientDistanceMiles float64 `json:"Provider_Patient_Distance_Miles"`
	ClaimSubmittedLate           int     `json:"Claim_Submitted_Late"`
}

// Instances is the scorer payload wrapper. It always holds exactly one instance.
type Instances struct {
	Instances []FraudModelInstance `json:"instances"`
}

var priors = FraudModelInstance{
	ClaimAmount:                  45000,
	PatientAge:                   45,
	NumberOfProcedures:           2,
	LengthOfStayDays:             5,
	DeductibleAmount:             500,
	CoPayAmount:                  100,
	ProviderPatientDistanceMiles: 12.5,
	ClaimSubmittedLate:           0,
}

// Priors returns the default feature vector.
func Priors() FraudModelInstance { return priors }

var reProcedureSep = regexp.MustCompile(`[;,|/]`)

// mapped holds the directly resolved features; nil means unresolved.
type mapped struct {
	claimAmount *float64
	age         *int
	procedures  *int
	stayDays    *int
	deductible  *float64
	coPay       *float64
	distance    *float64
	late        *int
}

// BuildInstances wraps Resolve in the scorer payload shape.
func BuildInstances(clean CleanClaim, raw map[string]any) Instances {
	return Instances{Instances: []FraudModelInstance{Resolve(clean, raw)}}
}

// Resolve produces a complete, bounded feature vector. Values found in raw win, then the clean claim,
// then fallbacks derived from the claim amount.
func Resolve(clean CleanClaim, raw map[string]any) FraudModelInstance {
	if raw == nil {
		raw = map[string]any{}
	}
	m := directMapping(clean, raw)

	claimAmount := priors.ClaimAmount
	if m.claimAmount != nil {
		claimAmount = *m.claimAmount
	}

	out := FraudModelInstance{
		ClaimAmount:                  claimAmount,
		PatientAge:                   intOr(m.age, func() float64 { return clamp(roundHalfUp(30+claimAmount/100000*25), 18, 90) }),
		NumberOfProcedures:           intOr(m.procedures, func() float64 { return clamp(roundHalfUp(claimAmount/25000), 1, 8) }),
		LengthOfStayDays:             intOr(m.stayDays, func() float64 { return clamp(roundHalfUp(claimAmount/15000), 1, 30) }),
		DeductibleAmount:             floatOr(m.deductible, func() float64 { return clamp(roundHalfUp(claimAmount*0.01), 100, 5000) }),
		CoPayAmount:                  floatOr(m.coPay, func() float64 { return clamp(roundHalfUp(claimAmount*0.002), 20, 1000) }),
		ProviderPatientDistanceMiles: floatOr(m.distance, func() float64 { return clamp(roundTo(5+claimAmount/100000*20, 1), 1, 100) }),
		ClaimSubmittedLate:           lateFlag(m.late, clean.AdmissionType, claimAmount),
	}
	return bound(out)
}

func directMapping(clean CleanClaim, raw map[string]any) mapped {
	var m mapped

	if v := raw[KeyClaimAmount]; v != nil {
		m.claimAmount = ToNumberOrNull(v)
	} else {
		m.claimAmount = clean.ClaimAmount
	}
	m.age = ToIntOrNull(raw[KeyPatientAge])

	m.procedures = ToIntOrNull(raw[KeyProcedures])
	if m.procedures == nil {
		m.procedures = estimateProcedures(raw, clean)
	}

	m.stayDays = ToIntOrNull(raw[KeyStayDaysAlias])
	if m.stayDays == nil {
		m.stayDays = deriveStay(clean)
	}

	if v := raw[KeyDeductibleAlias]; v != nil {
		m.deductible = ToNumberOrNull(v)
	} else {
		m.deductible = clean.Deductible
	}
	if v := raw[KeyCoPayAlias]; v != nil {
		m.coPay = ToNumberOrNull(v)
	} else {
		m.coPay = clean.CoPay
	}

	m.distance = ToNumberOrNull(raw[KeyDistance])
	m.late = ToIntOrNull(raw[KeyLateFlag])
	return m
}

// estimateProcedures counts non-empty segments of the procedure code list.
func estimateProcedures(raw map[string]any, clean CleanClaim) *int {
	codes := ToStringOrNull(raw[KeyProcedureCode])
	if codes == nil {
		codes = clean.ProcedureCode
	}
	if codes == nil {
		return nil
	}
	n := 0
	for _, seg := range reProcedureSep.Split(*codes, -1) {
		if strings.TrimSpace(seg) != "" {
			n++
		}
	}
	return &n
}

// deriveStay prefers a positive stay length, then the ceiling of the date difference when positive.
func deriveStay(clean CleanClaim) *int {
	if clean.LengthOfStay != nil && *clean.LengthOfStay > 0 {
		v := *clean.LengthOfStay
		return &v
	}
	if clean.AdmissionDate == nil || clean.DischargeDate == nil {
		return nil
	}
	admit, err1 := time.Parse(time.DateOnly, *clean.AdmissionDate)
	discharge, err2 := time.Parse(time.DateOnly, *clean.DischargeDate)
	if err1 != nil || err2 != nil {
		return nil
	}
	days := int(math.Ceil(discharge.Sub(admit).Hours() / 24))
	if days <= 0 {
		return nil
	}
	return &days
}

func lateFlag(v *int, admissionType *string, claimAmount float64) int {
	if v != nil {
		if *v >= 1 {
			return 1
		}
		return 0
	}
	if admissionType != nil && strings.Contains(strings.ToLower(*admissionType), "emergency") {
		return 0
	}
	if claimAmount > 60000 {
		return 1
	}
	return 0
}

// bound applies the operational ranges regardless of where a value came from.
func bound(f FraudModelInstance) FraudModelInstance {
	f.PatientAge = int(clamp(float64(f.PatientAge), 18, 100))
	f.NumberOfProcedures = int(clamp(float64(f.NumberOfProcedures), 1, 15))
	f.LengthOfStayDays = int(clamp(float64(f.LengthOfStayDays), 1, 60))
	f.DeductibleAmount = clamp(roundTo(f.DeductibleAmount, 2), 0, 20000)
	f.CoPayAmount = clamp(roundTo(f.CoPayAmount, 2), 0, 10000)
	f.ProviderPatientDistanceMiles = clamp(roundTo(f.ProviderPatientDistanceMiles, 2), 0, 500)
	if f.ClaimSubmittedLate >= 1 {
		f.ClaimSubmittedLate = 1
	} else {
		f.ClaimSubmittedLate = 0
	}
	f.ClaimAmount = roundTo(f.ClaimAmount, 2)
	return f
}

func intOr(v *int, fallback func() float64) int {
	if v != nil {
		return *v
	}
	return int(fallback())
}

func floatOr(v *float64, fallback func() float64) float64 {
	if v != nil {
		return *v
	}
	return fallback()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// roundHalfUp rounds half up, toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	// past 1e15 a float64 has no fractional digits left to round
	if math.Abs(v) >= 1e15 || math.IsInf(v*p, 0) {
		return v
	}
	return math.Round(v*p) / p
}
