package aqi

import "math"

// HealthProfile holds the comorbidities that raise a user's personal risk
type HealthProfile struct {
	HasAsthma       bool `json:"has_asthma" db:"has_asthma"`
	HasHeartDisease bool `json:"has_heart_disease" db:"has_heart_disease"`
	IsSmoker        bool `json:"is_smoker" db:"is_smoker"`
	HasDiabetes     bool `json:"has_diabetes" db:"has_diabetes"`
	HasLungDisease  bool `json:"has_lung_disease" db:"has_lung_disease"`
}

// Multiplicative comorbidity factors applied to the base weight of 1.0
const (
	BaseWeight         = 1.0
	AsthmaFactor       = 1.5
	HeartDiseaseFactor = 1.3
	SmokerFactor       = 1.2
	DiabetesFactor     = 1.3
	LungDiseaseFactor  = 1.4
)

// Weight returns the personal risk multiplier for a profile.
// A nil profile is neutral.
func Weight(p *HealthProfile) float64 {
	w := BaseWeight
	if p == nil {
		return w
	}
	if p.HasAsthma {
		w *= AsthmaFactor
	}
	if p.HasHeartDisease {
		w *= HeartDiseaseFactor
	}
	if p.IsSmoker {
		w *= SmokerFactor
	}
	if p.HasDiabetes {
		w *= DiabetesFactor
	}
	if p.HasLungDisease {
		w *= LungDiseaseFactor
	}
	return w
}

// Score is the personalized risk score: severity index times weight,
// rounded half to even. Unknown scores as Good (0).
func Score(c Category, weight float64) int {
	base := c.Index()
	if base < 0 {
		base = 0
	}
	return int(math.RoundToEven(float64(base) * weight))
}
