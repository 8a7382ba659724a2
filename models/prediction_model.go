package models

// SymptomSeverity is one selected symptom. Severity is 1 (mild) or 2 (severe).
type SymptomSeverity struct {
	Symptom  string `json:"symptom"`
	Severity int    `json:"severity"`
}

type PredictRequest struct {
	Symptoms []SymptomSeverity `json:"symptoms"`
}

type Medicine struct {
	Name        string `json:"name"`
	Composition string `json:"composition"`
	Description string `json:"description"`
}

// Prediction mirrors the prediction backend reply; every field is optional.
type Prediction struct {
	PredictedDisease        string     `json:"predicted_disease,omitempty"`
	MatchedScore            *int       `json:"matched_score,omitempty"`
	TotalSymptomsConsidered *int       `json:"total_symptoms_considered,omitempty"`
	MatchedSymptoms         []string   `json:"matched_symptoms,omitempty"`
	Precautions             []string   `json:"precautions,omitempty"`
	RiskFactors             []string   `json:"risk_factors,omitempty"`
	Medicines               []Medicine `json:"medicines,omitempty"`
	Message                 string     `json:"message,omitempty"`
}

type SymptomCatalog struct {
	Symptoms []string `json:"symptoms"`
}
