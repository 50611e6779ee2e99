package models

import "strings"

// MedicalRecord holds the fields detected in a medical report.
// A nil field means the label was missing or its value was a "none" placeholder.
type MedicalRecord struct {
	Name        *string `json:"name"`
	Age         *string `json:"age"`
	History     *string `json:"history"`
	Allergies   *string `json:"allergies"`
	Medications *string `json:"medications"`
	Surgeries   *string `json:"surgeries"`
	Notes       *string `json:"notes"`

	RawText string `json:"-"` // Trimmed input the record was parsed from
}

// IsMedicalDocument reports whether any clinical field was detected.
// Notes alone do not make a document medical.
func (r *MedicalRecord) IsMedicalDocument() bool {
	if r == nil {
		return false
	}
	for _, v := range []*string{r.Name, r.Age, r.History, r.Allergies, r.Medications, r.Surgeries} {
		if present(v) {
			return true
		}
	}
	return false
}

// Field returns the value stored under a lower-case section label.
func (r *MedicalRecord) Field(label string) *string {
	if r == nil {
		return nil
	}
	switch strings.ToLower(label) {
	case "name":
		return r.Name
	case "age":
		return r.Age
	case "history":
		return r.History
	case "allergies":
		return r.Allergies
	case "medications":
		return r.Medications
	case "surgeries":
		return r.Surgeries
	case "notes":
		return r.Notes
	}
	return nil
}

// SetField stores value under a lower-case section label. Unknown labels are ignored.
func (r *MedicalRecord) SetField(label, value string) {
	v := value
	switch strings.ToLower(label) {
	case "name":
		r.Name = &v
	case "age":
		r.Age = &v
	case "history":
		r.History = &v
	case "allergies":
		r.Allergies = &v
	case "medications":
		r.Medications = &v
	case "surgeries":
		r.Surgeries = &v
	case "notes":
		r.Notes = &v
	}
}

func present(v *string) bool {
	return v != nil && *v != ""
}
