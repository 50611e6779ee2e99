package models

// StructuredData is the medical record as exposed over HTTP.
type StructuredData struct {
	Name              *string `json:"name"`
	Age               *string `json:"age"`
	History           *string `json:"history"`
	Allergies         *string `json:"allergies"`
	Medications       *string `json:"medications"`
	Surgeries         *string `json:"surgeries"`
	Notes             *string `json:"notes"`
	IsMedicalDocument bool    `json:"is_medical_document"`
}

// ExtractResponse is the JSON body returned by POST /extract.
type ExtractResponse struct {
	Filename       string          `json:"filename"`
	FileType       string          `json:"file_type"`
	Method         string          `json:"method"`
	Status         string          `json:"status,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	NumPages       *int            `json:"num_pages"`
	Text           string          `json:"text"`
	StructuredData *StructuredData `json:"structured_data"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewStructuredData converts a parsed record. A nil record yields nil.
func NewStructuredData(r *MedicalRecord) *StructuredData {
	if r == nil {
		return nil
	}
	return &StructuredData{
		Name:              r.Name,
		Age:               r.Age,
		History:           r.History,
		Allergies:         r.Allergies,
		Medications:       r.Medications,
		Surgeries:         r.Surgeries,
		Notes:             r.Notes,
		IsMedicalDocument: r.IsMedicalDocument(),
	}
}

// NewExtractResponse builds the wire response for an extraction result.
func NewExtractResponse(filename string, kind MediaKind, result *ExtractionResult) ExtractResponse {
	resp := ExtractResponse{
		Filename: filename,
		FileType: string(kind),
	}
	if result == nil {
		return resp
	}
	resp.Method = result.Method
	resp.Status = string(result.Status)
	resp.Reason = result.Reason
	resp.Warnings = result.Warnings
	resp.NumPages = result.NumPages
	resp.Text = result.Text
	resp.StructuredData = NewStructuredData(result.Record)
	return resp
}
