package domain

import "time"

// SubmissionRecord is a validated, persisted form submission raised by the form collaborator
type SubmissionRecord struct {
	ID          string           `json:"id"`
	FormID      string           `json:"form_id"`
	Values      map[string]Value `json:"values"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

// Value returns the submitted value for a field, or a null value
func (s *SubmissionRecord) Value(fieldID string) Value {
	if s == nil || s.Values == nil {
		return NullValue()
	}
	v, ok := s.Values[fieldID]
	if !ok {
		return NullValue()
	}
	return v
}
