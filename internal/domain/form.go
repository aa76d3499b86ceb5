package domain

import "strings"

// FieldType is the form builder's field type
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldPhone    FieldType = "phone"
	FieldURL      FieldType = "url"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldFile     FieldType = "file"
	FieldDate     FieldType = "date"
	FieldHidden   FieldType = "hidden"
)

// FormField is a local field descriptor owned by the form builder.
// IDs are not stable across form edits.
type FormField struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Type  FieldType `json:"type"`
}

// IsEmailLike reports whether the field's type or label marks it as an email address
func (f FormField) IsEmailLike() bool {
	if f.Type == FieldEmail {
		return true
	}
	label := strings.ToLower(f.Label)
	return strings.Contains(label, "email") || strings.Contains(label, "e-mail")
}
