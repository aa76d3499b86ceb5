package domain

import (
	"strings"
	"time"
)

// MappingEntry assigns one local form field to one remote property.
// FieldLabel is a snapshot of the field label at save time, used to
// re-associate the entry when the form builder regenerates field ids.
type MappingEntry struct {
	FieldID    string `json:"field_id" bson:"field_id"`
	Property   string `json:"property" bson:"property"`
	FieldLabel string `json:"field_label,omitempty" bson:"field_label,omitempty"`
}

// FieldMapping maps FormField.ID to RemoteProperty.Name for one (form, integration, object type).
// Entries keep their save order.
type FieldMapping struct {
	FormID        string         `json:"form_id"`
	IntegrationID string         `json:"integration_id"`
	ObjectType    string         `json:"object_type"`
	Entries       []MappingEntry `json:"entries"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty"`
}

// NewFieldMapping creates an empty mapping for the given scope
func NewFieldMapping(formID, integrationID, objectType string) *FieldMapping {
	return &FieldMapping{
		FormID:        formID,
		IntegrationID: integrationID,
		ObjectType:    objectType,
		Entries:       []MappingEntry{},
	}
}

// Len returns the number of assigned fields
func (m *FieldMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// Get returns the property assigned to a field
func (m *FieldMapping) Get(fieldID string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, e := range m.Entries {
		if e.FieldID == fieldID {
			return e.Property, true
		}
	}
	return "", false
}

// Set assigns property to fieldID, replacing any previous assignment in place
func (m *FieldMapping) Set(fieldID, property string) {
	for i := range m.Entries {
		if m.Entries[i].FieldID == fieldID {
			m.Entries[i].Property = property
			return
		}
	}
	m.Entries = append(m.Entries, MappingEntry{FieldID: fieldID, Property: property})
}

// Unset removes the assignment for fieldID
func (m *FieldMapping) Unset(fieldID string) {
	for i := range m.Entries {
		if m.Entries[i].FieldID == fieldID {
			m.Entries = append(m.Entries[:i], m.Entries[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy
func (m *FieldMapping) Clone() *FieldMapping {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Entries = append([]MappingEntry{}, m.Entries...)
	return &clone
}

// Targets returns the assigned property names in entry order
func (m *FieldMapping) Targets() []string {
	targets := make([]string, 0, m.Len())
	for _, e := range m.Entries {
		targets = append(targets, e.Property)
	}
	return targets
}

// DuplicateTargets returns properties assigned to more than one field.
// This is a UI warning, not a save error.
func (m *FieldMapping) DuplicateTargets() []string {
	seen := make(map[string]int)
	var dups []string
	for _, e := range m.Entries {
		seen[e.Property]++
		if seen[e.Property] == 2 {
			dups = append(dups, e.Property)
		}
	}
	return dups
}

// Validate checks every entry against the remote schema.
// Read-only or unknown targets, blank targets and repeated field ids are all reported at once.
func (m *FieldMapping) Validate(properties []RemoteProperty) error {
	byName := make(map[string]RemoteProperty, len(properties))
	for _, p := range properties {
		byName[p.Name] = p
	}

	var violations []Violation
	seenFields := make(map[string]bool, m.Len())
	for _, e := range m.Entries {
		if strings.TrimSpace(e.FieldID) == "" {
			violations = append(violations, Violation{FieldID: e.FieldID, Property: e.Property, Reason: "field id is empty"})
			continue
		}
		if seenFields[e.FieldID] {
			violations = append(violations, Violation{FieldID: e.FieldID, Property: e.Property, Reason: "field is mapped more than once"})
			continue
		}
		seenFields[e.FieldID] = true

		if strings.TrimSpace(e.Property) == "" {
			violations = append(violations, Violation{FieldID: e.FieldID, Property: e.Property, Reason: "target property is empty"})
			continue
		}
		prop, ok := byName[e.Property]
		if !ok {
			violations = append(violations, Violation{FieldID: e.FieldID, Property: e.Property, Reason: "property does not exist in remote schema"})
			continue
		}
		if prop.ReadOnly {
			violations = append(violations, Violation{FieldID: e.FieldID, Property: e.Property, Reason: "property is read-only"})
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// FieldEdit is a single user edit from the mapping table. A nil Property clears the field.
type FieldEdit struct {
	FieldID  string  `json:"field_id"`
	Property *string `json:"property"`
}
