package application

import (
	"testing"

	"archie-core-forms-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactProperties() []domain.RemoteProperty {
	return []domain.RemoteProperty{
		{Name: "email", Label: "Email"},
		{Name: "firstname", Label: "First Name"},
		{Name: "lastname", Label: "Last Name"},
		{Name: "phone", Label: "Phone Number"},
		{Name: "message", Label: "Message"},
		{Name: "hs_object_id", Label: "Record ID", ReadOnly: true},
	}
}

func savedMapping(entries ...domain.MappingEntry) *domain.FieldMapping {
	m := domain.NewFieldMapping("form-1", "hubspot", "contacts")
	m.Entries = entries
	return m
}

func TestReconciler_Reconcile_IDChurnIsPositional(t *testing.T) {
	r := NewReconciler()
	saved := savedMapping(
		domain.MappingEntry{FieldID: "f1", Property: "email"},
		domain.MappingEntry{FieldID: "f2", Property: "lastname"},
	)
	fields := []domain.FormField{
		{ID: "f9", Label: "Your mail", Type: domain.FieldText},
		{ID: "f10", Label: "Surname", Type: domain.FieldText},
	}

	out := r.Reconcile(fields, contactProperties(), saved)

	require.Equal(t, 2, out.Len())
	prop, ok := out.Get("f9")
	assert.True(t, ok)
	assert.Equal(t, "email", prop)
	prop, ok = out.Get("f10")
	assert.True(t, ok)
	assert.Equal(t, "lastname", prop)
	assert.Equal(t, "form-1", out.FormID)

	// input is untouched
	assert.Equal(t, "f1", saved.Entries[0].FieldID)
	assert.Equal(t, "f2", saved.Entries[1].FieldID)
}

func TestReconciler_Reconcile_KeepsStableIDs(t *testing.T) {
	r := NewReconciler()
	saved := savedMapping(
		domain.MappingEntry{FieldID: "name", Property: "firstname"},
		domain.MappingEntry{FieldID: "mail", Property: "email"},
	)
	fields := []domain.FormField{
		{ID: "mail", Label: "Email"},
		{ID: "name", Label: "Name"},
		{ID: "extra", Label: "Message"},
	}

	out := r.Reconcile(fields, contactProperties(), saved)

	// sorted by current field position, surplus field left unmapped
	assert.Equal(t, []domain.MappingEntry{
		{FieldID: "mail", Property: "email", FieldLabel: "Email"},
		{FieldID: "name", Property: "firstname", FieldLabel: "Name"},
	}, out.Entries)
}

func TestReconciler_Reconcile_LabelSnapshotBeatsPosition(t *testing.T) {
	r := NewReconciler()
	saved := savedMapping(
		domain.MappingEntry{FieldID: "old-1", Property: "email", FieldLabel: "Email"},
		domain.MappingEntry{FieldID: "old-2", Property: "message", FieldLabel: "Message"},
	)
	// fields were reordered and regenerated in one edit
	fields := []domain.FormField{
		{ID: "new-a", Label: "Message"},
		{ID: "new-b", Label: "Email"},
	}

	out := r.Reconcile(fields, contactProperties(), saved)

	prop, _ := out.Get("new-a")
	assert.Equal(t, "message", prop)
	prop, _ = out.Get("new-b")
	assert.Equal(t, "email", prop)
}

func TestReconciler_Reconcile_MoreSavedThanFieldsDropsUnmatched(t *testing.T) {
	r := NewReconciler()
	saved := savedMapping(
		domain.MappingEntry{FieldID: "f1", Property: "email"},
		domain.MappingEntry{FieldID: "f2", Property: "firstname"},
		domain.MappingEntry{FieldID: "f3", Property: "lastname"},
	)
	fields := []domain.FormField{{ID: "f7", Label: "A"}, {ID: "f8", Label: "B"}}

	out := r.Reconcile(fields, contactProperties(), saved)

	assert.Equal(t, 0, out.Len())
}

func TestReconciler_Reconcile_TakenSlotMovesToFreeField(t *testing.T) {
	r := NewReconciler()
	saved := savedMapping(
		domain.MappingEntry{FieldID: "f1", Property: "email"},
		domain.MappingEntry{FieldID: "f2", Property: "lastname"},
	)
	// f2 was regenerated as f9 and moved above f1
	fields := []domain.FormField{
		{ID: "f9", Label: "Surname"},
		{ID: "f1", Label: "Email"},
	}

	out := r.Reconcile(fields, contactProperties(), saved)

	assert.Equal(t, []domain.MappingEntry{
		{FieldID: "f9", Property: "lastname", FieldLabel: "Surname"},
		{FieldID: "f1", Property: "email", FieldLabel: "Email"},
	}, out.Entries)
}

func TestReconciler_Reconcile_DropsStaleTargets(t *testing.T) {
	r := NewReconciler()
	saved := savedMapping(
		domain.MappingEntry{FieldID: "f1", Property: "email"},
		domain.MappingEntry{FieldID: "f2", Property: "deleted_property"},
		domain.MappingEntry{FieldID: "f3", Property: "hs_object_id"},
	)
	fields := []domain.FormField{{ID: "f1"}, {ID: "f2"}, {ID: "f3"}}

	out := r.Reconcile(fields, contactProperties(), saved)

	assert.Equal(t, []string{"email"}, out.Targets())
}

func TestReconciler_Reconcile_EmptySchemaKeepsTargets(t *testing.T) {
	r := NewReconciler()
	saved := savedMapping(domain.MappingEntry{FieldID: "f1", Property: "anything"})

	out := r.Reconcile([]domain.FormField{{ID: "f1"}}, nil, saved)

	assert.Equal(t, []string{"anything"}, out.Targets())
}

func TestReconciler_Reconcile_EmptySavedAutoMaps(t *testing.T) {
	r := NewReconciler()
	fields := []domain.FormField{
		{ID: "f1", Label: "Email", Type: domain.FieldEmail},
		{ID: "f2", Label: "First Name"},
	}

	out := r.Reconcile(fields, contactProperties(), domain.NewFieldMapping("form-2", "hubspot", "contacts"))

	assert.Equal(t, "form-2", out.FormID)
	assert.Equal(t, "contacts", out.ObjectType)
	assert.Equal(t, []string{"email", "firstname"}, out.Targets())
}

func TestReconciler_AutoMap_EmailPriority(t *testing.T) {
	r := NewReconciler()
	fields := []domain.FormField{{ID: "f1", Label: "Email Address", Type: domain.FieldText}}
	props := []domain.RemoteProperty{
		{Name: "email_backup", Label: "Email Address Backup"},
		{Name: "email", Label: "Primary"},
	}

	out := r.AutoMap(fields, props)

	prop, ok := out.Get("f1")
	require.True(t, ok)
	assert.Equal(t, "email", prop)
}

func TestReconciler_AutoMap_EmailTypedFieldBeatsOptIn(t *testing.T) {
	r := NewReconciler()
	fields := []domain.FormField{
		{ID: "f_optin", Label: "Send me the email newsletter", Type: domain.FieldCheckbox},
		{ID: "f_addr", Label: "Your address", Type: domain.FieldEmail},
	}
	props := []domain.RemoteProperty{
		{Name: "email", Label: "Email"},
		{Name: "address", Label: "Address"},
	}

	out := r.AutoMap(fields, props)

	prop, ok := out.Get("f_addr")
	require.True(t, ok)
	assert.Equal(t, "email", prop)
	prop, _ = out.Get("f_optin")
	assert.NotEqual(t, "email", prop)
}

func TestReconciler_AutoMap_OptInLabelNeverTakesEmail(t *testing.T) {
	r := NewReconciler()
	fields := []domain.FormField{
		{ID: "f_optin", Label: "Email me updates", Type: domain.FieldCheckbox},
		{ID: "f_mail", Label: "Work email", Type: domain.FieldText},
	}

	out := r.AutoMap(fields, contactProperties())

	prop, ok := out.Get("f_mail")
	require.True(t, ok)
	assert.Equal(t, "email", prop)
	prop, _ = out.Get("f_optin")
	assert.NotEqual(t, "email", prop)
}

func TestReconciler_AutoMap(t *testing.T) {
	tests := []struct {
		name   string
		fields []domain.FormField
		props  []domain.RemoteProperty
		want   map[string]string
	}{
		{
			name:   "exact label match",
			fields: []domain.FormField{{ID: "a", Label: "Phone Number"}},
			props:  contactProperties(),
			want:   map[string]string{"a": "phone"},
		},
		{
			name:   "separator insensitive name match",
			fields: []domain.FormField{{ID: "first_name", Label: ""}},
			props:  contactProperties(),
			want:   map[string]string{"first_name": "firstname"},
		},
		{
			name:   "below threshold stays unmapped",
			fields: []domain.FormField{{ID: "x", Label: "Favourite colour"}},
			props:  contactProperties(),
			want:   map[string]string{},
		},
		{
			name:   "read-only never proposed",
			fields: []domain.FormField{{ID: "rid", Label: "Record ID"}},
			props:  contactProperties(),
			want:   map[string]string{},
		},
		{
			name: "property used at most once",
			fields: []domain.FormField{
				{ID: "m1", Label: "Message"},
				{ID: "m2", Label: "Message"},
			},
			props: contactProperties(),
			want:  map[string]string{"m1": "message"},
		},
		{
			name:   "ties go to first property",
			fields: []domain.FormField{{ID: "c", Label: "Company"}},
			props: []domain.RemoteProperty{
				{Name: "company_name", Label: "Company Name"},
				{Name: "company_size", Label: "Company Size"},
			},
			want: map[string]string{"c": "company_name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewReconciler().AutoMap(tt.fields, tt.props)
			got := map[string]string{}
			for _, e := range out.Entries {
				got[e.FieldID] = e.Property
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconciler_ApplyEdits(t *testing.T) {
	r := NewReconciler()
	mapping := savedMapping(
		domain.MappingEntry{FieldID: "f2", Property: "lastname"},
		domain.MappingEntry{FieldID: "f1", Property: "email"},
	)
	fields := []domain.FormField{
		{ID: "f1", Label: "Email"},
		{ID: "f2", Label: "Surname"},
		{ID: "f3", Label: "Message"},
	}
	msg := "message"
	blank := " "

	out := r.ApplyEdits(mapping, fields, []domain.FieldEdit{
		{FieldID: "f3", Property: &msg},
		{FieldID: "f2", Property: &blank},
	})

	assert.Equal(t, []domain.MappingEntry{
		{FieldID: "f1", Property: "email", FieldLabel: "Email"},
		{FieldID: "f3", Property: "message", FieldLabel: "Message"},
	}, out.Entries)
	assert.Equal(t, 2, mapping.Len(), "input mapping must not change")

	out = r.ApplyEdits(out, fields, []domain.FieldEdit{{FieldID: "f1", Property: nil}})
	assert.Equal(t, []string{"message"}, out.Targets())
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name  string
		field domain.FormField
		prop  domain.RemoteProperty
		want  int
	}{
		{"exact", domain.FormField{Label: "Email"}, domain.RemoteProperty{Name: "email"}, 100},
		{"compact", domain.FormField{Label: "Last-Name"}, domain.RemoteProperty{Name: "lastname"}, 100},
		{"contains", domain.FormField{Label: "Phone"}, domain.RemoteProperty{Name: "mobilephone"}, 60},
		{"token overlap", domain.FormField{Label: "work city"}, domain.RemoteProperty{Name: "city_of_birth"}, 10},
		{"nothing", domain.FormField{Label: "abc"}, domain.RemoteProperty{Name: "xyz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchScore(tt.field, tt.prop))
		})
	}
}
