package application

import (
	"sort"
	"strings"
	"unicode"

	"archie-core-forms-layer/internal/domain"
)

// Auto-map score bands
const (
	scoreExact      = 100
	scoreContains   = 60
	scoreTokenMax   = 40
	defaultMinScore = 20

	minContainsLen = 3
	emailProperty  = "email"
)

// Reconciler merges saved mappings, current form fields and the current remote schema.
// All methods are pure: inputs are never mutated.
type Reconciler struct {
	minScore int
}

// NewReconciler creates a reconciler with the default auto-map threshold
func NewReconciler() *Reconciler {
	return &Reconciler{minScore: defaultMinScore}
}

// NewReconcilerWithThreshold creates a reconciler with a custom auto-map threshold
func NewReconcilerWithThreshold(minScore int) *Reconciler {
	return &Reconciler{minScore: minScore}
}

// Reconcile rebuilds an editable mapping for the current fields without losing saved assignments.
//
// Saved entries whose field ids still exist are kept. When ids have churned, saved
// entries are re-associated by label snapshot first, then positionally (nth saved
// entry to nth current field) if the saved count does not exceed the field count.
// An entry whose positional slot is already taken goes to the first free field.
// Positional re-association is a best-effort heuristic: reordering fields in the
// same edit that regenerates their ids will pair them wrongly.
// Targets missing or read-only in a non-empty schema are dropped.
// An empty saved mapping is auto-mapped.
func (r *Reconciler) Reconcile(fields []domain.FormField, properties []domain.RemoteProperty, saved *domain.FieldMapping) *domain.FieldMapping {
	if saved.Len() == 0 {
		out := r.AutoMap(fields, properties)
		if saved != nil {
			out.FormID, out.IntegrationID, out.ObjectType = saved.FormID, saved.IntegrationID, saved.ObjectType
		}
		return out
	}

	out := domain.NewFieldMapping(saved.FormID, saved.IntegrationID, saved.ObjectType)
	writable := writableProperties(properties)
	targetOK := func(name string) bool {
		if len(properties) == 0 {
			return true
		}
		_, ok := writable[name]
		return ok
	}

	fieldIndex := make(map[string]int, len(fields))
	for i, f := range fields {
		fieldIndex[f.ID] = i
	}

	// field index -> entry
	assigned := make(map[int]domain.MappingEntry, len(saved.Entries))
	pending := make([]int, 0)

	for i, e := range saved.Entries {
		if idx, ok := fieldIndex[e.FieldID]; ok {
			if _, taken := assigned[idx]; !taken {
				assigned[idx] = domain.MappingEntry{FieldID: e.FieldID, Property: e.Property, FieldLabel: fields[idx].Label}
				continue
			}
		}
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		// label snapshots are more robust than position when present
		stillPending := pending[:0]
		for _, i := range pending {
			e := saved.Entries[i]
			idx := findFieldByLabel(fields, e.FieldLabel, assigned, saved)
			if idx < 0 {
				stillPending = append(stillPending, i)
				continue
			}
			assigned[idx] = domain.MappingEntry{FieldID: fields[idx].ID, Property: e.Property, FieldLabel: fields[idx].Label}
		}
		pending = stillPending

		if len(saved.Entries) <= len(fields) {
			leftovers := make([]int, 0)
			for _, i := range pending {
				if _, taken := assigned[i]; taken {
					leftovers = append(leftovers, i)
					continue
				}
				e := saved.Entries[i]
				assigned[i] = domain.MappingEntry{FieldID: fields[i].ID, Property: e.Property, FieldLabel: fields[i].Label}
			}

			// an entry whose slot is taken moves to the next free field in form order
			free := 0
			for _, i := range leftovers {
				for free < len(fields) {
					if _, taken := assigned[free]; !taken && !savedReferences(saved, fields[free].ID) {
						break
					}
					free++
				}
				if free == len(fields) {
					break
				}
				e := saved.Entries[i]
				assigned[free] = domain.MappingEntry{FieldID: fields[free].ID, Property: e.Property, FieldLabel: fields[free].Label}
				free++
			}
		}
	}

	indexes := make([]int, 0, len(assigned))
	for idx := range assigned {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		e := assigned[idx]
		if !targetOK(e.Property) {
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	return out
}

// AutoMap proposes a mapping from label/name similarity.
// The field chosen by emailFieldIndex always takes a property literally named "email".
// Each property is proposed for at most one field; ties go to the first property in schema order.
func (r *Reconciler) AutoMap(fields []domain.FormField, properties []domain.RemoteProperty) *domain.FieldMapping {
	out := domain.NewFieldMapping("", "", "")
	used := make(map[string]bool)

	emailTarget := ""
	for _, p := range properties {
		if !p.ReadOnly && strings.EqualFold(p.Name, emailProperty) {
			emailTarget = p.Name
			break
		}
	}

	emailField := -1
	if emailTarget != "" {
		emailField = emailFieldIndex(fields)
	}
	if emailField >= 0 {
		used[emailTarget] = true
	}

	for i, f := range fields {
		if i == emailField {
			out.Entries = append(out.Entries, domain.MappingEntry{FieldID: f.ID, Property: emailTarget, FieldLabel: f.Label})
			continue
		}

		best, bestScore := "", 0
		for _, p := range properties {
			if p.ReadOnly || used[p.Name] {
				continue
			}
			if score := MatchScore(f, p); score > bestScore {
				best, bestScore = p.Name, score
			}
		}
		if best != "" && bestScore >= r.minScore {
			out.Entries = append(out.Entries, domain.MappingEntry{FieldID: f.ID, Property: best, FieldLabel: f.Label})
			used[best] = true
		}
	}
	return out
}

// emailFieldIndex picks the field that receives the email property: the first
// email-typed field, else the first field whose label mentions email. Choice
// fields are skipped in the label pass since "email me updates" is an opt-in.
func emailFieldIndex(fields []domain.FormField) int {
	for i, f := range fields {
		if f.Type == domain.FieldEmail {
			return i
		}
	}
	for i, f := range fields {
		switch f.Type {
		case domain.FieldCheckbox, domain.FieldRadio, domain.FieldFile:
			continue
		}
		if f.IsEmailLike() {
			return i
		}
	}
	return -1
}

// ApplyEdits applies user edits from the mapping table. A nil property clears the field.
// Entries are ordered by current field position so the next positional repair lines up.
func (r *Reconciler) ApplyEdits(mapping *domain.FieldMapping, fields []domain.FormField, edits []domain.FieldEdit) *domain.FieldMapping {
	out := mapping.Clone()
	if out == nil {
		out = domain.NewFieldMapping("", "", "")
	}
	labels := make(map[string]string, len(fields))
	position := make(map[string]int, len(fields))
	for i, f := range fields {
		labels[f.ID] = f.Label
		position[f.ID] = i
	}

	for _, edit := range edits {
		if edit.Property == nil || strings.TrimSpace(*edit.Property) == "" {
			out.Unset(edit.FieldID)
			continue
		}
		out.Set(edit.FieldID, *edit.Property)
	}
	for i := range out.Entries {
		if label, ok := labels[out.Entries[i].FieldID]; ok {
			out.Entries[i].FieldLabel = label
		}
	}
	sort.SliceStable(out.Entries, func(a, b int) bool {
		pa, okA := position[out.Entries[a].FieldID]
		pb, okB := position[out.Entries[b].FieldID]
		switch {
		case okA && okB:
			return pa < pb
		default:
			return okA && !okB
		}
	})
	return out
}

// MatchScore scores how well a field matches a remote property.
// Exact (case and separator insensitive) equality scores 100, containment 60,
// and word overlap up to 40 scaled by the overlap fraction.
func MatchScore(field domain.FormField, prop domain.RemoteProperty) int {
	fieldKeys := nonEmpty(field.Label, field.ID)
	propKeys := nonEmpty(prop.Label, prop.Name)

	best := 0
	for _, fk := range fieldKeys {
		for _, pk := range propKeys {
			if s := pairScore(fk, pk); s > best {
				best = s
			}
		}
	}
	return best
}

func pairScore(a, b string) int {
	la, lb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if la == lb {
		return scoreExact
	}
	ca, cb := compact(la), compact(lb)
	if ca == "" || cb == "" {
		return 0
	}
	if ca == cb {
		return scoreExact
	}
	if len(ca) >= minContainsLen && len(cb) >= minContainsLen && (strings.Contains(ca, cb) || strings.Contains(cb, ca)) {
		return scoreContains
	}
	return int(tokenOverlap(tokenize(la), tokenize(lb)) * scoreTokenMax)
}

// tokenOverlap is |A ∩ B| / |A ∪ B|
func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seenB := make(map[string]bool, len(b))
	for _, t := range b {
		if seenB[t] {
			continue
		}
		seenB[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
}

func compact(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func writableProperties(properties []domain.RemoteProperty) map[string]domain.RemoteProperty {
	out := make(map[string]domain.RemoteProperty, len(properties))
	for _, p := range properties {
		if !p.ReadOnly {
			out[p.Name] = p
		}
	}
	return out
}

// findFieldByLabel returns the first free current field whose label equals label, or -1
func findFieldByLabel(fields []domain.FormField, label string, assigned map[int]domain.MappingEntry, saved *domain.FieldMapping) int {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return -1
	}
	for i, f := range fields {
		if _, taken := assigned[i]; taken {
			continue
		}
		if savedReferences(saved, f.ID) {
			continue
		}
		if strings.ToLower(strings.TrimSpace(f.Label)) == label {
			return i
		}
	}
	return -1
}

// savedReferences reports whether the saved mapping has an entry for fieldID
func savedReferences(saved *domain.FieldMapping, fieldID string) bool {
	_, ok := saved.Get(fieldID)
	return ok
}
