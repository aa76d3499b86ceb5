package domain

import "strings"

// Standard object types; anything else is a tenant-defined custom object
const (
	ObjectContacts  = "contacts"
	ObjectCompanies = "companies"
	ObjectDeals     = "deals"
	ObjectTickets   = "tickets"
	ObjectMembers   = "members"
	ObjectCustomers = "customers"
)

var standardObjectTypes = map[string]bool{
	ObjectContacts:  true,
	ObjectCompanies: true,
	ObjectDeals:     true,
	ObjectTickets:   true,
	ObjectMembers:   true,
	ObjectCustomers: true,
}

// IsStandardObjectType reports whether objectType is a fixed, non-custom type
func IsStandardObjectType(objectType string) bool {
	return standardObjectTypes[strings.ToLower(objectType)]
}

// RemoteProperty is one element of a remote object's schema
type RemoteProperty struct {
	Name     string `json:"name" bson:"name"`
	Label    string `json:"label" bson:"label"`
	DataType string `json:"data_type" bson:"data_type"`
	ReadOnly bool   `json:"read_only" bson:"read_only"`
	Required bool   `json:"required" bson:"required"`
}

// ObjectTypeInfo describes an object type the remote account exposes
type ObjectTypeInfo struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	ID     string `json:"id,omitempty"` // remote identifier when it differs from Name
	Custom bool   `json:"custom"`
}

// Matches reports whether name refers to this object type by name, label or remote id
func (o ObjectTypeInfo) Matches(name string) bool {
	return strings.EqualFold(o.Name, name) ||
		(o.ID != "" && strings.EqualFold(o.ID, name)) ||
		(o.Label != "" && strings.EqualFold(o.Label, name))
}

// RemoteRecord is a record returned by a remote search/create/update
type RemoteRecord struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties,omitempty"`
}
