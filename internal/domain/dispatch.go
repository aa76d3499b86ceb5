package domain

import (
	"fmt"
	"strings"
	"time"
)

// CustomObjectAction is what to do with a custom object payload
type CustomObjectAction string

const (
	ActionCreate CustomObjectAction = "create"
	ActionUpdate CustomObjectAction = "update"
)

// CustomObjectConfig describes one custom object write with its own field mapping
type CustomObjectConfig struct {
	ObjectName  string             `json:"object_name" bson:"object_name"`
	Action      CustomObjectAction `json:"action" bson:"action"`
	Mapping     []MappingEntry     `json:"mapping" bson:"mapping"`
	KeyProperty string             `json:"key_property,omitempty" bson:"key_property,omitempty"` // searched on update, defaults to "email"
}

// DispatchOptions enumerates which operations are enabled for a form
type DispatchOptions struct {
	CreateOrUpdateContact bool                 `json:"create_or_update_contact" bson:"create_or_update_contact"`
	CreateDeal            bool                 `json:"create_deal" bson:"create_deal"`
	UpdateDeal            bool                 `json:"update_deal" bson:"update_deal"`
	DealMapping           []MappingEntry       `json:"deal_mapping,omitempty" bson:"deal_mapping,omitempty"`
	DealID                string               `json:"deal_id,omitempty" bson:"deal_id,omitempty"`
	EnableCustomObjects   bool                 `json:"enable_custom_objects" bson:"enable_custom_objects"`
	CustomObjectConfigs   []CustomObjectConfig `json:"custom_object_configs,omitempty" bson:"custom_object_configs,omitempty"`
	EnrollWorkflow        bool                 `json:"enroll_workflow" bson:"enroll_workflow"`
	WorkflowID            string               `json:"workflow_id,omitempty" bson:"workflow_id,omitempty"`
	AssociateCompany      bool                 `json:"associate_company" bson:"associate_company"`
	CompanyID             string               `json:"company_id,omitempty" bson:"company_id,omitempty"`
}

// Validate rejects contradictory or incomplete option sets
func (o DispatchOptions) Validate() error {
	var problems []string
	if o.CreateDeal && o.UpdateDeal {
		problems = append(problems, "create_deal and update_deal are mutually exclusive")
	}
	if o.EnrollWorkflow && strings.TrimSpace(o.WorkflowID) == "" {
		problems = append(problems, "workflow_id is required when enroll_workflow is set")
	}
	if o.AssociateCompany && strings.TrimSpace(o.CompanyID) == "" {
		problems = append(problems, "company_id is required when associate_company is set")
	}
	if o.EnableCustomObjects {
		for i, c := range o.CustomObjectConfigs {
			if strings.TrimSpace(c.ObjectName) == "" {
				problems = append(problems, fmt.Sprintf("custom object %d has no object name", i))
			}
			if c.Action != ActionCreate && c.Action != ActionUpdate {
				problems = append(problems, fmt.Sprintf("custom object %d has unknown action %q", i, c.Action))
			}
		}
	}
	if len(problems) > 0 {
		return NewError(KindValidationFailed, "dispatchOptions.validate", strings.Join(problems, "; "))
	}
	return nil
}

// Operation names used in dispatch results
const (
	OpPrecondition       = "precondition"
	OpContact            = "contact"
	OpDeal               = "deal"
	OpDealAssociation    = "deal_association"
	OpWorkflow           = "workflow"
	OpCompanyAssociation = "company_association"
	OpCustomObjectPrefix = "custom_object:"
)

// OperationResult is the outcome of one remote operation within a dispatch
type OperationResult struct {
	Operation string    `json:"operation" bson:"operation"`
	Success   bool      `json:"success" bson:"success"`
	Skipped   bool      `json:"skipped,omitempty" bson:"skipped,omitempty"`
	Message   string    `json:"message,omitempty" bson:"message,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	ObjectID  string    `json:"object_id,omitempty" bson:"object_id,omitempty"`
}

// OperationSucceeded builds a successful result
func OperationSucceeded(op, objectID, message string) OperationResult {
	return OperationResult{Operation: op, Success: true, ObjectID: objectID, Message: message}
}

// OperationFailed builds a failed result from an error
func OperationFailed(op string, err error) OperationResult {
	return OperationResult{Operation: op, Message: err.Error(), ErrorKind: KindOf(err)}
}

// OperationSkipped builds a failed result for an operation that could not be attempted
func OperationSkipped(op, reason string) OperationResult {
	return OperationResult{Operation: op, Skipped: true, Message: reason, ErrorKind: KindValidationFailed}
}

// DispatchResult is the outcome of one dispatch attempt.
// Success is true when at least one operation succeeded.
type DispatchResult struct {
	ID            string            `json:"id" bson:"_id"`
	SubmissionID  string            `json:"submission_id,omitempty" bson:"submission_id,omitempty"`
	FormID        string            `json:"form_id" bson:"form_id"`
	IntegrationID string            `json:"integration_id" bson:"integration_id"`
	Operations    []OperationResult `json:"operations" bson:"operations"`
	Success       bool              `json:"success" bson:"success"`
	Message       string            `json:"message,omitempty" bson:"message,omitempty"`
	StartedAt     time.Time         `json:"started_at" bson:"started_at"`
	FinishedAt    time.Time         `json:"finished_at" bson:"finished_at"`
}

// Add appends an operation result
func (r *DispatchResult) Add(op OperationResult) {
	r.Operations = append(r.Operations, op)
}

// Failures returns the failed operations in order
func (r *DispatchResult) Failures() []OperationResult {
	var failed []OperationResult
	for _, op := range r.Operations {
		if !op.Success {
			failed = append(failed, op)
		}
	}
	return failed
}

// Operation returns the result for a named operation
func (r *DispatchResult) Operation(name string) (OperationResult, bool) {
	for _, op := range r.Operations {
		if op.Operation == name {
			return op, true
		}
	}
	return OperationResult{}, false
}

// Aggregate applies the any-success policy and builds the failure message.
// When nothing succeeded the message is every error prefixed by its operation name.
func (r *DispatchResult) Aggregate() {
	r.Success = false
	succeeded := 0
	for _, op := range r.Operations {
		if op.Success {
			r.Success = true
			succeeded++
		}
	}

	if r.Success {
		r.Message = fmt.Sprintf("%d of %d operations succeeded", succeeded, len(r.Operations))
		return
	}
	if len(r.Operations) == 0 {
		r.Message = "no operations enabled"
		return
	}

	parts := make([]string, 0, len(r.Operations))
	for _, op := range r.Operations {
		parts = append(parts, op.Operation+": "+op.Message)
	}
	r.Message = strings.Join(parts, "; ")
}
