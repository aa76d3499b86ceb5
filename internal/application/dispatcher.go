package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"archie-core-forms-layer/internal/domain"
	"archie-core-forms-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultRemoteTimeout = 30 * time.Second

// Dispatcher sends one submission to one integration as a set of independent remote operations.
// Per-operation failures become entries in the DispatchResult; they are never returned as errors.
type Dispatcher struct {
	adapters    *AdapterRegistry
	credentials ports.CredentialsProvider
	mappings    ports.MappingRepository
	settings    ports.SettingsRepository
	connection  *ConnectionService
	observers   []ports.DispatchObserver
	metrics     ports.MetricsRecorder
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewDispatcher creates a new dispatcher. metrics may be nil; timeout defaults to 30s.
func NewDispatcher(
	adapters *AdapterRegistry,
	credentials ports.CredentialsProvider,
	mappings ports.MappingRepository,
	settings ports.SettingsRepository,
	metrics ports.MetricsRecorder,
	timeout time.Duration,
	logger zerolog.Logger,
) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Dispatcher{
		adapters:    adapters,
		credentials: credentials,
		mappings:    mappings,
		settings:    settings,
		metrics:     metrics,
		timeout:     timeout,
		logger:      logger,
	}
}

// UseConnectionGate makes every dispatch verify the credentials with a connection test first
func (d *Dispatcher) UseConnectionGate(connection *ConnectionService) {
	d.connection = connection
}

// AddObserver registers an observer notified after each dispatch
func (d *Dispatcher) AddObserver(observer ports.DispatchObserver) {
	d.observers = append(d.observers, observer)
}

// DispatchSubmission loads settings, credentials and mapping for the submission's form and dispatches it.
// The error is only for storage failures; remote failures are reported in the result.
func (d *Dispatcher) DispatchSubmission(ctx context.Context, integrationID string, submission *domain.SubmissionRecord) (*domain.DispatchResult, error) {
	settings, err := d.settings.Get(ctx, submission.FormID, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if settings == nil {
		settings = &domain.IntegrationSettings{FormID: submission.FormID, IntegrationID: integrationID}
	}
	return d.DispatchWithSettings(ctx, submission, settings)
}

// DispatchWithSettings loads credentials and mapping and dispatches with already loaded settings
func (d *Dispatcher) DispatchWithSettings(ctx context.Context, submission *domain.SubmissionRecord, settings *domain.IntegrationSettings) (*domain.DispatchResult, error) {
	integrationID := settings.IntegrationID
	creds, err := d.credentials.GetCredentials(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	objectType := settings.ObjectType
	if objectType == "" {
		if adapter, err := d.adapters.Get(integrationID); err == nil {
			objectType = adapter.ContactObjectType()
		}
	}
	mapping, err := d.mappings.Get(ctx, submission.FormID, integrationID, objectType)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	if mapping == nil {
		mapping = domain.NewFieldMapping(submission.FormID, integrationID, objectType)
	}

	return d.Dispatch(ctx, submission, mapping, creds, settings), nil
}

// Dispatch runs the enabled operations for one submission.
//
// The contact upsert runs first because company association consumes its id.
// Deal, workflow, company association and custom object operations then run
// concurrently. Cancelling ctx stops operations that have not started yet;
// writes already issued are not rolled back.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	submission *domain.SubmissionRecord,
	mapping *domain.FieldMapping,
	creds *domain.IntegrationCredentials,
	settings *domain.IntegrationSettings,
) *domain.DispatchResult {
	result := &domain.DispatchResult{
		ID:           uuid.New().String(),
		SubmissionID: submission.ID,
		FormID:       submission.FormID,
		StartedAt:    time.Now(),
	}
	if settings != nil {
		result.IntegrationID = settings.IntegrationID
	}

	adapter, err := d.checkPreconditions(ctx, creds, settings)
	if err != nil {
		result.Add(domain.OperationFailed(domain.OpPrecondition, err))
		return d.finish(ctx, result)
	}

	opts := settings.Options
	values := MapValues(submission, mapping.Entries)
	email := values[emailProperty].String()

	contactID := ""
	if opts.CreateOrUpdateContact {
		op := d.upsertContact(ctx, adapter, creds, settings, values, email)
		contactID = op.ObjectID
		result.Add(op)
	}

	tasks := d.secondaryTasks(adapter, creds, submission, opts, email, contactID)
	slots := make([][]domain.OperationResult, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			slots[i] = task(ctx)
			return nil
		})
	}
	_ = g.Wait()

	for _, ops := range slots {
		for _, op := range ops {
			result.Add(op)
		}
	}
	return d.finish(ctx, result)
}

// MapValues applies mapping entries to submission values. Empty values are omitted so that an
// unfilled field never overwrites remote data. When several fields target one property the
// first non-empty value wins.
func MapValues(submission *domain.SubmissionRecord, entries []domain.MappingEntry) map[string]domain.Value {
	out := make(map[string]domain.Value, len(entries))
	for _, e := range entries {
		if e.Property == "" {
			continue
		}
		if _, exists := out[e.Property]; exists {
			continue
		}
		v := submission.Value(e.FieldID)
		if v.IsEmpty() {
			continue
		}
		out[e.Property] = v
	}
	return out
}

func (d *Dispatcher) checkPreconditions(ctx context.Context, creds *domain.IntegrationCredentials, settings *domain.IntegrationSettings) (ports.IntegrationAdapter, error) {
	if settings == nil || !settings.Enabled {
		return nil, domain.NewError(domain.KindNotConfigured, "dispatch.precondition", "integration is not enabled for this form")
	}
	if !creds.IsConnected() {
		return nil, domain.NewError(domain.KindNotConfigured, "dispatch.precondition", "integration is not connected")
	}
	adapter, err := d.adapters.Get(settings.IntegrationID)
	if err != nil {
		return nil, err
	}
	if d.connection != nil {
		if _, err := d.connection.TestCredentials(ctx, settings.IntegrationID, creds); err != nil {
			return nil, err
		}
	}
	return adapter, nil
}

func (d *Dispatcher) upsertContact(
	ctx context.Context,
	adapter ports.IntegrationAdapter,
	creds *domain.IntegrationCredentials,
	settings *domain.IntegrationSettings,
	values map[string]domain.Value,
	email string,
) domain.OperationResult {
	if email == "" {
		return domain.OperationSkipped(domain.OpContact, "no email value mapped")
	}
	objectType := settings.ObjectType
	if objectType == "" {
		objectType = adapter.ContactObjectType()
	}

	var existing *domain.RemoteRecord
	err := d.call(ctx, adapter.ID(), domain.OpContact, func(ctx context.Context) error {
		var err error
		existing, err = adapter.SearchByKey(ctx, creds, objectType, emailProperty, email)
		return err
	})
	if err != nil {
		return domain.OperationFailed(domain.OpContact, err)
	}

	var record *domain.RemoteRecord
	if existing != nil {
		err = d.call(ctx, adapter.ID(), domain.OpContact, func(ctx context.Context) error {
			record, err = adapter.Update(ctx, creds, objectType, existing.ID, values)
			return err
		})
		if err != nil {
			return domain.OperationFailed(domain.OpContact, err)
		}
		return domain.OperationSucceeded(domain.OpContact, recordID(record, existing.ID), "contact updated")
	}

	err = d.call(ctx, adapter.ID(), domain.OpContact, func(ctx context.Context) error {
		record, err = adapter.Create(ctx, creds, objectType, values)
		return err
	})
	if err != nil {
		return domain.OperationFailed(domain.OpContact, err)
	}
	return domain.OperationSucceeded(domain.OpContact, recordID(record, ""), "contact created")
}

type dispatchTask func(ctx context.Context) []domain.OperationResult

// secondaryTasks returns the enabled operations that do not depend on each other, in result order
func (d *Dispatcher) secondaryTasks(
	adapter ports.IntegrationAdapter,
	creds *domain.IntegrationCredentials,
	submission *domain.SubmissionRecord,
	opts domain.DispatchOptions,
	email, contactID string,
) []dispatchTask {
	var tasks []dispatchTask

	if opts.CreateDeal || opts.UpdateDeal {
		tasks = append(tasks, func(ctx context.Context) []domain.OperationResult {
			return d.dealOperation(ctx, adapter, creds, submission, opts, contactID)
		})
	}

	if opts.EnrollWorkflow {
		tasks = append(tasks, func(ctx context.Context) []domain.OperationResult {
			if email == "" {
				return []domain.OperationResult{domain.OperationSkipped(domain.OpWorkflow, "no email value mapped")}
			}
			err := d.call(ctx, adapter.ID(), domain.OpWorkflow, func(ctx context.Context) error {
				return adapter.Enroll(ctx, creds, opts.WorkflowID, email)
			})
			if err != nil {
				return []domain.OperationResult{domain.OperationFailed(domain.OpWorkflow, err)}
			}
			return []domain.OperationResult{domain.OperationSucceeded(domain.OpWorkflow, opts.WorkflowID, "enrolled "+email)}
		})
	}

	if opts.AssociateCompany {
		tasks = append(tasks, func(ctx context.Context) []domain.OperationResult {
			if contactID == "" {
				return []domain.OperationResult{domain.OperationSkipped(domain.OpCompanyAssociation, "no contact id available to associate")}
			}
			err := d.call(ctx, adapter.ID(), domain.OpCompanyAssociation, func(ctx context.Context) error {
				return adapter.Associate(ctx, creds, adapter.ContactObjectType(), contactID, domain.ObjectCompanies, opts.CompanyID)
			})
			if err != nil {
				return []domain.OperationResult{domain.OperationFailed(domain.OpCompanyAssociation, err)}
			}
			return []domain.OperationResult{domain.OperationSucceeded(domain.OpCompanyAssociation, opts.CompanyID, "contact associated with company")}
		})
	}

	if opts.EnableCustomObjects {
		for _, cfg := range opts.CustomObjectConfigs {
			tasks = append(tasks, func(ctx context.Context) []domain.OperationResult {
				return []domain.OperationResult{d.customObjectOperation(ctx, adapter, creds, submission, cfg, email)}
			})
		}
	}
	return tasks
}

func (d *Dispatcher) dealOperation(
	ctx context.Context,
	adapter ports.IntegrationAdapter,
	creds *domain.IntegrationCredentials,
	submission *domain.SubmissionRecord,
	opts domain.DispatchOptions,
	contactID string,
) []domain.OperationResult {
	values := MapValues(submission, opts.DealMapping)

	if opts.UpdateDeal {
		if strings.TrimSpace(opts.DealID) == "" {
			return []domain.OperationResult{domain.OperationSkipped(domain.OpDeal, "no deal id configured for update")}
		}
		if len(values) == 0 {
			return []domain.OperationResult{domain.OperationSkipped(domain.OpDeal, "no deal values mapped")}
		}
		err := d.call(ctx, adapter.ID(), domain.OpDeal, func(ctx context.Context) error {
			_, err := adapter.Update(ctx, creds, domain.ObjectDeals, opts.DealID, values)
			return err
		})
		if err != nil {
			return []domain.OperationResult{domain.OperationFailed(domain.OpDeal, err)}
		}
		return []domain.OperationResult{domain.OperationSucceeded(domain.OpDeal, opts.DealID, "deal updated")}
	}

	var deal *domain.RemoteRecord
	err := d.call(ctx, adapter.ID(), domain.OpDeal, func(ctx context.Context) error {
		var err error
		deal, err = adapter.Create(ctx, creds, domain.ObjectDeals, values)
		return err
	})
	if err != nil {
		return []domain.OperationResult{domain.OperationFailed(domain.OpDeal, err)}
	}
	dealID := recordID(deal, "")
	out := []domain.OperationResult{domain.OperationSucceeded(domain.OpDeal, dealID, "deal created")}

	switch {
	case !opts.CreateOrUpdateContact:
	case contactID == "" || dealID == "":
		out = append(out, domain.OperationSkipped(domain.OpDealAssociation, "no contact id available to associate"))
	default:
		err := d.call(ctx, adapter.ID(), domain.OpDealAssociation, func(ctx context.Context) error {
			return adapter.Associate(ctx, creds, domain.ObjectDeals, dealID, adapter.ContactObjectType(), contactID)
		})
		if err != nil {
			out = append(out, domain.OperationFailed(domain.OpDealAssociation, err))
		} else {
			out = append(out, domain.OperationSucceeded(domain.OpDealAssociation, dealID, "deal associated with contact"))
		}
	}
	return out
}

// customObjectOperation writes one custom object with its own mapping.
// Updates search by the configured key property, falling back to the contact email.
func (d *Dispatcher) customObjectOperation(
	ctx context.Context,
	adapter ports.IntegrationAdapter,
	creds *domain.IntegrationCredentials,
	submission *domain.SubmissionRecord,
	cfg domain.CustomObjectConfig,
	email string,
) domain.OperationResult {
	opName := domain.OpCustomObjectPrefix + cfg.ObjectName
	values := MapValues(submission, cfg.Mapping)
	if len(values) == 0 {
		return domain.OperationSkipped(opName, "no values mapped for "+cfg.ObjectName)
	}

	if cfg.Action == domain.ActionCreate {
		var record *domain.RemoteRecord
		err := d.call(ctx, adapter.ID(), domain.OpCustomObjectPrefix, func(ctx context.Context) error {
			var err error
			record, err = adapter.Create(ctx, creds, cfg.ObjectName, values)
			return err
		})
		if err != nil {
			return domain.OperationFailed(opName, err)
		}
		return domain.OperationSucceeded(opName, recordID(record, ""), cfg.ObjectName+" created")
	}

	key := cfg.KeyProperty
	if key == "" {
		key = emailProperty
	}
	keyValue := values[key].String()
	if keyValue == "" && key == emailProperty {
		keyValue = email
	}
	if keyValue == "" {
		return domain.OperationSkipped(opName, "no value for key property "+key)
	}

	var existing *domain.RemoteRecord
	err := d.call(ctx, adapter.ID(), domain.OpCustomObjectPrefix, func(ctx context.Context) error {
		var err error
		existing, err = adapter.SearchByKey(ctx, creds, cfg.ObjectName, key, keyValue)
		return err
	})
	if err != nil {
		return domain.OperationFailed(opName, err)
	}
	if existing == nil {
		return domain.OperationFailed(opName, domain.NewError(domain.KindNotFound, "dispatch.customObject",
			fmt.Sprintf("no %s record with %s=%s", cfg.ObjectName, key, keyValue)))
	}

	err = d.call(ctx, adapter.ID(), domain.OpCustomObjectPrefix, func(ctx context.Context) error {
		_, err := adapter.Update(ctx, creds, cfg.ObjectName, existing.ID, values)
		return err
	})
	if err != nil {
		return domain.OperationFailed(opName, err)
	}
	return domain.OperationSucceeded(opName, existing.ID, cfg.ObjectName+" updated")
}

// call runs one remote call under the per-call timeout and records its duration
func (d *Dispatcher) call(ctx context.Context, integrationID, operation string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.KindTimeout, "dispatch."+operation, err)
	}
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	if err != nil && callCtx.Err() != nil && domain.KindOf(err) == domain.KindUnknown {
		err = domain.WrapError(domain.KindTimeout, "dispatch."+operation, err)
	}
	d.metrics.ObserveOperation(integrationID, strings.TrimSuffix(operation, ":"), err == nil, time.Since(start))
	return err
}

func (d *Dispatcher) finish(ctx context.Context, result *domain.DispatchResult) *domain.DispatchResult {
	result.FinishedAt = time.Now()
	result.Aggregate()

	for _, op := range result.Failures() {
		d.logger.Warn().
			Str("dispatchId", result.ID).
			Str("formId", result.FormID).
			Str("integration", result.IntegrationID).
			Str("operation", op.Operation).
			Str("kind", string(op.ErrorKind)).
			Msg(op.Message)
	}
	if result.Success {
		d.logger.Info().
			Str("dispatchId", result.ID).
			Str("formId", result.FormID).
			Str("integration", result.IntegrationID).
			Msg(result.Message)
	} else {
		d.logger.Error().
			Str("dispatchId", result.ID).
			Str("formId", result.FormID).
			Str("integration", result.IntegrationID).
			Msg("Dispatch failed: " + result.Message)
	}

	for _, observer := range d.observers {
		if err := observer.OnDispatch(ctx, result); err != nil {
			d.logger.Warn().Err(err).Str("dispatchId", result.ID).Msg("Dispatch observer failed")
		}
	}
	return result
}

func recordID(record *domain.RemoteRecord, fallback string) string {
	if record == nil || record.ID == "" {
		return fallback
	}
	return record.ID
}
