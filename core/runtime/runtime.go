// Package runtime dispatches create, read, update and delete operations for
// defined resources against an injected data-access capability.
//
// Mutations follow one pipeline: validate, check uniqueness, transform,
// persist. Failures along it are reported in a Result and never returned
// as Go errors. Reads return errors directly; Get reports absence as a nil
// record.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/anvil/adapters/metrics"
	"github.com/artpar/anvil/core/events"
	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/resource"
	"github.com/artpar/anvil/core/schema"
	"github.com/artpar/anvil/core/storage"
	"github.com/artpar/anvil/core/transform"
	"github.com/artpar/anvil/core/validation"
)

// ErrUnknownModel is returned when the data-access capability has no
// client for a resource's model.
var ErrUnknownModel = errors.New("unknown model")

// Operation names used in logs and metrics.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Config configures the runtime. Every field is optional.
type Config struct {
	// Logger for dispatcher activity.
	Logger zerolog.Logger

	// Metrics records operation counts and latencies.
	Metrics *metrics.Collector

	// Events receives a change event after each successful mutation.
	Events *events.Bus

	// Now overrides the clock used for event timestamps.
	Now func() time.Time
}

// Runtime is the CRUD dispatcher. It holds no per-call state and is safe
// for concurrent use when the underlying stores are.
type Runtime struct {
	access  storage.DataAccess
	logger  zerolog.Logger
	metrics *metrics.Collector
	events  *events.Bus
	now     func() time.Time
}

// New creates a runtime over access.
func New(access storage.DataAccess, cfg Config) *Runtime {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Runtime{
		access:  access,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		events:  cfg.Events,
		now:     now,
	}
}

// Register checks that res's model resolves in the data-access
// capability. Call it once per resource at startup so a missing model
// fails before any request is served.
func (r *Runtime) Register(res *resource.Resource) error {
	if _, ok := r.access.Model(res.Model()); !ok {
		return fmt.Errorf("register %s: %w", res.Model(), ErrUnknownModel)
	}
	r.logger.Debug().
		Str("resource", res.Slug()).
		Str("model", res.Model()).
		Msg("resource registered")
	return nil
}

func (r *Runtime) client(res *resource.Resource) (storage.ModelClient, error) {
	c, ok := r.access.Model(res.Model())
	if !ok {
		return nil, fmt.Errorf("model %s: %w", res.Model(), ErrUnknownModel)
	}
	return c, nil
}

// List returns every record of res, most recent first.
func (r *Runtime) List(ctx context.Context, res *resource.Resource) ([]record.Record, error) {
	start := r.now()

	c, err := r.client(res)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", res.Slug(), err)
	}

	rows, err := c.FindMany(ctx, storage.FindManyArgs{
		OrderBy: []storage.OrderBy{{Field: storage.ColumnID, Order: storage.Desc}},
	})
	if err != nil {
		r.observe(res, OpList, metrics.OutcomeError, start)
		return nil, fmt.Errorf("list %s: %w", res.Slug(), err)
	}

	r.observe(res, OpList, metrics.OutcomeSuccess, start)
	return rows, nil
}

// Get returns the record with id, or nil when none exists. An id that does
// not parse for the resource's id kind is treated as not found.
func (r *Runtime) Get(ctx context.Context, res *resource.Resource, id string) (record.Record, error) {
	start := r.now()

	c, err := r.client(res)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", res.Slug(), err)
	}

	key, err := res.ParseID(id)
	if err != nil {
		r.logger.Debug().Err(err).Str("resource", res.Slug()).Msg("get with malformed id")
		r.observe(res, OpGet, metrics.OutcomeSuccess, start)
		return nil, nil
	}

	rec, err := c.FindUnique(ctx, key)
	if err != nil {
		r.observe(res, OpGet, metrics.OutcomeError, start)
		return nil, fmt.Errorf("get %s %s: %w", res.Slug(), id, err)
	}

	r.observe(res, OpGet, metrics.OutcomeSuccess, start)
	return rec, nil
}

// Create validates data against the create form, checks unique fields,
// transforms and persists it.
func (r *Runtime) Create(ctx context.Context, res *resource.Resource, data record.Record) Result[record.Record] {
	start := r.now()
	log := r.logger.With().Str("resource", res.Slug()).Str("operation", OpCreate).Logger()

	c, err := r.client(res)
	if err != nil {
		return r.storeFailure(log, res, OpCreate, start, err)
	}

	if out, failed := r.check(ctx, log, c, res, data, resource.ModeCreate, record.Value{}, start); failed {
		return out
	}

	rec, err := c.Create(ctx, transform.Transform(res, data, resource.ModeCreate))
	if err != nil {
		return r.storeFailure(log, res, OpCreate, start, err)
	}

	log.Info().Str("id", rec[storage.ColumnID].Text()).Msg("record created")
	r.publish(ctx, res, events.ActionCreated, rec[storage.ColumnID], rec)
	r.observe(res, OpCreate, metrics.OutcomeSuccess, start)
	return Ok(rec)
}

// Update validates data against the edit form, checks unique fields
// against every other record, transforms and persists it.
func (r *Runtime) Update(ctx context.Context, res *resource.Resource, id string, data record.Record) Result[record.Record] {
	start := r.now()
	log := r.logger.With().Str("resource", res.Slug()).Str("operation", OpUpdate).Str("id", id).Logger()

	c, err := r.client(res)
	if err != nil {
		return r.storeFailure(log, res, OpUpdate, start, err)
	}

	key, err := res.ParseID(id)
	if err != nil {
		return r.storeFailure(log, res, OpUpdate, start, err)
	}

	if out, failed := r.check(ctx, log, c, res, data, resource.ModeUpdate, key, start); failed {
		return out
	}

	rec, err := c.Update(ctx, key, transform.Transform(res, data, resource.ModeUpdate))
	if err != nil {
		return r.storeFailure(log, res, OpUpdate, start, err)
	}

	log.Info().Msg("record updated")
	r.publish(ctx, res, events.ActionUpdated, key, rec)
	r.observe(res, OpUpdate, metrics.OutcomeSuccess, start)
	return Ok(rec)
}

// Delete removes the record with id.
func (r *Runtime) Delete(ctx context.Context, res *resource.Resource, id string) Result[record.Record] {
	start := r.now()
	log := r.logger.With().Str("resource", res.Slug()).Str("operation", OpDelete).Str("id", id).Logger()

	c, err := r.client(res)
	if err != nil {
		return r.storeFailure(log, res, OpDelete, start, err)
	}

	key, err := res.ParseID(id)
	if err != nil {
		return r.storeFailure(log, res, OpDelete, start, err)
	}

	rec, err := c.Delete(ctx, key)
	if err != nil {
		return r.storeFailure(log, res, OpDelete, start, err)
	}

	log.Info().Msg("record deleted")
	r.publish(ctx, res, events.ActionDeleted, key, rec)
	r.observe(res, OpDelete, metrics.OutcomeSuccess, start)
	return Ok(rec)
}

// check runs validation and the uniqueness checks. It reports true with
// the failed result when the mutation must stop.
func (r *Runtime) check(
	ctx context.Context,
	log zerolog.Logger,
	c storage.ModelClient,
	res *resource.Resource,
	data record.Record,
	mode resource.Mode,
	self record.Value,
	start time.Time,
) (Result[record.Record], bool) {
	op := mode.String()

	if errs := validation.Validate(res, data, mode); len(errs) > 0 {
		for _, e := range errs {
			r.metrics.ObserveValidationError(res.Slug(), e.Field)
		}
		log.Debug().Int("errors", len(errs)).Msg("validation failed")
		r.observe(res, op, metrics.OutcomeInvalid, start)
		return Fail[record.Record](errs...), true
	}

	conflict, err := r.checkUnique(ctx, c, res, data, mode, self)
	if err != nil {
		return r.storeFailure(log, res, op, start, err), true
	}
	if conflict != nil {
		log.Debug().Str("field", conflict.Field).Msg("uniqueness check failed")
		r.observe(res, op, metrics.OutcomeConflict, start)
		return Fail[record.Record](*conflict), true
	}
	return Result[record.Record]{}, false
}

// checkUnique queries the store once per unique text or email field with a
// non-blank value, in form order, and stops at the first collision. On
// update the record being updated is excluded.
//
// The check and the later write are not atomic. A concurrent writer can
// insert a colliding value in between; the store's own constraint, if any,
// then surfaces as a generic store failure.
func (r *Runtime) checkUnique(
	ctx context.Context,
	c storage.ModelClient,
	res *resource.Resource,
	data record.Record,
	mode resource.Mode,
	self record.Value,
) (*validation.FieldError, error) {
	for _, ff := range res.FormFor(mode).Fields() {
		if !schema.IsUnique(ff.Field) {
			continue
		}
		v, ok := data[ff.Name]
		if !ok || v.IsBlank() {
			continue
		}

		where := storage.Where{Equals: record.Record{ff.Name: v}}
		if mode == resource.ModeUpdate {
			where.Not = record.Record{storage.ColumnID: self}
		}

		existing, err := c.FindFirst(ctx, where)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			attrs, _ := ff.Field.Attributes()
			fe := validation.Unique(ff.Name, attrs)
			return &fe, nil
		}
	}
	return nil, nil
}

func (r *Runtime) storeFailure(log zerolog.Logger, res *resource.Resource, op string, start time.Time, err error) Result[record.Record] {
	log.Warn().Err(err).Msg("operation failed")
	r.observe(res, op, metrics.OutcomeError, start)
	return FailErr[record.Record](err)
}

func (r *Runtime) publish(ctx context.Context, res *resource.Resource, action string, id record.Value, rec record.Record) {
	if r.events == nil {
		return
	}
	r.events.Publish(ctx, events.Event{
		Name:     events.Name(res.Slug(), action),
		Resource: res.Slug(),
		Model:    res.Model(),
		Action:   action,
		ID:       id,
		Data:     rec,
		Time:     r.now().UTC(),
	})
	r.metrics.ObserveEvent(res.Slug(), action)
}

func (r *Runtime) observe(res *resource.Resource, op, outcome string, start time.Time) {
	r.metrics.ObserveOperation(res.Slug(), op, outcome, r.now().Sub(start))
}
