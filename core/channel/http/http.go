// Package http serves defined resources over an admin HTTP API. Routes are
// derived from the registry: every resource gets list, show, create,
// update and delete endpoints keyed by its slug.
package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/anvil/adapters/metrics"
	"github.com/artpar/anvil/core/events"
	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/registry"
	"github.com/artpar/anvil/core/resource"
	"github.com/artpar/anvil/core/runtime"
)

// Config configures the admin channel.
type Config struct {
	Runtime  *runtime.Runtime
	Registry *registry.Registry

	// Events enables the /_events websocket stream when set.
	Events *events.Bus

	Logger  zerolog.Logger
	Metrics *metrics.Collector
}

// Channel is the admin HTTP channel.
type Channel struct {
	router   chi.Router
	runtime  *runtime.Runtime
	registry *registry.Registry
	stream   *eventStream
	logger   zerolog.Logger
}

// New creates the channel and its routes.
func New(cfg Config) *Channel {
	c := &Channel{
		router:   chi.NewRouter(),
		runtime:  cfg.Runtime,
		registry: cfg.Registry,
		logger:   cfg.Logger,
	}

	c.router.Get("/", c.handleDashboard)

	if cfg.Events != nil {
		c.stream = newEventStream(cfg.Events, cfg.Logger, cfg.Metrics)
		c.router.Get("/_events", c.stream.ServeHTTP)
	}

	c.router.Route("/{slug}", func(r chi.Router) {
		r.Get("/", c.handleList)
		r.Post("/", c.handleCreate)
		r.Get("/_schema", c.handleSchema)
		r.Get("/{id}", c.handleGet)
		r.Put("/{id}", c.handleUpdate)
		r.Patch("/{id}", c.handleUpdate)
		r.Delete("/{id}", c.handleDelete)
	})

	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "http"
}

// Handler returns the HTTP handler.
func (c *Channel) Handler() http.Handler {
	return c.router
}

// resourceSummary is one dashboard entry.
type resourceSummary struct {
	Slug     string `json:"slug"`
	Label    string `json:"label"`
	Singular string `json:"singular"`
	Model    string `json:"model"`
}

// handleDashboard handles GET / and lists the registered resources.
func (c *Channel) handleDashboard(w http.ResponseWriter, r *http.Request) {
	list := c.registry.List()
	out := make([]resourceSummary, 0, len(list))
	for _, res := range list {
		out = append(out, resourceSummary{
			Slug:     res.Slug(),
			Label:    res.Label(),
			Singular: res.Singular(),
			Model:    res.Model(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": out})
}

// handleSchema handles GET /{slug}/_schema.
func (c *Channel) handleSchema(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model":    res.Model(),
		"slug":     res.Slug(),
		"label":    res.Label(),
		"singular": res.Singular(),
		"idKind":   res.IDKind(),
		"form":     res.Form(),
		"editForm": res.EditForm(),
		"table":    res.Table(),
	})
}

// handleList handles GET /{slug}.
func (c *Channel) handleList(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok {
		return
	}

	rows, err := c.runtime.List(r.Context(), res)
	if err != nil {
		c.logger.Error().Err(err).Str("resource", res.Slug()).Msg("list failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []record.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"columns": res.Table().VisibleColumns(),
		"records": rows,
	})
}

// handleGet handles GET /{slug}/{id}.
func (c *Channel) handleGet(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok {
		return
	}

	rec, err := c.runtime.Get(r.Context(), res, chi.URLParam(r, "id"))
	if err != nil {
		c.logger.Error().Err(err).Str("resource", res.Slug()).Msg("get failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, errRecordNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleCreate handles POST /{slug}.
func (c *Channel) handleCreate(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok {
		return
	}

	data, err := decodeRecord(w, r)
	if err != nil {
		writeResult(w, http.StatusBadRequest, runtime.FailErr[record.Record](err))
		return
	}

	result := c.runtime.Create(r.Context(), res, data)
	writeResult(w, statusFor(result, http.StatusCreated), result)
}

// handleUpdate handles PUT and PATCH /{slug}/{id}.
func (c *Channel) handleUpdate(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok {
		return
	}

	data, err := decodeRecord(w, r)
	if err != nil {
		writeResult(w, http.StatusBadRequest, runtime.FailErr[record.Record](err))
		return
	}

	result := c.runtime.Update(r.Context(), res, chi.URLParam(r, "id"), data)
	writeResult(w, statusFor(result, http.StatusOK), result)
}

// handleDelete handles DELETE /{slug}/{id}.
func (c *Channel) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, ok := c.resource(w, r)
	if !ok {
		return
	}

	result := c.runtime.Delete(r.Context(), res, chi.URLParam(r, "id"))
	writeResult(w, statusFor(result, http.StatusOK), result)
}

var errRecordNotFound = errors.New("record not found")

// resource resolves the {slug} parameter, writing a 404 when unknown.
func (c *Channel) resource(w http.ResponseWriter, r *http.Request) (*resource.Resource, bool) {
	slug := chi.URLParam(r, "slug")
	res, ok := c.registry.Get(slug)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown resource %q", slug))
		return nil, false
	}
	return res, true
}

func statusFor(result runtime.Result[record.Record], success int) int {
	if result.Success {
		return success
	}
	return http.StatusUnprocessableEntity
}
