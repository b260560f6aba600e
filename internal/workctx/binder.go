// Package workctx binds the active work-order selection to the
// conversation context.
package workctx

import (
	"fmt"
	"log/slog"
	"sync"

	"fieldvoice/internal/domain"
	"fieldvoice/internal/procedure"
)

// Binder presents the current {model, step} selection to the
// conversation controller. It has no failure modes: with no selection
// the context fields are simply absent, and the controller passes them
// through unchanged.
type Binder struct {
	mu     sync.RWMutex
	order  *domain.WorkOrder
	model  string
	step   string
	guides *procedure.Catalog
	logger *slog.Logger
}

type Config struct {
	Guides *procedure.Catalog // optional; enables step validation
	Logger *slog.Logger
}

func NewBinder(cfg Config) *Binder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Binder{
		guides: cfg.Guides,
		logger: cfg.Logger,
	}
}

// Context returns the job context for the next exchange.
func (b *Binder) Context() domain.JobContext {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return domain.JobContext{Model: b.model, Step: b.step}
}

// WorkOrderID returns the active work order's ID, or "" when none.
func (b *Binder) WorkOrderID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.order == nil {
		return ""
	}
	return b.order.ID
}

// WorkOrder returns the active work order, or nil.
func (b *Binder) WorkOrder() *domain.WorkOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.order
}

// SetWorkOrder selects a work order, adopting its equipment model and
// clearing any step from the previous job. A nil order clears the
// selection entirely.
func (b *Binder) SetWorkOrder(order *domain.WorkOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = order
	b.step = ""
	if order == nil {
		b.model = ""
		return
	}
	b.model = order.Model
	b.logger.Info("work order selected", "id", order.ID, "model", order.Model)
}

// SetModel overrides the equipment model independent of the work
// order (e.g. the job sheet was wrong about the installed unit).
func (b *Binder) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// SetStep sets the current procedural step label. When a guide exists
// for the active model the label must be one of its steps; models
// without a guide accept free-form labels.
func (b *Binder) SetStep(label string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if label != "" && b.guides != nil && !b.guides.HasStep(b.model, label) {
		return fmt.Errorf("unknown step %q for model %s", label, b.model)
	}
	b.step = label
	return nil
}

// StepLabels lists the guide steps for the active model, or nil when
// the model has no guide.
func (b *Binder) StepLabels() []string {
	b.mu.RLock()
	model := b.model
	b.mu.RUnlock()
	if b.guides == nil {
		return nil
	}
	return b.guides.StepLabels(model)
}
