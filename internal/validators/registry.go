package validators

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sidebyside/harness/internal/repomap"
)

var (
	// ErrDuplicateValidator indicates a short ID or metric registered twice.
	ErrDuplicateValidator = errors.New("validator already registered")

	// ErrBadRegistration indicates a registration with missing or invalid
	// fields.
	ErrBadRegistration = errors.New("invalid validator registration")

	// ErrInconsistentRegistry indicates the registry and the repo mapping
	// disagree about which metrics exist.
	ErrInconsistentRegistry = errors.New("registry inconsistent with mapping")
)

// Registration ties a validator short ID to its canonical metric, category,
// and implementation.
type Registration struct {
	ShortID  string
	Metric   string
	Category string

	impl Validator
}

// Registry maps validator short IDs to registrations. The short-ID-to-metric
// relation is bijective; Register enforces it so lookups can translate in
// both directions.
type Registry struct {
	byID     map[string]Registration
	byMetric map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]Registration),
		byMetric: make(map[string]string),
	}
}

// Register adds a validator under its short ID and canonical metric. External
// validators run through the batched CLI and register without an
// implementation; every other category requires one.
func (r *Registry) Register(shortID, metric, category string, impl Validator) error {
	if shortID == "" || metric == "" {
		return fmt.Errorf("%w: short ID and metric are required", ErrBadRegistration)
	}

	switch category {
	case CategoryAutomated, CategoryAgent, CategoryExternal:
	default:
		return fmt.Errorf("%w: unknown category %q", ErrBadRegistration, category)
	}

	if impl == nil && category != CategoryExternal {
		return fmt.Errorf("%w: %s validator %q has no implementation", ErrBadRegistration, category, shortID)
	}

	_, taken := r.byID[shortID]
	if taken {
		return fmt.Errorf("%w: short ID %q", ErrDuplicateValidator, shortID)
	}

	_, taken = r.byMetric[metric]
	if taken {
		return fmt.Errorf("%w: metric %q", ErrDuplicateValidator, metric)
	}

	r.byID[shortID] = Registration{ShortID: shortID, Metric: metric, Category: category, impl: impl}
	r.byMetric[metric] = shortID

	return nil
}

// Lookup returns the registration for a short ID.
func (r *Registry) Lookup(shortID string) (Registration, bool) {
	reg, ok := r.byID[shortID]

	return reg, ok
}

// NormalizeMetric maps a short ID or a canonical metric name to the canonical
// metric name. Unknown names return false; callers report them as findings
// rather than failing.
func (r *Registry) NormalizeMetric(name string) (string, bool) {
	reg, ok := r.byID[name]
	if ok {
		return reg.Metric, true
	}

	_, ok = r.byMetric[name]
	if ok {
		return name, true
	}

	return "", false
}

// ValidatorForMetric returns the short ID registered for a canonical metric.
func (r *Registry) ValidatorForMetric(metric string) (string, bool) {
	id, ok := r.byMetric[metric]

	return id, ok
}

// IDs returns all registered short IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Metrics returns all registered canonical metrics in sorted order.
func (r *Registry) Metrics() []string {
	metrics := make([]string, 0, len(r.byMetric))
	for metric := range r.byMetric {
		metrics = append(metrics, metric)
	}

	slices.Sort(metrics)

	return metrics
}

// CheckConsistency verifies that the registry and the repo mapping declare
// the same metric set. A metric known to only one side would either never be
// refreshed or never be scored.
func (r *Registry) CheckConsistency(mapping *repomap.Mapping) error {
	for _, metric := range r.Metrics() {
		_, ok := mapping.MetricDeps[metric]
		if !ok {
			return fmt.Errorf("%w: metric %q has no repo dependencies", ErrInconsistentRegistry, metric)
		}
	}

	for _, metric := range mapping.Metrics() {
		_, ok := r.byMetric[metric]
		if !ok {
			return fmt.Errorf("%w: metric %q has no validator", ErrInconsistentRegistry, metric)
		}
	}

	return nil
}
