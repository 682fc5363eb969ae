// Package otelmetric counts querycache events with OpenTelemetry instruments.
//
// Keys are never recorded; only the namespace and small enums (reason, op)
// become attributes so cardinality stays bounded.
package otelmetric

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/querycache"
)

const meterName = "github.com/unkn0wn-root/querycache"

// Hooks holds the querycache metric instruments.
type Hooks struct {
	attrs metric.MeasurementOption

	lookups       metric.Int64Counter // result=hit|miss
	selfHeals     metric.Int64Counter // reason
	decodeErrors  metric.Int64Counter
	factoryErrors metric.Int64Counter
	setRejected   metric.Int64Counter
	staleWrites   metric.Int64Counter
	backendErrors metric.Int64Counter // component, op
}

var _ querycache.Hooks = (*Hooks)(nil)

var (
	hitAttr  = metric.WithAttributes(attribute.String("result", "hit"))
	missAttr = metric.WithAttributes(attribute.String("result", "miss"))
)

// New creates the instruments on mp (nil => the global provider). Every
// measurement carries namespace=ns.
func New(mp metric.MeterProvider, ns string) (*Hooks, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	h := &Hooks{attrs: metric.WithAttributes(attribute.String("namespace", ns))}
	var err error

	h.lookups, err = meter.Int64Counter("querycache.lookups",
		metric.WithDescription("Cache lookups by result"))
	if err != nil {
		return nil, err
	}

	h.selfHeals, err = meter.Int64Counter("querycache.self_heals",
		metric.WithDescription("Entries deleted on read (expired or stale generation)"))
	if err != nil {
		return nil, err
	}

	h.decodeErrors, err = meter.Int64Counter("querycache.decode_errors",
		metric.WithDescription("Stored entries that could not be decoded"))
	if err != nil {
		return nil, err
	}

	h.factoryErrors, err = meter.Int64Counter("querycache.factory_errors",
		metric.WithDescription("Factory calls that returned an error"))
	if err != nil {
		return nil, err
	}

	h.setRejected, err = meter.Int64Counter("querycache.set_rejected",
		metric.WithDescription("Writes dropped by the provider"))
	if err != nil {
		return nil, err
	}

	h.staleWrites, err = meter.Int64Counter("querycache.stale_writes_skipped",
		metric.WithDescription("Writes skipped because the key was removed meanwhile"))
	if err != nil {
		return nil, err
	}

	h.backendErrors, err = meter.Int64Counter("querycache.backend_errors",
		metric.WithDescription("Tolerated gen store and tag index failures"))
	if err != nil {
		return nil, err
	}

	return h, nil
}

func (h *Hooks) Hit(string)  { h.lookups.Add(context.Background(), 1, h.attrs, hitAttr) }
func (h *Hooks) Miss(string) { h.lookups.Add(context.Background(), 1, h.attrs, missAttr) }

func (h *Hooks) SelfHeal(_, reason string) {
	h.selfHeals.Add(context.Background(), 1, h.attrs,
		metric.WithAttributes(attribute.String("reason", reason)))
}

func (h *Hooks) DecodeError(string, error)  { h.decodeErrors.Add(context.Background(), 1, h.attrs) }
func (h *Hooks) FactoryError(string, error) { h.factoryErrors.Add(context.Background(), 1, h.attrs) }
func (h *Hooks) ProviderSetRejected(string) { h.setRejected.Add(context.Background(), 1, h.attrs) }
func (h *Hooks) StaleWriteSkipped(string)   { h.staleWrites.Add(context.Background(), 1, h.attrs) }

func (h *Hooks) GenStoreError(op string, _ error) { h.backendError("genstore", op) }
func (h *Hooks) TagIndexError(op string, _ error) { h.backendError("tagindex", op) }

func (h *Hooks) backendError(component, op string) {
	h.backendErrors.Add(context.Background(), 1, h.attrs,
		metric.WithAttributes(
			attribute.String("component", component),
			attribute.String("op", op),
		))
}
