package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes lease lifecycle instruments.
type Metrics struct {
	contractsOpened     metric.Int64Counter
	contractsTerminated metric.Int64Counter
	invoicesCreated     metric.Int64Counter
	invoicesPaid        metric.Int64Counter
	invoicesOverdue     metric.Int64Counter
	loginAttempts       metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if log == nil {
		log = zap.NewNop()
	}
	if lc != nil {
		lc.Append(fx.StopHook(func(ctx context.Context) error {
			log.Info("shutting down meter provider")
			return provider.Shutdown(ctx)
		}))
	}
	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New registers the lease and billing counters on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "roomlease"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.contractsOpened, "roomlease_contracts_opened_total", "Contracts that became Active."},
		{&m.contractsTerminated, "roomlease_contracts_terminated_total", "Contracts moved to Terminated."},
		{&m.invoicesCreated, "roomlease_invoices_created_total", "Invoices issued."},
		{&m.invoicesPaid, "roomlease_invoices_paid_total", "Invoices settled by tenants."},
		{&m.invoicesOverdue, "roomlease_invoices_overdue_total", "Invoices flagged overdue by the sweep."},
		{&m.loginAttempts, "roomlease_login_attempts_total", "Login attempts by outcome."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

// RecordContractOpened counts new active contracts by entry point.
func (m *Metrics) RecordContractOpened(ctx context.Context, source string) {
	if m != nil {
		add(ctx, m.contractsOpened, 1, "source", source)
	}
}

func (m *Metrics) RecordContractTerminated(ctx context.Context, source string) {
	if m != nil {
		add(ctx, m.contractsTerminated, 1, "source", source)
	}
}

func (m *Metrics) RecordInvoiceCreated(ctx context.Context) {
	if m != nil {
		m.invoicesCreated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordInvoicePaid(ctx context.Context, fromStatus string) {
	if m != nil {
		add(ctx, m.invoicesPaid, 1, "from_status", fromStatus)
	}
}

// RecordInvoicesOverdue adds the number of invoices flipped by one sweep.
func (m *Metrics) RecordInvoicesOverdue(ctx context.Context, count int64) {
	if m != nil && count > 0 {
		m.invoicesOverdue.Add(ctx, count)
	}
}

func (m *Metrics) RecordLoginAttempt(ctx context.Context, outcome string) {
	if m != nil {
		add(ctx, m.loginAttempts, 1, "outcome", outcome)
	}
}

func add(ctx context.Context, counter metric.Int64Counter, n int64, key, value string) {
	attrs := FilterAttributes(attribute.String(key, strings.TrimSpace(value)))
	counter.Add(ctx, n, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"role":        {},
	"endpoint":    {},
	"status_code": {},
	"source":      {},
	"from_status": {},
	"outcome":     {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
