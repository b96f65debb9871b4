package rtty

import (
	"context"

	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "github.com/doismellburning/rttymodem"

// Metrics are updated by the modem monitor, never the audio callback.
type Metrics struct {
	RxChars         metric.Int64Counter
	RxFramingErrors metric.Int64Counter
	RxOverruns      metric.Int64Counter
	RxCarrier       metric.Int64UpDownCounter
	RxLevel         metric.Float64Histogram

	TxChars       metric.Int64Counter
	TxBursts      metric.Int64Counter
	TxCancels     metric.Int64Counter
	TxKeyed       metric.Int64UpDownCounter
	BurstDuration metric.Float64Histogram
}

var burstBuckets = []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120}

var levelBuckets = []float64{1, 5, 10, 25, 50, 75, 90, 99}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	var m = mp.Meter(meterName)
	var err error
	var met = &Metrics{}

	if met.RxChars, err = m.Int64Counter("rtty.rx.chars",
		metric.WithDescription("Characters decoded."),
	); err != nil {
		return nil, err
	}
	if met.RxFramingErrors, err = m.Int64Counter("rtty.rx.framing_errors",
		metric.WithDescription("Words rejected for a bad stop bit."),
	); err != nil {
		return nil, err
	}
	if met.RxOverruns, err = m.Int64Counter("rtty.rx.overruns",
		metric.WithDescription("Decoded characters lost because nobody was reading."),
	); err != nil {
		return nil, err
	}
	if met.RxCarrier, err = m.Int64UpDownCounter("rtty.rx.carrier",
		metric.WithDescription("1 while a signal is being decoded."),
	); err != nil {
		return nil, err
	}
	if met.RxLevel, err = m.Float64Histogram("rtty.rx.level",
		metric.WithDescription("Peak input level per monitor interval."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(levelBuckets...),
	); err != nil {
		return nil, err
	}

	if met.TxChars, err = m.Int64Counter("rtty.tx.chars",
		metric.WithDescription("Characters sent."),
	); err != nil {
		return nil, err
	}
	if met.TxBursts, err = m.Int64Counter("rtty.tx.bursts",
		metric.WithDescription("Transmissions started."),
	); err != nil {
		return nil, err
	}
	if met.TxCancels, err = m.Int64Counter("rtty.tx.cancels",
		metric.WithDescription("Transmissions cancelled."),
	); err != nil {
		return nil, err
	}
	if met.TxKeyed, err = m.Int64UpDownCounter("rtty.tx.keyed",
		metric.WithDescription("1 while PTT is asserted."),
	); err != nil {
		return nil, err
	}
	if met.BurstDuration, err = m.Float64Histogram("rtty.tx.burst.duration",
		metric.WithDescription("Time PTT was held for one transmission."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(burstBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

/*------------------------------------------------------------------
 *
 * Name:	InitMetricsProvider
 *
 * Purpose:	Set up the OpenTelemetry SDK with a Prometheus exporter
 *		and make it the global meter provider.
 *
 * Returns:	Shutdown function for the provider.
 *
 * Description:	The exporter registers with the default Prometheus
 *		registry, so promhttp.Handler() serves the result.
 *
 *---------------------------------------------------------------*/

func InitMetricsProvider(serviceName, version string) (metric.MeterProvider, func(context.Context) error, error) {
	var res = resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)

	var promExp, err = promexporter.New()
	if err != nil {
		return nil, nil, err
	}

	var mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)

	return mp, mp.Shutdown, nil
}
