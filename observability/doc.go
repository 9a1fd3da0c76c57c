// Package observability provides optional OpenTelemetry metrics for the
// converter: records read, records skipped, artifacts written, write
// retries, and per-file durations.
//
// When export is disabled (the default), instruments come from the otel
// global no-op provider and cost nothing.
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("csvtohl7"), log)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("csvtohl7"))
//	metrics.AddRecordsRead(ctx, file, int64(n))
package observability
