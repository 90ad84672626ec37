// Package telemetry wires OpenTelemetry tracing and metrics for daybook.
//
// Telemetry is off by default. When enabled, traces and metrics are pushed
// over OTLP (grpc or http/protobuf) to a collector:
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//
// Exporter failures degrade the instance to no-op providers instead of
// failing the command. Use TestTelemetry in tests:
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "op")
//	span.End()
//	tt.AssertSpanExists(t, "op")
package telemetry
