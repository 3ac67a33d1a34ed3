package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	DocumentsProcessed metric.Int64Counter
	PipelineDuration   metric.Float64Histogram
	ChunksCreated      metric.Int64Counter
	EmbeddingDuration  metric.Float64Histogram
	ProcessingConflict metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("knowledge-base-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentsProcessed, err := meter.Int64Counter(
		"ingest.documents.processed",
		metric.WithDescription("Documents that reached a terminal state"),
	)
	if err != nil {
		return nil, err
	}

	pipelineDuration, err := meter.Float64Histogram(
		"ingest.pipeline.duration",
		metric.WithDescription("Full pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksCreated, err := meter.Int64Counter(
		"ingest.chunks.created",
		metric.WithDescription("Chunks produced by the chunker"),
	)
	if err != nil {
		return nil, err
	}

	embeddingDuration, err := meter.Float64Histogram(
		"ingest.embedding.duration",
		metric.WithDescription("Embedding provider call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	processingConflict, err := meter.Int64Counter(
		"ingest.processing.conflicts",
		metric.WithDescription("Process invocations rejected by the per-document guard"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		DocumentsProcessed: documentsProcessed,
		PipelineDuration:   pipelineDuration,
		ChunksCreated:      chunksCreated,
		EmbeddingDuration:  embeddingDuration,
		ProcessingConflict: processingConflict,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordPipelineRun records the outcome and duration of one pipeline run
func (m *Metrics) RecordPipelineRun(sourceType, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("document.source_type", sourceType),
		attribute.String("document.status", status),
	}

	m.DocumentsProcessed.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.PipelineDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordChunks records chunker output size
func (m *Metrics) RecordChunks(sourceType string, count int64) {
	m.ChunksCreated.Add(context.Background(), count, metric.WithAttributes(
		attribute.String("document.source_type", sourceType),
	))
}

// RecordEmbedding records embedding call duration
func (m *Metrics) RecordEmbedding(providerID int, duration float64) {
	m.EmbeddingDuration.Record(context.Background(), duration, metric.WithAttributes(
		attribute.Int("embedding.provider_id", providerID),
	))
}

// RecordConflict counts a rejected concurrent process invocation
func (m *Metrics) RecordConflict() {
	m.ProcessingConflict.Add(context.Background(), 1)
}
