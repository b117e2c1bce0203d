package otelhelper

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ErrorClassKey = "crmflow.error.class"

	// ErrorClassInternal is recorded for errors that do not name their class.
	ErrorClassInternal = "internal"
)

// ClassifiedError is implemented by errors that report which part of a
// workflow run failed, such as an action or the trigger lookup.
type ClassifiedError interface {
	error
	ErrorClass() string
}

// ErrorClass returns the class of the first ClassifiedError in err's chain.
func ErrorClass(err error) string {
	var classified ClassifiedError
	if errors.As(err, &classified) {
		return classified.ErrorClass()
	}

	return ErrorClassInternal
}

// SetError marks the span as failed, tags it with the error class and records
// err on the span's exception event with the given attributes.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attribute.String(ErrorClassKey, ErrorClass(err)))
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}
