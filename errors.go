package main

import "fmt"

// ConfigError is returned when the exporter cannot be started with the provided options.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for option %s: %s", e.Option, e.Reason)
}

// TransportError is returned when the upstream API cannot be reached.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError keeps the raw status and body of a response that could not be decoded.
type DecodeError struct {
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode response from %s (status %d): %v", e.URL, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UpstreamShapeError is returned when a decoded response lacks a field the walk depends on.
type UpstreamShapeError struct {
	URL   string
	Field string
}

func (e *UpstreamShapeError) Error() string {
	return fmt.Sprintf("response from %s is missing %s", e.URL, e.Field)
}

type stageError struct {
	Stage string
	URL   string
	Err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *stageError) Unwrap() error {
	return e.Err
}
