// Package otel wires OpenTelemetry tracing into aerocheck commands.
// Disabled unless --otel is given.
package otel

import (
	"errors"
)

// Protocol constants for OTLP exporters.
const (
	ProtocolHTTP = "otlphttp"
	ProtocolGRPC = "otlpgrpc"
)

// Config holds OTel initialization options.
type Config struct {
	Enabled     bool
	Endpoint    string  // e.g., "http://localhost:4318" or "localhost:4317"
	Protocol    string  // "otlphttp" or "otlpgrpc"
	Insecure    bool    // allow insecure connections (no TLS)
	ServiceName string  // default: "aerocheck"
	SampleRatio float64 // 0..1, default: 1.0
}

// DefaultConfig returns a Config with safe defaults (OTel disabled).
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		Protocol:    ProtocolHTTP,
		ServiceName: "aerocheck",
		SampleRatio: 1.0,
	}
}

// Validate checks the configuration; a disabled config is always valid
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		return errors.New("otel: protocol must be 'otlphttp' or 'otlpgrpc'")
	}

	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.New("otel: sample-ratio must be between 0 and 1")
	}

	return nil
}
