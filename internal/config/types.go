// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

// Package config provides the auditor's configuration schema and validation.
package config

// Config represents the root structure of the YAML configuration file.
// This struct is used to unmarshal configuration data from Viper.
type Config struct {
	Ledger    Ledger    `mapstructure:"ledger"    mask:"struct"`
	Audit     Audit     `mapstructure:"audit"`
	API       API       `mapstructure:"api"       mask:"struct"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	// DataDir is the directory for persisted state (session keys, bundles).
	DataDir string `mapstructure:"data_dir" validate:"required"`
	// Debug enable or disable debug option set from CLI.
	Debug bool `mapstructure:"debug"`
}

// Ledger holds connection settings for the external ledger service.
type Ledger struct {
	// URL is the NATS endpoint of the ledger service.
	URL string `mapstructure:"url"     validate:"required"`
	// Account is the auditor's ledger account identifier. Assignment events
	// are delivered on a per-account subject.
	Account string `mapstructure:"account" validate:"required"`
	// Credential is the account credential presented to the ledger service.
	Credential string `mapstructure:"credential" mask:"password"`
	// Timeout for ledger request/reply calls (e.g. "10s").
	Timeout string `mapstructure:"timeout" validate:"omitempty,duration"`
	// Bucket is the KV bucket name for audit records.
	Bucket string `mapstructure:"bucket"`
}

// Audit holds per-audit verification settings.
type Audit struct {
	// Image is the instance image identifier requested at redeem time.
	Image string `mapstructure:"image" validate:"required"`
	// BundlePath is the content bundle uploaded to the instance before
	// the probe script runs.
	BundlePath string `mapstructure:"bundle_path"`
	// ScriptPath is an optional JSON file of scripted probe cases. When
	// empty a built-in liveness script is used.
	ScriptPath string `mapstructure:"script_path"`
	// ProbeTimeout is the per-request probe timeout (default "5s").
	ProbeTimeout string `mapstructure:"probe_timeout" validate:"omitempty,duration"`
}

// API configuration settings for the read-only status API.
type API struct {
	// Enabled enables or disables the HTTP status API.
	Enabled bool `mapstructure:"enabled"`
	// Port the API server binds to.
	Port int `mapstructure:"port" validate:"omitempty,gte=1,lte=65535"`
	// SigningKey is the HMAC key for API bearer tokens.
	SigningKey string `mapstructure:"signing_key" mask:"password"`
}

// Telemetry configuration settings.
type Telemetry struct {
	Tracing TracingConfig `mapstructure:"tracing,omitempty"`
}

// TracingConfig configuration settings for distributed tracing.
type TracingConfig struct {
	// Enabled enables or disables tracing.
	Enabled bool `mapstructure:"enabled"`
	// Exporter selects the trace exporter: "stdout" or "otlp".
	Exporter string `mapstructure:"exporter"`
	// OTLPEndpoint is the gRPC endpoint for the OTLP exporter (e.g., "localhost:4317").
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}
