package domain

import "time"

// Inference defaults
const (
	// DefaultModelName is selected when neither flag nor config names a model
	DefaultModelName = "gemma3:12b"
	// DefaultEndpoint is the local Ollama server
	DefaultEndpoint = "http://localhost:11434"
	// DefaultTemperature is the sampling temperature for generation
	DefaultTemperature = 0.7
	// DefaultTopP is sent with every generation request
	DefaultTopP = 0.9
	// DefaultMaxTokens caps generated tokens per request
	DefaultMaxTokens = 2048
)

// Timeout and duration constants
const (
	// DefaultRequestTimeout bounds non-streamed requests
	DefaultRequestTimeout = 120 * time.Second
	// DefaultPingTimeout bounds the reachability check
	DefaultPingTimeout = 5 * time.Second
)

// History constants
const (
	// DefaultHistoryWindow is the number of prior exchanges replayed into prompts
	DefaultHistoryWindow = 3
)

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
