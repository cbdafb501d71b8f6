package config

import "time"

// Application constants
const (
	AppName = "husholdning"

	// Rate limiting of the HTTP API
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Network timeouts
	DefaultHTTPTimeout  = 15 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File paths, relative to the working directory
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"
	DefaultDiagramDir = "data/diagrams"
	DefaultExportDir  = "data/exports"
	DefaultLogFile    = "logs/husholdning.log"

	// Workflow timeouts
	DefaultOperationTimeout = 30 * time.Second
	DefaultRunTimeout       = 2 * time.Minute

	// ResultCacheDuration is how long finished results stay retrievable
	ResultCacheDuration = time.Hour
)
