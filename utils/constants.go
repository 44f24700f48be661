package utils

import (
	"time"
)

// Session constants
const (
	// SessionIdleTimeout is the default idle time after which a session is evicted
	SessionIdleTimeout = 2 * time.Hour

	// SessionLocalsKey is the fiber.Ctx locals key holding the authenticated session id
	SessionLocalsKey = "session_id"
)

// Review constants
const (
	// AnalyticsCacheTTL bounds how long a cached filter or aggregate result lives
	AnalyticsCacheTTL = 10 * time.Minute

	// RequestTimeout is the default handler context timeout
	RequestTimeout = 30 * time.Second

	// UploadTimeout is the handler context timeout of table uploads and exports
	UploadTimeout = 2 * time.Minute
)
