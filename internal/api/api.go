// internal/api/api.go
package api

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/siglab/siglab-go/internal/conf"
	"github.com/siglab/siglab-go/internal/doppler"
	"github.com/siglab/siglab-go/internal/dsp"
	"github.com/siglab/siglab-go/internal/ecg"
	"github.com/siglab/siglab-go/internal/logging"
	"github.com/siglab/siglab-go/internal/observability"
	"github.com/siglab/siglab-go/internal/session"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	logger         *log.Logger
	apiLogger      *slog.Logger   // Structured logger for API operations
	apiLevelVar    *slog.LevelVar // Dynamic level control
	apiLoggerClose func() error   // Function to close the log file
	metrics        *observability.Metrics
	startTime      time.Time

	// pipeline carries the audio tunables from settings so config
	// edits take effect without touching the dsp package.
	pipeline dsp.Pipeline

	// Uploaded datasets live in TTL session stores keyed by X-Session-ID.
	ecgSessions *session.Store
	eegSessions *session.Store

	dopplerAnalyzer *doppler.Analyzer
	ecgClassifier   *ecg.Classifier // nil when the model is unavailable
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithECGClassifier injects a loaded rhythm classifier. Without it the
// ECG classify endpoint reports the capability as unavailable.
func WithECGClassifier(clf *ecg.Classifier) Option {
	return func(c *Controller) {
		c.ecgClassifier = clf
	}
}

// New creates a new API controller and registers its routes on e.
func New(e *echo.Echo, settings *conf.Settings, metrics *observability.Metrics,
	logger *log.Logger, opts ...Option) (*Controller, error) {
	return NewWithOptions(e, settings, metrics, logger, true, opts...)
}

// NewWithOptions creates a new API controller with optional route
// initialization. Set initializeRoutes to false in tests that register
// handlers directly.
func NewWithOptions(e *echo.Echo, settings *conf.Settings, metrics *observability.Metrics,
	logger *log.Logger, initializeRoutes bool, opts ...Option) (*Controller, error) {

	if logger == nil {
		logger = log.Default()
	}
	if settings == nil {
		return nil, fmt.Errorf("settings must not be nil")
	}

	ttl := time.Duration(settings.Session.TTLMinutes) * time.Minute
	cleanup := time.Duration(settings.Session.CleanupMinutes) * time.Minute

	c := &Controller{
		Echo:            e,
		Settings:        settings,
		logger:          logger,
		metrics:         metrics,
		startTime:       time.Now(),
		ecgSessions:     session.NewStore(ttl, cleanup),
		eegSessions:     session.NewStore(ttl, cleanup),
		dopplerAnalyzer: doppler.NewAnalyzer(),
		pipeline: dsp.Pipeline{
			AliasingThreshold: settings.Audio.AliasingThreshold,
			MinPlaybackRate:   settings.Audio.MinPlaybackRate,
			TargetRMS:         settings.Audio.TargetRMS,
			SoftClipKnee:      settings.Audio.SoftClipKnee,
		},
	}

	// Structured logger for API requests, with a disabled fallback when
	// the log file cannot be opened.
	c.apiLevelVar = new(slog.LevelVar)
	c.apiLevelVar.Set(slog.LevelInfo)
	if settings.WebServer.Debug {
		c.apiLevelVar.Set(slog.LevelDebug)
	}

	c.apiLoggerClose = func() error { return nil }
	if settings.WebServer.Log.Enabled {
		logPath := settings.WebServer.Log.Path
		if logPath == "" {
			logPath = "logs/web.log"
		}
		apiLogger, closeFunc, err := logging.NewFileLogger(logPath, "api", c.apiLevelVar)
		if err != nil {
			logger.Printf("Warning: failed to initialize API structured logger: %v", err)
		} else {
			c.apiLogger = apiLogger
			c.apiLoggerClose = closeFunc
		}
	}
	if c.apiLogger == nil {
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: c.apiLevelVar})
		c.apiLogger = slog.New(fbHandler).With("service", "api")
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Group = e.Group("/api/v1")

	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	bodyLimit := settings.WebServer.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "64M"
	}
	c.Group.Use(middleware.BodyLimit(bodyLimit))
	c.Group.Use(c.LoggingMiddleware())

	if initializeRoutes {
		c.initRoutes()
	}

	return c, nil
}

// LoggingMiddleware creates a middleware function that logs API requests
// and records per-request metrics.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()
			elapsed := time.Since(start)

			if c.metrics != nil && c.metrics.HTTP != nil {
				c.metrics.HTTP.RecordHTTPRequest(req.Method, ctx.Path(),
					strconv.Itoa(res.Status), elapsed.Seconds())
				c.metrics.HTTP.RecordHTTPResponseSize(req.Method, ctx.Path(), res.Size)
				if err != nil || res.Status >= http.StatusInternalServerError {
					c.metrics.HTTP.RecordHTTPRequestError(req.Method, ctx.Path(), "handler")
				}
			}

			if c.apiLogger == nil {
				return err
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.Int64("latency_ms", elapsed.Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"voice routes", c.initVoiceRoutes},
		{"doppler routes", c.initDopplerRoutes},
		{"drone routes", c.initDroneRoutes},
		{"ecg routes", c.initECGRoutes},
		{"eeg routes", c.initEEGRoutes},
		{"sar routes", c.initSARRoutes},
	}

	for _, initializer := range routeInitializers {
		c.Debug("Initializing %s...", initializer.name)
		initializer.fn()
	}

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)

	response := map[string]any{
		"status":     "healthy",
		"version":    c.Settings.Version,
		"build_date": c.Settings.BuildDate,
		"timestamp":  time.Now().Format(time.RFC3339),
		"uptime":     uptime.String(),
		"services": map[string]any{
			"voice":   true,
			"doppler": true,
			"drone":   true,
			"ecg":     true,
			"eeg":     true,
			"sar":     false,
		},
	}
	if c.Settings.WebServer.Debug {
		response["environment"] = "development"
	} else {
		response["environment"] = "production"
	}

	return ctx.JSON(http.StatusOK, response)
}

// Shutdown performs cleanup of all resources used by the API controller
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Error closing API log file: %v", err)
		}
	}
	c.Debug("API Controller shutting down")
}

// ErrorResponse is the error payload returned by every handler.
type ErrorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	correlationID := generateCorrelationID()

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}

	return &ErrorResponse{
		Success:       false,
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// generateCorrelationID creates a unique identifier for error tracking
// using cryptographic randomness.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	c.logger.Printf("API Error [%s] from %s: %s: %v",
		errorResp.CorrelationID, ctx.RealIP(), message, err)

	if c.apiLogger != nil {
		var errorStr string
		if err != nil {
			errorStr = err.Error()
		} else {
			errorStr = message
		}
		c.apiLogger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", message,
			"error", errorStr,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(code, errorResp)
}

// Debug logs debug messages when debug mode is enabled
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.WebServer.Debug {
		msg := fmt.Sprintf(format, v...)
		c.logger.Printf("[DEBUG] %s", msg)
		if c.apiLogger != nil {
			c.apiLogger.Debug(msg)
		}
	}
}

// requestSession resolves the caller's session ID from the request
// header, issuing a fresh one when absent, and echoes it back on the
// response so the client can persist it.
func (c *Controller) requestSession(ctx echo.Context) string {
	id := session.Normalize(ctx.Request().Header.Get(session.HeaderName))
	ctx.Response().Header().Set(session.HeaderName, id)
	return id
}

// readFormFile reads one uploaded multipart file into memory.
func readFormFile(ctx echo.Context, field string) (name string, data []byte, err error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = f.Close() }()

	data, err = io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}
