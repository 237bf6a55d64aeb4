// routes.go - Route registration helpers
package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medreport/viewer/internal/web"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions   SessionStore
	Uploads    Uploader
	Files      FileLister
	Logger     zerolog.Logger
	CookieName string
	SessionTTL time.Duration
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Page   PageHandler
	Report ReportHandler
	Health HealthHandler
	Feed   StateFeedHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	h := NewHandler(deps.Uploads, deps.Logger)
	return &Handlers{
		Page:   h,
		Report: h,
		Health: NewHealthHandler(deps.Version, deps.Sessions, deps.Files),
		Feed:   NewWebSocketHandler(h),
	}
}

// RegisterRoutes registers the page, API and static routes with the Echo instance
func RegisterRoutes(e *echo.Echo, deps *Dependencies, handlers *Handlers) error {
	e.GET("/api/health", handlers.Health.HandleHealth)

	if err := web.RegisterStaticRoutes(e); err != nil {
		return err
	}

	withSession := SessionCookie(deps.Sessions, deps.CookieName, deps.SessionTTL)

	e.GET("/", handlers.Page.HandleIndex, withSession)
	e.POST("/upload", handlers.Page.HandleUploadForm, withSession)

	apiGroup := e.Group("/api", withSession)
	apiGroup.POST("/file", handlers.Report.HandleSelectFile)
	apiGroup.POST("/submit", handlers.Report.HandleSubmit)
	apiGroup.GET("/state", handlers.Report.HandleState)
	apiGroup.GET("/views", handlers.Report.HandleViews)
	apiGroup.GET("/views/msgpack", handlers.Report.HandleViewsMsgpack)
	apiGroup.GET("/ws", handlers.Feed.HandleWebSocket)

	return nil
}

// MiddlewareOptions selects the optional middleware.
type MiddlewareOptions struct {
	BodyLimit      string
	EnableCORS     bool
	AllowOrigins   []string
	EnableGzip     bool
	GzipLevel      int
	RequestLogging bool
	ExposeErrors   bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, logger zerolog.Logger, opts MiddlewareOptions) error {
	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}
	e.Renderer = renderer
	e.HTTPErrorHandler = NewErrorHandler(logger, opts.ExposeErrors)

	e.Use(middleware.RequestID())
	if opts.RequestLogging {
		e.Use(RequestLogger(logger))
	}
	e.Use(Recovery(logger))

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}
	if opts.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     opts.AllowOrigins,
			AllowCredentials: true,
		}))
	}
	if opts.EnableGzip {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: opts.GzipLevel,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/api/ws"
			},
		}))
	}
	return nil
}
