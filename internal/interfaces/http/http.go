package http

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/progress-engine/internal/dashboard"
	"github.com/pot-code/progress-engine/internal/domain"
	infra "github.com/pot-code/progress-engine/internal/infrastructure"
	"github.com/pot-code/progress-engine/internal/infrastructure/auth"
	"github.com/pot-code/progress-engine/internal/infrastructure/driver"
	"github.com/pot-code/progress-engine/internal/infrastructure/validate"
	"github.com/pot-code/progress-engine/internal/interfaces/http/middleware"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

const tokenBlacklistPrefix = "token:blacklist:"

type endpoint struct {
	apiVersion  string
	middlewares []echo.MiddlewareFunc
	groups      []*apiGroup
}

type apiGroup struct {
	prefix      string
	middlewares []echo.MiddlewareFunc
	routes      []*route
}

type route struct {
	method      string
	path        string
	handler     echo.HandlerFunc
	middlewares []echo.MiddlewareFunc
}

// Dependencies use cases and stores served over http
type Dependencies struct {
	Conn             driver.ITransactionalDB // nil when running on the memory driver
	KV               driver.KeyValueDB
	Catalog          domain.CatalogGateway
	CatalogCache     CourseInvalidator
	LessonUseCase    domain.LessonUseCase
	CourseUseCase    domain.CourseUseCase
	DashboardUseCase dashboard.ContinueLearningUseCase
}

// NewApp create the echo app with every route registered
func NewApp(deps *Dependencies, option *infra.AppConfig, logger *zap.Logger) *echo.Echo {
	app := echo.New()
	app.HideBanner = true
	jwtUtil := auth.NewJWTUtil(option.Security.JWTMethod,
		option.Security.JWTSecret,
		option.Security.TokenName,
		option.SessionTimeout)
	validator := validate.NewValidator()
	websocket := infra.NewWebsocket()
	jwtMiddleware := middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
		InBlackList: func(c echo.Context, token string) (bool, error) {
			return deps.KV.Exists(c.Request().Context(), tokenBlacklistPrefix+token)
		},
	})
	refreshMiddleware := middleware.RefreshToken(jwtUtil, &middleware.RefreshTokenOption{
		Threshold: option.SessionRefresh,
	})

	registerLivenessProbe(app, deps.Conn, deps.KV)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)
	}
	app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
		Skipper: func(e echo.Context) bool {
			if strings.HasPrefix(e.Request().RequestURI, "/healthz") {
				return true
			}
			return false
		},
	}))
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				code, body := errorResponse(err, traceID)
				c.JSON(code, body)
				if code >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
					logger.Error(err.Error(), zap.String("trace.id", traceID))
				}
			},
		},
	))
	app.Use(middleware.PanicHandling(&middleware.PanicHandlingOption{Logger: logger}))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
	}))

	ProgressHandler := NewProgressHandler(deps.LessonUseCase, deps.CourseUseCase, jwtUtil, validator)
	DashboardHandler := NewDashboardHandler(deps.DashboardUseCase, jwtUtil)
	PlaybackHandler := NewPlaybackHandler(deps.LessonUseCase, deps.Catalog, websocket, jwtUtil, validator)
	CatalogHandler := NewCatalogHandler(deps.CatalogCache, deps.Catalog, jwtUtil)

	createEndpoint(app, v1Endpoint(
		ProgressHandler,
		DashboardHandler,
		PlaybackHandler,
		CatalogHandler,
		jwtMiddleware, refreshMiddleware, echo_middleware.RequestID(), middleware.SetTraceLogger(logger),
		middleware.CatalogScope(deps.Catalog),
	))
	return app
}

// Serve create http transport server, blocks until ctx is cancelled or the server fails
func Serve(ctx context.Context, app *echo.Echo, option *infra.AppConfig, logger *zap.Logger) error {
	printRoutes(app, logger)

	errc := make(chan error, 1)
	go func() {
		errc <- app.Start(fmt.Sprintf("%s:%d", option.Host, option.Port))
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), option.RequestTimeout+5*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func printRoutes(app *echo.Echo, logger *zap.Logger) {
	for _, route := range app.Routes() {
		if !strings.HasPrefix(route.Name, "github.com/labstack/echo") {
			name := route.Name
			trimIndex := strings.LastIndexByte(name, '/')
			logger.Debug("Registered route", zap.String("method", route.Method), zap.String("path", route.Path), zap.String("name", string(name[trimIndex+1:])))
		}
	}
}

func registerLivenessProbe(app *echo.Echo, db driver.ITransactionalDB, rdb driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		if (db == nil || db.Ping() == nil) && rdb.Ping() == nil {
			c.NoContent(http.StatusOK)
		} else {
			c.NoContent(http.StatusServiceUnavailable)
		}
		return nil
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}

func createEndpoint(app *echo.Echo, def *endpoint) {
	type RESTMethod func(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route

	var root *echo.Group
	if strings.HasPrefix(def.apiVersion, "/") {
		root = app.Group(def.apiVersion, def.middlewares...)
	} else {
		root = app.Group("/"+def.apiVersion, def.middlewares...)
	}

	for _, group := range def.groups {
		echoGroup := root.Group(group.prefix, group.middlewares...)
		for _, api := range group.routes {
			var method RESTMethod
			switch api.method {
			case "GET":
				method = echoGroup.GET
			case "POST":
				method = echoGroup.POST
			case "PUT":
				method = echoGroup.PUT
			case "DELETE":
				method = echoGroup.DELETE
			default:
				panic(fmt.Errorf("createEndpoint: unknown method %s", api.method))
			}
			method(api.path, api.handler, api.middlewares...)
		}
	}
}
