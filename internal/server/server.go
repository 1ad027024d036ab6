package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pankaj-raikar/taskhive/internal/access"
	admindomain "github.com/pankaj-raikar/taskhive/internal/admin/domain"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	"github.com/pankaj-raikar/taskhive/internal/auth/session"
	"github.com/pankaj-raikar/taskhive/internal/config"
	"github.com/pankaj-raikar/taskhive/internal/observability"
	obslogger "github.com/pankaj-raikar/taskhive/internal/observability/logger"
	obsmetrics "github.com/pankaj-raikar/taskhive/internal/observability/metrics"
	obstracing "github.com/pankaj-raikar/taskhive/internal/observability/tracing"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
	projectdomain "github.com/pankaj-raikar/taskhive/internal/project/domain"
	"github.com/pankaj-raikar/taskhive/internal/seed"
	tagdomain "github.com/pankaj-raikar/taskhive/internal/tag/domain"
	tododomain "github.com/pankaj-raikar/taskhive/internal/todo/domain"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	log      *zap.Logger
	cfg      *config.Config
	sessions *session.Manager
	builder  *access.Builder
	genID    *snowflake.Node

	authsvc    authdomain.Service
	usersvc    userdomain.Service
	orgsvc     orgdomain.Service
	adminsvc   admindomain.Service
	projectsvc projectdomain.Service
	todosvc    tododomain.Service
	tagsvc     tagdomain.Service
	seedsvc    *seed.Service
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Log      *zap.Logger
	Cfg      *config.Config
	Sessions *session.Manager
	Builder  *access.Builder
	GenID    *snowflake.Node

	Authsvc    authdomain.Service
	Usersvc    userdomain.Service
	Orgsvc     orgdomain.Service
	Adminsvc   admindomain.Service
	Projectsvc projectdomain.Service
	Todosvc    tododomain.Service
	Tagsvc     tagdomain.Service
	Seedsvc    *seed.Service `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		log:        p.Log.Named("server"),
		cfg:        p.Cfg,
		sessions:   p.Sessions,
		builder:    p.Builder,
		genID:      p.GenID,
		authsvc:    p.Authsvc,
		usersvc:    p.Usersvc,
		orgsvc:     p.Orgsvc,
		adminsvc:   p.Adminsvc,
		projectsvc: p.Projectsvc,
		todosvc:    p.Todosvc,
		tagsvc:     p.Tagsvc,
		seedsvc:    p.Seedsvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	s.registerAuthRoutes(v1)
	s.registerUserRoutes(v1)
	s.registerOrganizationRoutes(v1)
	s.registerAdminRoutes(v1)
	s.registerProjectRoutes(v1)
	s.registerTodoRoutes(v1)
	s.registerTagRoutes(v1)
	s.registerDevRoutes(v1)
}

// handle adapts a wrapped operation into a gin handler: bind the request,
// pull the session token from the cookie, run the operation, write JSON.
func handle[Req, Res any](s *Server, op access.Handler[Req, Res], bind func(*gin.Context) (Req, error), status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bind(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		token, _ := s.sessions.ReadToken(c)
		res, err := op(c.Request.Context(), token, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(status, res)
	}
}

// handlePaged is handle for listing operations: the page request is bound
// from the query string and passed alongside the operation arguments.
func handlePaged[Req, Res any](s *Server, op access.PaginatedHandler[Req, Res], bind func(*gin.Context) (Req, error), status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bind(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		token, _ := s.sessions.ReadToken(c)
		res, err := op(c.Request.Context(), token, req, bindPagination(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(status, res)
	}
}

func bindNothing(*gin.Context) (struct{}, error) {
	return struct{}{}, nil
}

func bindJSON[Req any](c *gin.Context) (Req, error) {
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, invalidRequestError()
	}
	return req, nil
}
