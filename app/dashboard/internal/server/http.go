package server

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/service"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/usecase"
)

const (
	OperationLogin         = "/dashboard.v1.Dashboard/Login"
	OperationListTools     = "/dashboard.v1.Dashboard/ListTools"
	OperationRunTool       = "/dashboard.v1.Dashboard/RunTool"
	OperationListArtifacts = "/dashboard.v1.Dashboard/ListArtifacts"
	OperationGetArtifact   = "/dashboard.v1.Dashboard/GetArtifact"
)

func NewHTTPServer(c *conf.Server, s *service.DashboardService, uc *usecase.UserUseCase, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			Auth(uc),
		),
	}
	if c != nil && c.Http != nil {
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != "" {
			if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
				opts = append(opts, http.Timeout(d))
			} else {
				log.NewHelper(logger).Warnf("invalid server.http.timeout %q: %v", c.Http.Timeout, err)
			}
		}
	}

	srv := http.NewServer(opts...)
	registerDashboardHTTPServer(srv, s)
	return srv
}

// Auth 校验 Bearer 令牌并把会话放入 context，登录接口除外
func Auth(uc *usecase.UserUseCase) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return nil, errors.Unauthorized("TOKEN_MISSING", "missing transport")
			}
			if tr.Operation() == OperationLogin {
				return handler(ctx, req)
			}
			sess, err := uc.Authenticate(ctx, bearerToken(tr.RequestHeader().Get("Authorization")))
			if err != nil {
				return nil, err
			}
			return handler(usecase.NewSessionContext(ctx, sess), req)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func registerDashboardHTTPServer(srv *http.Server, s *service.DashboardService) {
	r := srv.Route("/")
	r.POST("/api/login", loginHandler(s))
	r.GET("/api/tools", listToolsHandler(s))
	r.POST("/api/tools/{name}/run", runToolHandler(s))
	r.GET("/api/artifacts", listArtifactsHandler(s))
	r.GET("/api/artifacts/{name}", getArtifactHandler(s))
}

func loginHandler(s *service.DashboardService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.LoginRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationLogin)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.Login(ctx, req.(*service.LoginRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func listToolsHandler(s *service.DashboardService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationListTools)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.ListTools(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func runToolHandler(s *service.DashboardService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.RunToolRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		in.Name = ctx.Vars().Get("name")
		http.SetOperation(ctx, OperationRunTool)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.RunTool(ctx, req.(*service.RunToolRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func listArtifactsHandler(s *service.DashboardService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationListArtifacts)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.ListArtifacts(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

// getArtifactHandler 直接以文件流返回产物
func getArtifactHandler(s *service.DashboardService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationGetArtifact)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.GetArtifact(ctx, req.(string))
		})
		out, err := h(ctx, ctx.Vars().Get("name"))
		if err != nil {
			return err
		}
		a := out.(*domain.Artifact)
		w := ctx.Response()
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
		nethttp.ServeFile(w, ctx.Request(), a.Path)
		return nil
	}
}
