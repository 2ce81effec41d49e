package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/usecase"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/tool"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginReply struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ListToolsReply struct {
	Tools []tool.Info `json:"tools"`
}

type RunToolRequest struct {
	Name   string            `json:"-"`
	Params map[string]string `json:"params"`
}

type RunToolReply struct {
	Artifact tool.Artifact `json:"artifact"`
	Username string        `json:"username"`
}

type ArtifactInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type ListArtifactsReply struct {
	Artifacts []ArtifactInfo `json:"artifacts"`
}

// DashboardService 看板接口
type DashboardService struct {
	ucUser     *usecase.UserUseCase
	ucTool     *usecase.ToolUseCase
	ucArtifact *usecase.ArtifactUseCase
	log        *log.Helper
}

func NewDashboardService(ucUser *usecase.UserUseCase, ucTool *usecase.ToolUseCase, ucArtifact *usecase.ArtifactUseCase, logger log.Logger) *DashboardService {
	return &DashboardService{
		ucUser:     ucUser,
		ucTool:     ucTool,
		ucArtifact: ucArtifact,
		log:        log.NewHelper(logger),
	}
}

func (s *DashboardService) Login(ctx context.Context, req *LoginRequest) (*LoginReply, error) {
	if req.Username == "" || req.Password == "" {
		return nil, errors.BadRequest("INVALID_ARGUMENT", "username and password are required")
	}
	token, exp, err := s.ucUser.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return &LoginReply{Token: token, Username: req.Username, ExpiresAt: exp}, nil
}

func (s *DashboardService) ListTools(ctx context.Context) (*ListToolsReply, error) {
	if _, err := session(ctx); err != nil {
		return nil, err
	}
	return &ListToolsReply{Tools: s.ucTool.List(ctx)}, nil
}

func (s *DashboardService) RunTool(ctx context.Context, req *RunToolRequest) (*RunToolReply, error) {
	sess, err := session(ctx)
	if err != nil {
		return nil, err
	}
	art, err := s.ucTool.Run(ctx, sess, req.Name, req.Params)
	if err != nil {
		return nil, err
	}
	return &RunToolReply{Artifact: art, Username: sess.Username}, nil
}

func (s *DashboardService) ListArtifacts(ctx context.Context) (*ListArtifactsReply, error) {
	if _, err := session(ctx); err != nil {
		return nil, err
	}
	list, err := s.ucArtifact.List(ctx)
	if err != nil {
		return nil, err
	}
	reply := &ListArtifactsReply{Artifacts: make([]ArtifactInfo, 0, len(list))}
	for _, a := range list {
		reply.Artifacts = append(reply.Artifacts, ArtifactInfo{Name: a.Name, Size: a.Size, ModTime: a.ModTime})
	}
	return reply, nil
}

// GetArtifact 返回产物的本地路径，由 HTTP 层负责传输
func (s *DashboardService) GetArtifact(ctx context.Context, name string) (*domain.Artifact, error) {
	sess, err := session(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.ucArtifact.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.log.Infof("用户 [%s] 下载 %s", sess.Username, a.Name)
	return a, nil
}

func session(ctx context.Context) (tool.Session, error) {
	sess, ok := usecase.SessionFromContext(ctx)
	if !ok {
		return tool.Session{}, errors.Unauthorized("TOKEN_MISSING", "login required")
	}
	return sess, nil
}
