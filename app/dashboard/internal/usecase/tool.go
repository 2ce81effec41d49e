package usecase

import (
	"context"
	"errors"
	"sync"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/repo"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/engine"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/tool"
)

// ToolUseCase 工具调用；同一进程内同一时刻只允许一次运行
type ToolUseCase struct {
	repo repo.ToolRepo
	log  *log.Helper
	mu   sync.Mutex
}

// NewToolUseCase 创建工具业务逻辑实例
func NewToolUseCase(repo repo.ToolRepo, logger log.Logger) *ToolUseCase {
	return &ToolUseCase{repo: repo, log: log.NewHelper(logger)}
}

// List 列出已注册工具
func (uc *ToolUseCase) List(ctx context.Context) []tool.Info {
	return uc.repo.List()
}

// Run 以调用方会话运行工具
func (uc *ToolUseCase) Run(ctx context.Context, s tool.Session, name string, params map[string]string) (tool.Artifact, error) {
	t, err := uc.repo.Resolve(name)
	if err != nil {
		return tool.Artifact{}, kerrors.NotFound("TOOL_NOT_FOUND", err.Error())
	}

	if !uc.mu.TryLock() {
		return tool.Artifact{}, kerrors.Conflict("TOOL_BUSY", "another run is in progress, try again later")
	}
	defer uc.mu.Unlock()

	uc.log.Infof("用户 [%s] 调用工具 %s", s.Username, name)
	art, err := t.Run(ctx, tool.Request{Session: s, Params: params})
	if err != nil {
		uc.log.Errorf("工具 %s 运行失败: %v", name, err)
		return tool.Artifact{}, toRunError(err)
	}
	return art, nil
}

// toRunError 只有参数错误映射为 400，其余未分类的失败一律 500
func toRunError(err error) error {
	var (
		stageErr *engine.StageError
		paramErr *tool.ParamError
	)
	switch {
	case errors.As(err, &paramErr):
		return kerrors.BadRequest("INVALID_PARAMS", err.Error())
	case errors.Is(err, store.ErrLocked):
		return kerrors.Conflict("PERIOD_LOCKED", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return kerrors.ServiceUnavailable("RUN_CANCELLED", err.Error())
	case errors.As(err, &stageErr):
		return kerrors.InternalServer("RUN_FAILED", err.Error())
	default:
		return kerrors.InternalServer("INTERNAL", "tool run failed")
	}
}
