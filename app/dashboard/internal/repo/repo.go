package repo

import (
	"context"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/tool"
)

// UserRepo 用户仓库接口
type UserRepo interface {
	// GetUserByUsername 根据用户名获取用户
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// ToolRepo 工具仓库接口，启动时注册完毕
type ToolRepo interface {
	List() []tool.Info
	Resolve(name string) (tool.Tool, error)
}

// ArtifactRepo 产物仓库接口
type ArtifactRepo interface {
	// ListArtifacts 列出报告目录中的产物，最新的在前
	ListArtifacts(ctx context.Context) ([]*domain.Artifact, error)
	// GetArtifact 按文件名获取产物
	GetArtifact(ctx context.Context, name string) (*domain.Artifact, error)
}
