package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/repo"
)

// ArtifactUseCase 产物浏览与下载
type ArtifactUseCase struct {
	repo repo.ArtifactRepo
	log  *log.Helper
}

// NewArtifactUseCase 创建产物业务逻辑实例
func NewArtifactUseCase(repo repo.ArtifactRepo, logger log.Logger) *ArtifactUseCase {
	return &ArtifactUseCase{repo: repo, log: log.NewHelper(logger)}
}

// List 列出产物，最新的在前
func (uc *ArtifactUseCase) List(ctx context.Context) ([]*domain.Artifact, error) {
	return uc.repo.ListArtifacts(ctx)
}

// Get 按文件名获取产物
func (uc *ArtifactUseCase) Get(ctx context.Context, name string) (*domain.Artifact, error) {
	return uc.repo.GetArtifact(ctx, name)
}
