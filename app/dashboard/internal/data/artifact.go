package data

import (
	"context"
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/repo"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

type artifactRepo struct {
	data *Data
	log  *log.Helper
}

func NewArtifactRepo(data *Data, logger log.Logger) repo.ArtifactRepo {
	return &artifactRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *artifactRepo) ListArtifacts(ctx context.Context) ([]*domain.Artifact, error) {
	list, err := r.data.store.ListReports()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Artifact, 0, len(list))
	for _, a := range list {
		out = append(out, toDomain(a))
	}
	return out, nil
}

func (r *artifactRepo) GetArtifact(ctx context.Context, name string) (*domain.Artifact, error) {
	a, err := r.data.store.ResolveReport(name)
	if err != nil {
		var missing *store.MissingArtifactError
		if errors.As(err, &missing) {
			return nil, kerrors.NotFound("ARTIFACT_NOT_FOUND", "artifact not found: "+name)
		}
		return nil, kerrors.BadRequest("INVALID_ARTIFACT", err.Error())
	}
	return toDomain(a), nil
}

func toDomain(a store.Artifact) *domain.Artifact {
	return &domain.Artifact{
		Name:    a.Name,
		Path:    a.Path,
		Size:    a.Size,
		ModTime: a.ModTime,
	}
}
