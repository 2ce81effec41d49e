package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/repo"
)

type userRepo struct {
	data *Data
	log  *log.Helper
}

func NewUserRepo(data *Data, logger log.Logger) repo.UserRepo {
	return &userRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, ok := r.data.users[username]
	if !ok {
		return nil, errors.NotFound("USER_NOT_FOUND", "user not found")
	}
	return &domain.User{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
	}, nil
}
