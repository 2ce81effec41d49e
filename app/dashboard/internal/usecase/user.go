package usecase

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/repo"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/tool"
)

// TokenTTL 登录令牌有效期
const TokenTTL = 24 * time.Hour

// UserUseCase 用户业务逻辑
type UserUseCase struct {
	repo   repo.UserRepo
	log    *log.Helper
	jwtKey string
	now    func() time.Time
}

// NewUserUseCase 创建用户业务逻辑实例
func NewUserUseCase(repo repo.UserRepo, auth *conf.Auth, logger log.Logger) *UserUseCase {
	jwtKey := "default-secret"
	if auth != nil && auth.JwtKey != "" {
		jwtKey = auth.JwtKey
	}
	return &UserUseCase{
		repo:   repo,
		log:    log.NewHelper(logger),
		jwtKey: jwtKey,
		now:    time.Now,
	}
}

// Login 校验密码并签发 JWT
func (uc *UserUseCase) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	u, err := uc.repo.GetUserByUsername(ctx, username)
	if err != nil {
		uc.log.Warnf("login rejected for %q: %v", username, err)
		return "", time.Time{}, errors.Unauthorized("AUTH_FAILED", "invalid username or password")
	}
	// 验证密码哈希
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, errors.Unauthorized("AUTH_FAILED", "invalid username or password")
	}

	now := uc.now()
	exp := now.Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": u.Username,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	})
	signed, err := token.SignedString([]byte(uc.jwtKey))
	if err != nil {
		return "", time.Time{}, errors.InternalServer("TOKEN_SIGN_FAILED", err.Error())
	}
	return signed, exp, nil
}

// Authenticate 解析 Bearer 令牌，返回会话
func (uc *UserUseCase) Authenticate(ctx context.Context, raw string) (tool.Session, error) {
	if raw == "" {
		return tool.Session{}, errors.Unauthorized("TOKEN_MISSING", "missing bearer token")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(uc.jwtKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(uc.now),
	)
	if err != nil {
		return tool.Session{}, errors.Unauthorized("TOKEN_INVALID", err.Error())
	}

	username, _ := claims["username"].(string)
	if username == "" {
		return tool.Session{}, errors.Unauthorized("TOKEN_INVALID", "token has no username")
	}
	// 账号被移除后旧令牌失效
	if _, err := uc.repo.GetUserByUsername(ctx, username); err != nil {
		return tool.Session{}, errors.Unauthorized("TOKEN_INVALID", "unknown user")
	}

	s := tool.Session{Username: username}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		s.IssuedAt = iat.Time
	}
	return s, nil
}
