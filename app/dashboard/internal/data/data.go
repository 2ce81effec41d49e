package data

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/repo"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	radarLogger "github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/tool"
)

// Data 看板的数据源：流水线配置、产物存储、工具注册表与账号
type Data struct {
	cfg      *config.Config
	store    *store.Store
	registry *tool.Registry
	users    map[string]*conf.User
}

// NewData 加载流水线配置并注册工具
func NewData(c *conf.Radar, auth *conf.Auth, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	if c == nil || c.Config == "" {
		return nil, nil, fmt.Errorf("radar.config is required")
	}

	cfg, err := config.LoadConfig(c.Config)
	if err != nil {
		return nil, nil, err
	}

	if err := radarLogger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		helper.Errorf("Failed to init radar logger: %v", err)
		_ = radarLogger.InitLogger("info", "") // 降级处理
	}

	registry, err := tool.Default(context.Background(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register tools: %w", err)
	}

	users := make(map[string]*conf.User)
	if auth != nil {
		for _, u := range auth.Users {
			if u == nil || u.Username == "" {
				continue
			}
			users[u.Username] = u
		}
	}
	if len(users) == 0 {
		helper.Warn("auth.users is empty, nobody can log in")
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		_ = radarLogger.Close()
	}
	return &Data{
		cfg:      cfg,
		store:    store.NewFromConfig(cfg),
		registry: registry,
		users:    users,
	}, cleanup, nil
}

// NewToolRepo 注册表本身即工具仓库
func NewToolRepo(data *Data) repo.ToolRepo {
	return data.registry
}
