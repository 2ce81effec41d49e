package tool

import (
	"context"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/mailer"
)

// Default 注册所有内置工具：radar、minutes 与 template
func Default(ctx context.Context, cfg *config.Config) (*Registry, error) {
	gen, err := llm.New(ctx, cfg.LLM, cfg.Concurrency, cfg.UseLLM)
	if err != nil {
		return nil, err
	}
	return NewRegistry(
		NewRadarTool(cfg),
		NewMinutesTool(gen, mailer.New(cfg.SMTP), cfg.Paths.ReportsDir),
		NewTemplateTool(gen, cfg.Writer, cfg.Paths.ReportsDir),
	)
}
