package tool

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/docfill"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// TemplateTool 用预置的 docx / pptx 模板生成文档
type TemplateTool struct {
	gen        llm.Generator
	templates  map[docfill.Format]string
	reportsDir string
	now        func() time.Time
}

// NewTemplateTool 创建模板填充工具
func NewTemplateTool(gen llm.Generator, cfg config.WriterConfig, reportsDir string) *TemplateTool {
	return &TemplateTool{
		gen:        gen,
		templates:  map[docfill.Format]string{docfill.Docx: cfg.Docx, docfill.Pptx: cfg.Pptx},
		reportsDir: reportsDir,
		now:        time.Now,
	}
}

// Name implements Tool
func (t *TemplateTool) Name() string { return "template" }

// Description implements Tool
func (t *TemplateTool) Description() string {
	return "Template writer: fill the preset Word or PowerPoint template from a prompt or from explicit field values. " +
		"Params: format (docx|pptx), prompt, and one param per {{FIELD}} of the template (e.g. CLIENTE)."
}

// Run implements Tool
func (t *TemplateTool) Run(ctx context.Context, req Request) (Artifact, error) {
	f, err := docfill.ParseFormat(req.Param("format", string(docfill.Docx)))
	if err != nil {
		return Artifact{}, &ParamError{Param: "format", Reason: "is invalid", Err: err}
	}
	tpl := t.templates[f]
	if !store.Exists(tpl) {
		return Artifact{}, fmt.Errorf("%s template not found: expected file %s", f, tpl)
	}

	keys, err := docfill.Placeholders(tpl)
	if err != nil {
		return Artifact{}, err
	}
	if len(keys) == 0 {
		return Artifact{}, fmt.Errorf("template %s has no {{FIELD}} placeholders", tpl)
	}

	manual := make(map[string]string)
	for _, k := range keys {
		if v, ok := req.Params[k]; ok {
			manual[k] = v
		}
	}
	prompt := req.Param("prompt", "")
	if prompt == "" && len(manual) == 0 {
		return Artifact{}, &ParamError{Param: "prompt", Reason: "is required when no field values are given"}
	}

	now := t.now()
	values, fromModel := docfill.Values(ctx, t.gen, keys, manual, prompt, now)
	out := filepath.Join(t.reportsDir, fmt.Sprintf("document_%s.%s", now.Format("20060102-150405"), f))
	if _, err := docfill.Fill(tpl, out, values); err != nil {
		return Artifact{}, err
	}
	logger.Log.Infof("用户 [%s] 填充模板 %s: %s", req.Session.Username, tpl, out)

	summary := fmt.Sprintf("%s: %d field(s) given", f, len(manual))
	if rest := len(keys) - len(manual); rest > 0 {
		source := "left blank"
		switch {
		case prompt != "" && fromModel:
			source = "generated"
		case prompt != "":
			source = "demo content"
		}
		summary += fmt.Sprintf(", %d %s", rest, source)
	}
	return Artifact{
		Tool:    t.Name(),
		Name:    filepath.Base(out),
		Path:    out,
		Summary: summary,
	}, nil
}
