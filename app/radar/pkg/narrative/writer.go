package narrative

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// 交给 LLM 改写的字段
const (
	FieldExecutiveSummary    = "executive_summary"
	FieldPerformanceAnalysis = "performance_analysis"
)

const promptNewsLimit = 20

// Input 生成报告文案所需的全部数据
type Input struct {
	Period          model.Period
	Focal           string
	Axes            []model.Axis
	Rows            []model.ScoreRow
	Prev            []model.ScoreRow
	HasPrev         bool
	Gaps            []model.GapRow
	News            []model.EnrichedHeadline
	GlobalNotes     string
	CompetitorNotes map[string]string
}

// Texts 报告中所有文本块
type Texts struct {
	Period              string
	ExecutiveSummary    string
	GlobalNotes         string
	RadarExplanation    string
	AxesDescription     string
	Ranking             string
	PerformanceAnalysis string
	Deltas              string
	Priorities          []string
	PrioritiesText      string
	HistoryText         string
	News                []string
	Rewritten           bool
}

// Writer 生成报告文案
type Writer struct {
	gen llm.Generator
}

// NewWriter 创建 Writer，gen 为 nil 时只使用模板文案
func NewWriter(gen llm.Generator) *Writer {
	if gen == nil {
		gen = llm.Fallback{}
	}
	return &Writer{gen: gen}
}

// Compose 先生成确定性文案，再尝试用 LLM 改写摘要和绩效分析
func (w *Writer) Compose(ctx context.Context, in Input) Texts {
	ranked := Ranked(in.Rows)
	news := CleanNews(in.News)
	priorities := Priorities(in.Gaps)

	t := Texts{
		Period:              in.Period.String(),
		ExecutiveSummary:    ExecutiveSummary(ranked, in.Axes, in.Focal, len(news)),
		GlobalNotes:         strings.TrimSpace(in.GlobalNotes),
		RadarExplanation:    RadarExplanation,
		AxesDescription:     AxesDescription(in.Axes),
		Ranking:             Ranking(ranked),
		PerformanceAnalysis: PerformanceAnalysis(ranked),
		Deltas:              Deltas(ranked, in.Prev, in.HasPrev),
		Priorities:          priorities,
		PrioritiesText:      PrioritiesText(priorities),
		HistoryText:         NotEnoughHistory,
		News:                NewsLines(news),
	}
	if len(ranked) == 0 {
		return t
	}

	resp := w.gen.Complete(ctx, llm.Request{
		System: "You are a competitive intelligence analyst writing a monthly executive report. " +
			"Keep every figure from the input unchanged and write in a concise business tone.",
		Prompt: rewritePrompt(in, t),
		Fields: []string{FieldExecutiveSummary, FieldPerformanceAnalysis},
		Fallback: map[string]string{
			FieldExecutiveSummary:    t.ExecutiveSummary,
			FieldPerformanceAnalysis: t.PerformanceAnalysis,
		},
	})
	if resp.FromModel {
		logger.Log.Info("执行摘要与绩效分析已由 LLM 改写")
		t.ExecutiveSummary = resp.Get(FieldExecutiveSummary)
		t.PerformanceAnalysis = resp.Get(FieldPerformanceAnalysis)
		t.Rewritten = true
	}
	return t
}

func rewritePrompt(in Input, t Texts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Period: %s\nFocal organization: %s\n\n", in.Period, in.Focal)
	fmt.Fprintf(&sb, "## Ranking (0-100)\n%s\n\n", t.Ranking)
	fmt.Fprintf(&sb, "## Month-over-month change\n%s\n\n", t.Deltas)

	if len(in.Gaps) > 0 {
		sb.WriteString("## Gaps of the focal organization\n")
		for _, g := range in.Gaps {
			fmt.Fprintf(&sb, "- %s: %.2f behind %s\n", g.Axis, g.Gap, g.Leader)
		}
		sb.WriteString("\n")
	}

	if t.GlobalNotes != "" {
		fmt.Fprintf(&sb, "## Analyst notes\n%s\n\n", t.GlobalNotes)
	}
	if len(in.CompetitorNotes) > 0 {
		names := make([]string, 0, len(in.CompetitorNotes))
		for name := range in.CompetitorNotes {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("## Notes per competitor\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "- %s: %s\n", name, in.CompetitorNotes[name])
		}
		sb.WriteString("\n")
	}

	if len(t.News) > 0 {
		sb.WriteString("## Headlines\n")
		for _, line := range t.News[:min(promptNewsLimit, len(t.News))] {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## Draft executive summary\n%s\n\n", t.ExecutiveSummary)
	fmt.Fprintf(&sb, "## Draft performance analysis\n%s\n\n", t.PerformanceAnalysis)
	sb.WriteString("Rewrite both drafts into 3-5 sentences each, grounded in the data above.")
	return sb.String()
}
