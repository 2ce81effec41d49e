package minutes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
)

// 分块提取的字段
const (
	FieldKeyPoints  = "key_points"
	FieldDecisions  = "decisions"
	FieldAgreements = "agreements"
	FieldTasks      = "tasks"
	FieldRisks      = "risks"
	FieldSummary    = "summary"
	FieldNextSteps  = "next_steps"
)

var (
	mapFields    = []string{FieldKeyPoints, FieldDecisions, FieldAgreements, FieldTasks, FieldRisks}
	reduceFields = []string{FieldSummary, FieldDecisions, FieldAgreements, FieldTasks, FieldRisks, FieldNextSteps}
)

const mapPrompt = `Summarize this block of a meeting transcript.
Every list value must be an array of plain strings. A task reads "description | owner | due date | metric"; leave unknown parts empty.

Transcript block:
---
%s
---`

const reducePrompt = `Merge the partial JSON summaries below into the final meeting minutes.
Deduplicate and standardize. Tasks must be SMART: when owner, due date or metric is missing write "Pending".
Every list value must be an array of plain strings; summary is a short paragraph.

Partial summaries:
%s`

const checkPrompt = `Review these meeting minutes for contradictions, impossible dates and tasks without an action verb.
Correct them minimally and return the same keys.

%s`

// DemoNotice 未启用 LLM 时摘要的前缀
const DemoNotice = "(DEMO)"

// ErrEmptyTranscript 转写稿为空
var ErrEmptyTranscript = errors.New("transcript is empty")

// Minutes 会议纪要
type Minutes struct {
	Project    string   `json:"project"`
	Date       string   `json:"date"`
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
	Decisions  []string `json:"decisions"`
	Agreements []string `json:"agreements"`
	Tasks      []string `json:"tasks"`
	Risks      []string `json:"risks"`
	NextSteps  []string `json:"next_steps"`
	Blocks     int      `json:"blocks"`
	Demo       bool     `json:"demo"`
}

// Summarizer 分块提取 → 合并 → 一致性检查
type Summarizer struct {
	gen    llm.Generator
	target int
	limit  int
}

// NewSummarizer 创建 Summarizer，gen 为 nil 时输出演示内容
func NewSummarizer(gen llm.Generator) *Summarizer {
	if gen == nil {
		gen = llm.Fallback{}
	}
	return &Summarizer{gen: gen, target: TargetTokens, limit: MaxTokens}
}

// SetBlockSize 调整分块大小（估算 token 数）
func (s *Summarizer) SetBlockSize(target, limit int) {
	s.target, s.limit = target, limit
}

// Summarize 生成会议纪要
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (Minutes, error) {
	blocks := Chunk(transcript, s.target, s.limit)
	if len(blocks) == 0 {
		return Minutes{}, ErrEmptyTranscript
	}
	logger.Log.Infof("转写稿共 %d 块，约 %d tokens", len(blocks), EstimateTokens(transcript))

	partials := make([]map[string]string, 0, len(blocks))
	var keyPoints []string
	for i, b := range blocks {
		if err := ctx.Err(); err != nil {
			return Minutes{}, err
		}
		resp := s.gen.Complete(ctx, llm.Request{
			System:   "You summarize meeting transcripts into structured notes.",
			Prompt:   fmt.Sprintf(mapPrompt, b),
			Fields:   mapFields,
			Fallback: demoBlock(b),
		})
		partials = append(partials, resp.Fields)
		keyPoints = append(keyPoints, splitItems(resp.Get(FieldKeyPoints))...)
		logger.Log.Debugf("第 %d/%d 块已提取", i+1, len(blocks))
	}
	if err := ctx.Err(); err != nil {
		return Minutes{}, err
	}

	raw, _ := json.MarshalIndent(partials, "", "  ")
	reduced := s.gen.Complete(ctx, llm.Request{
		System:   "You consolidate partial meeting summaries into final minutes.",
		Prompt:   fmt.Sprintf(reducePrompt, raw),
		Fields:   reduceFields,
		Fallback: demoReduce(partials, len(blocks)),
	})

	final := reduced
	if reduced.FromModel {
		payload, _ := json.MarshalIndent(reduced.Fields, "", "  ")
		final = s.gen.Complete(ctx, llm.Request{
			System:   "You proofread meeting minutes.",
			Prompt:   fmt.Sprintf(checkPrompt, payload),
			Fields:   reduceFields,
			Fallback: reduced.Fields,
		})
	}

	return Minutes{
		Summary:    final.Get(FieldSummary),
		KeyPoints:  dedupe(keyPoints),
		Decisions:  splitItems(final.Get(FieldDecisions)),
		Agreements: splitItems(final.Get(FieldAgreements)),
		Tasks:      splitItems(final.Get(FieldTasks)),
		Risks:      splitItems(final.Get(FieldRisks)),
		NextSteps:  splitItems(final.Get(FieldNextSteps)),
		Blocks:     len(blocks),
		Demo:       !reduced.FromModel,
	}, nil
}

// demoBlock 不调用 LLM 时的分块结果：取块内前几行作为要点
func demoBlock(block string) map[string]string {
	var points []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		points = append(points, clip(line, 160))
		if len(points) == 3 {
			break
		}
	}
	return map[string]string{
		FieldKeyPoints:  strings.Join(points, "\n"),
		FieldDecisions:  "",
		FieldAgreements: "",
		FieldTasks:      "",
		FieldRisks:      "",
	}
}

func demoReduce(partials []map[string]string, blocks int) map[string]string {
	merge := func(field string) string {
		var items []string
		for _, p := range partials {
			items = append(items, splitItems(p[field])...)
		}
		return strings.Join(dedupe(items), "\n")
	}
	return map[string]string{
		FieldSummary: fmt.Sprintf("%s Meeting transcript processed in %d block(s) without a language model; key points are the opening lines of each block.",
			DemoNotice, blocks),
		FieldDecisions:  merge(FieldDecisions),
		FieldAgreements: merge(FieldAgreements),
		FieldTasks:      merge(FieldTasks),
		FieldRisks:      merge(FieldRisks),
		FieldNextSteps:  "Review these minutes and assign owners (Pending)",
	}
}

// splitItems 一行一项，去掉列表符号
func splitItems(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		key := strings.ToLower(it)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit])) + "…"
}
