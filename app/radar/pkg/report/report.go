package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/narrative"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/pptx"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// MinSlides 模板至少需要的幻灯片数
const MinSlides = 6

// 模板占位符
const (
	TokenPeriod              = "{{PERIOD}}"
	TokenExecutiveSummary    = "{{EXECUTIVE_SUMMARY}}"
	TokenGlobalNotes         = "{{GLOBAL_NOTES}}"
	TokenRadarExplanation    = "{{RADAR_EXPLANATION}}"
	TokenAxesDescription     = "{{AXES_DESCRIPTION}}"
	TokenRankingTable        = "{{RANKING_TABLE}}"
	TokenPerformanceAnalysis = "{{PERFORMANCE_ANALYSIS}}"
	TokenDeltasTable         = "{{DELTAS_TABLE}}"
	TokenTop3Priorities      = "{{TOP3_PRIORITIES}}"
	TokenHistoryText         = "{{HISTORY_TEXT}}"
	TokenNewsTable           = "{{NEWS_TABLE}}"
)

// 各图片在幻灯片上的位置（英寸，高度按比例）
var (
	radarRect   = pptx.Rect{X: 0.3, Y: 1.5, W: 6.0}
	gapsRect    = pptx.Rect{X: 0.3, Y: 1.5, W: 7.5}
	historyRect = pptx.Rect{X: 0.3, Y: 1.5, W: 11.5}
	newsRect    = pptx.Rect{X: 0.4, Y: 0.5, W: 12.0, H: 6.0}
)

// TemplateError 模板缺失或结构不符合要求
type TemplateError struct {
	Path   string
	Reason string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("report template %s: %s (expected a .pptx with at least %d slides)", e.Path, e.Reason, MinSlides)
}

// Assembler 报告组装器
type Assembler struct {
	template string
	cfg      config.ReportConfig
	store    *store.Store
}

// New 创建报告组装器
func New(template string, cfg config.ReportConfig, st *store.Store) *Assembler {
	if cfg.NewsPerSlide <= 0 {
		cfg.NewsPerSlide = 12
	}
	return &Assembler{template: template, cfg: cfg, store: st}
}

// NewFromConfig 按配置创建报告组装器
func NewFromConfig(cfg *config.Config, st *store.Store) *Assembler {
	return New(cfg.Paths.Template, cfg.Report, st)
}

type styles struct {
	title, cover, coverNotes, body, bodyLarge, small, tiny pptx.Style
}

func (a *Assembler) styles() styles {
	blue, mint, font := a.cfg.Brand.QuantumBlue, a.cfg.Brand.MintSignal, a.cfg.Font
	return styles{
		title:      pptx.Style{Size: 20, Bold: true, Color: mint, Font: font},
		cover:      pptx.Style{Size: 16, Color: "FFFFFF", Font: font},
		coverNotes: pptx.Style{Size: 12, Color: "FFFFFF", Font: font},
		bodyLarge:  pptx.Style{Size: 16, Color: blue, Font: font},
		body:       pptx.Style{Size: 14, Color: blue, Font: font},
		small:      pptx.Style{Size: 12, Color: blue, Font: font},
		tiny:       pptx.Style{Size: 11, Color: blue, Font: font},
	}
}

// Build 用当期文案与图表填充模板，写入新的报告文件并返回路径
func (a *Assembler) Build(p model.Period, t narrative.Texts) (string, error) {
	deck, err := a.openTemplate()
	if err != nil {
		return "", err
	}
	st := a.styles()

	f := filler{deck: deck}
	f.replace(0, TokenPeriod, t.Period, &st.title)
	f.replace(0, TokenExecutiveSummary, t.ExecutiveSummary, &st.cover)
	f.replace(0, TokenGlobalNotes, t.GlobalNotes, &st.coverNotes)

	f.replace(1, TokenRadarExplanation, t.RadarExplanation, &st.small)
	f.replace(1, TokenAxesDescription, t.AxesDescription, &st.tiny)
	f.picture(1, a.store.RadarChartPath(p), radarRect)

	f.replace(2, TokenRankingTable, t.Ranking, &st.bodyLarge)
	f.replace(2, TokenPerformanceAnalysis, t.PerformanceAnalysis, &st.body)
	f.replace(2, TokenDeltasTable, t.Deltas, &st.small)

	f.picture(3, a.store.GapsChartPath(p), gapsRect)
	f.replace(3, TokenTop3Priorities, t.PrioritiesText, &st.body)

	if f.picture(4, a.store.HistoryChartPath(p), historyRect) {
		f.replace(4, TokenHistoryText, "", &st.body)
	} else {
		f.replace(4, TokenHistoryText, t.HistoryText, &st.body)
	}

	pages := narrative.Paginate(t.News, a.cfg.NewsPerSlide)
	first := narrative.NoNews
	if len(pages) > 0 {
		first = strings.Join(pages[0], "\n")
	}
	f.replace(5, TokenNewsTable, first, &st.body)
	for i := 1; i < len(pages) && f.err == nil; i++ {
		if _, err := deck.AppendTextSlide(5, pptx.TextBox{Rect: newsRect, Lines: pages[i], Style: &st.body}); err != nil {
			f.err = fmt.Errorf("append news slide %d: %w", i+1, err)
		}
	}
	if f.err != nil {
		return "", f.err
	}

	out, err := a.store.NextReportPath(a.cfg.Version, p)
	if err != nil {
		return "", err
	}
	if err := deck.Save(out); err != nil {
		return "", err
	}
	logger.Log.Infof("报告已生成: %s (%d 张幻灯片，新闻 %d 条)", out, deck.SlideCount(), len(t.News))
	return out, nil
}

func (a *Assembler) openTemplate() (*pptx.Deck, error) {
	deck, err := pptx.Open(a.template)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &TemplateError{Path: a.template, Reason: "file not found"}
		}
		return nil, &TemplateError{Path: a.template, Reason: err.Error()}
	}
	if n := deck.SlideCount(); n < MinSlides {
		return nil, &TemplateError{Path: a.template, Reason: fmt.Sprintf("has %d slides", n)}
	}
	return deck, nil
}

// filler 记录第一个错误，后续操作直接跳过
type filler struct {
	deck *pptx.Deck
	err  error
}

func (f *filler) replace(slide int, token, value string, style *pptx.Style) {
	if f.err != nil {
		return
	}
	n, err := f.deck.ReplaceText(slide, token, value, style)
	if err != nil {
		f.err = fmt.Errorf("replace %s on slide %d: %w", token, slide+1, err)
		return
	}
	if n == 0 {
		logger.Log.Warnf("模板第 %d 张幻灯片中未找到占位符 %s", slide+1, token)
	}
}

// picture 插入图片，文件不存在时跳过并返回 false
func (f *filler) picture(slide int, path string, rect pptx.Rect) bool {
	if f.err != nil {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Log.Warnf("图表缺失，跳过: %s", path)
		return false
	}
	if err := f.deck.AddPicture(slide, data, rect); err != nil {
		f.err = fmt.Errorf("insert %s on slide %d: %w", path, slide+1, err)
		return false
	}
	return true
}
