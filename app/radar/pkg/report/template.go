package report

import (
	"io"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/pptx"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

func box(x, y, w, h float64, lines ...string) pptx.TextBox {
	return pptx.TextBox{Rect: pptx.Rect{X: x, Y: y, W: w, H: h}, Lines: lines}
}

// DefaultLayout 默认模板：六张幻灯片，占位符位置与图片位置互不重叠
func DefaultLayout() [][]pptx.TextBox {
	return [][]pptx.TextBox{
		{
			box(0.5, 0.4, 12.3, 0.8, "Competitor Radar", TokenPeriod),
			box(0.5, 1.6, 12.3, 3.2, TokenExecutiveSummary),
			box(0.5, 5.2, 12.3, 1.8, TokenGlobalNotes),
		},
		{
			box(0.3, 0.4, 12.7, 0.8, "Radar by axis"),
			box(6.8, 1.5, 6.2, 3.0, TokenRadarExplanation),
			box(6.8, 4.8, 6.2, 2.0, TokenAxesDescription),
		},
		{
			box(0.3, 0.4, 12.7, 0.8, "Ranking and performance"),
			box(0.3, 1.4, 5.0, 5.6, TokenRankingTable),
			box(5.6, 1.4, 7.4, 3.0, TokenPerformanceAnalysis),
			box(5.6, 4.6, 7.4, 2.4, TokenDeltasTable),
		},
		{
			box(0.3, 0.4, 12.7, 0.8, "Gaps versus the leader"),
			box(8.1, 1.5, 4.9, 5.0, TokenTop3Priorities),
		},
		{
			box(0.3, 0.4, 12.7, 0.8, "Historical trend"),
			box(0.3, 6.6, 12.7, 0.7, TokenHistoryText),
		},
		{
			box(0.3, 0.2, 12.7, 0.5, "Relevant news"),
			box(0.4, 0.8, 12.0, 6.2, TokenNewsTable),
		},
	}
}

// WriteDefaultTemplate 输出默认模板
func WriteDefaultTemplate(w io.Writer) error {
	return pptx.WriteSkeleton(w, DefaultLayout())
}

// SaveDefaultTemplate 将默认模板原子写入指定路径
func SaveDefaultTemplate(path string) error {
	return store.WriteFileAtomic(path, WriteDefaultTemplate)
}
