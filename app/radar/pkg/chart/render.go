package chart

import (
	"fmt"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// Input 单期出图所需数据
type Input struct {
	Period model.Period
	Focal  string
	Axes   []model.Axis
	Rows   []model.ScoreRow
	Gaps   []model.GapRow
}

// RenderPeriod 生成当期雷达图、差距图与历史趋势图
func RenderPeriod(st *store.Store, in Input) error {
	radar, err := Radar(in.Rows, in.Axes)
	if err != nil {
		return err
	}
	if err := Save(radar, st.RadarChartPath(in.Period), RadarSize); err != nil {
		return err
	}

	gapPlot, err := Gaps(in.Gaps, in.Focal)
	if err != nil {
		return err
	}
	if err := Save(gapPlot, st.GapsChartPath(in.Period), GapsSize); err != nil {
		return err
	}

	series, err := st.History(in.Period, HistoryPeriods)
	if err != nil {
		return fmt.Errorf("read score history: %w", err)
	}
	history, err := History(series)
	if err != nil {
		return err
	}
	if err := Save(history, st.HistoryChartPath(in.Period), HistorySize); err != nil {
		return err
	}

	logger.Log.Infof("图表已生成: %s, %s, %s (历史 %d 期)",
		st.RadarChartPath(in.Period), st.GapsChartPath(in.Period), st.HistoryChartPath(in.Period), len(series))
	return nil
}
