package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// SchemaError 手工评分文件格式不符
type SchemaError struct {
	Path     string
	Missing  []string
	Expected []string
	Detail   string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("manual override %s: missing required column(s) %s; expected header: %s",
			e.Path, strings.Join(e.Missing, ", "), strings.Join(e.Expected, ","))
	}
	return fmt.Sprintf("manual override %s: %s", e.Path, e.Detail)
}

// ParseOverride 解析分析师手工评分表。
// 只保留配置中的竞品；表中缺失的竞品在所有维度上取中值 3.0。
func ParseOverride(t store.Table, path string, axes []model.Axis, competitors []string) ([]model.ScoreRow, error) {
	expected := append([]string{store.CompetitorColumn}, model.AxisNames(axes)...)

	var missing []string
	for _, col := range expected {
		if t.Index(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing, Expected: expected}
	}

	wanted := make(map[string]bool, len(competitors))
	for _, c := range competitors {
		wanted[c] = true
	}

	ci := t.Index(store.CompetitorColumn)
	parsed := map[string]model.ScoreRow{}
	var fileOrder []string

	for line, rec := range t.Records {
		name := ""
		if ci < len(rec) {
			name = strings.TrimSpace(rec[ci])
		}
		if name == "" {
			continue
		}
		if len(competitors) > 0 && !wanted[name] {
			continue
		}
		if _, dup := parsed[name]; dup {
			logger.Log.Warnf("手工评分文件中竞品 [%s] 重复出现，保留第一行", name)
			continue
		}

		row := model.ScoreRow{Competitor: name, Scores: make(map[string]float64, len(axes))}
		for _, a := range axes {
			idx := t.Index(a.Name)
			raw := ""
			if idx < len(rec) {
				raw = strings.TrimSpace(rec[idx])
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &SchemaError{
					Path:   path,
					Detail: fmt.Sprintf("line %d column %q: value %q is not a number", line+2, a.Name, raw),
				}
			}
			if c := model.Clip(v); c != v {
				logger.Log.Warnf("手工评分 [%s] %s=%.2f 超出 1-5 范围，已截断为 %.2f", name, a.Name, v, c)
				v = c
			}
			row.Scores[a.Name] = v
		}
		parsed[name] = row
		fileOrder = append(fileOrder, name)
	}

	order := competitors
	if len(order) == 0 {
		order = fileOrder
	}

	out := make([]model.ScoreRow, 0, len(order))
	for _, name := range order {
		row, ok := parsed[name]
		if !ok {
			logger.Log.Warnf("手工评分文件缺少竞品 [%s]，各维度取中值 %.1f", name, model.ScoreNeutral)
			row = neutralRow(name, axes)
		}
		out = append(out, row)
	}
	return out, nil
}

func neutralRow(name string, axes []model.Axis) model.ScoreRow {
	row := model.ScoreRow{Competitor: name, Scores: make(map[string]float64, len(axes))}
	for _, a := range axes {
		row.Scores[a.Name] = model.ScoreNeutral
	}
	return row
}
