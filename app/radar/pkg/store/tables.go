package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// 表头；读取时兼容旧版的西语列名
var (
	newsHeader     = []string{"date", "competitor", "title", "source", "url", "topic", "impact"}
	enrichedHeader = append(append([]string{}, newsHeader...), "summary")

	columnAliases = map[string]string{
		"fecha":           "date",
		"empresa":         "competitor",
		"provider":        "competitor",
		"titular":         "title",
		"fuente":          "source",
		"tema":            "topic",
		"impacto":         "impact",
		"resumen":         "summary",
		"score_ponderado": CompositeColumn,
	}
)

// CompositeColumn 综合分列名
const CompositeColumn = "weighted_composite"

// CompetitorColumn 竞品列名
const CompetitorColumn = "competitor"

// Table 原始 CSV 表
type Table struct {
	Header  []string
	Records [][]string
}

// Index 返回列下标，不存在时为 -1
func (t Table) Index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// ReadTable 读取 CSV，列名做去空白、去 BOM 和别名归一
func ReadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return Table{}, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if alias, ok := columnAliases[strings.ToLower(h)]; ok {
			h = alias
		}
		header[i] = h
	}
	return Table{Header: header, Records: rows[1:]}, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	})
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// WriteNews 写入当期新闻表
func (s *Store) WriteNews(p model.Period, items []model.Headline) error {
	rows := make([][]string, len(items))
	for i, h := range items {
		rows[i] = headlineRecord(h)
	}
	return writeCSV(s.NewsPath(p), newsHeader, rows)
}

// WriteEnriched 写入补全后的新闻表
func (s *Store) WriteEnriched(p model.Period, items []model.EnrichedHeadline) error {
	rows := make([][]string, len(items))
	for i, h := range items {
		rows[i] = append(headlineRecord(h.Headline), h.Summary)
	}
	return writeCSV(s.EnrichedPath(p), enrichedHeader, rows)
}

func headlineRecord(h model.Headline) []string {
	return []string{h.Date, h.Competitor, h.Title, h.Source, h.URL, h.Topic, h.Impact}
}

// ReadNews 读取当期新闻表
func (s *Store) ReadNews(p model.Period) ([]model.Headline, error) {
	items, err := s.readHeadlines(s.NewsPath(p), "news table")
	if err != nil {
		return nil, err
	}
	out := make([]model.Headline, len(items))
	for i, it := range items {
		out[i] = it.Headline
	}
	return out, nil
}

// ReadEnriched 读取补全后的新闻表
func (s *Store) ReadEnriched(p model.Period) ([]model.EnrichedHeadline, error) {
	return s.readHeadlines(s.EnrichedPath(p), "enriched news table")
}

// ReadReportNews 报告优先使用补全后的新闻表
func (s *Store) ReadReportNews(p model.Period) ([]model.EnrichedHeadline, error) {
	if Exists(s.EnrichedPath(p)) {
		return s.ReadEnriched(p)
	}
	items, err := s.readHeadlines(s.NewsPath(p), "news table")
	var missing *MissingArtifactError
	if errors.As(err, &missing) {
		return nil, nil
	}
	return items, err
}

func (s *Store) readHeadlines(path, kind string) ([]model.EnrichedHeadline, error) {
	t, err := ReadTable(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingArtifactError{Kind: kind, Path: path}
		}
		return nil, err
	}
	if len(t.Header) == 0 {
		return nil, nil
	}
	if t.Index("competitor") < 0 || t.Index("title") < 0 {
		return nil, fmt.Errorf("%s %s: expected columns %s", kind, path, strings.Join(newsHeader, ","))
	}

	idx := map[string]int{}
	for _, col := range enrichedHeader {
		idx[col] = t.Index(col)
	}

	out := make([]model.EnrichedHeadline, 0, len(t.Records))
	for _, rec := range t.Records {
		out = append(out, model.EnrichedHeadline{
			Headline: model.Headline{
				Date:       cell(rec, idx["date"]),
				Competitor: cell(rec, idx["competitor"]),
				Title:      cell(rec, idx["title"]),
				Source:     cell(rec, idx["source"]),
				URL:        cell(rec, idx["url"]),
				Topic:      cell(rec, idx["topic"]),
				Impact:     cell(rec, idx["impact"]),
			},
			Summary: cell(rec, idx["summary"]),
		})
	}
	return out, nil
}

// WriteScores 写入当期得分表。更晚周期已存在时拒绝重写。
func (s *Store) WriteScores(p model.Period, axes []model.Axis, rows []model.ScoreRow) error {
	periods, err := s.ScorePeriods()
	if err != nil {
		return err
	}
	for _, other := range periods {
		if p.Before(other) {
			return fmt.Errorf("%w: %s already has a successor (%s)", ErrSealedPeriod, s.ScoresPath(p), s.ScoresPath(other))
		}
	}

	header := append([]string{CompetitorColumn}, model.AxisNames(axes)...)
	header = append(header, CompositeColumn)

	records := make([][]string, len(rows))
	for i, r := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, r.Competitor)
		for _, a := range axes {
			rec = append(rec, formatFloat(r.Scores[a.Name]))
		}
		rec = append(rec, formatFloat(r.Composite))
		records[i] = rec
	}
	return writeCSV(s.ScoresPath(p), header, records)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadScores 读取某期得分表。除竞品列与综合分列外，其余列都视为维度。
func (s *Store) ReadScores(p model.Period) ([]model.ScoreRow, error) {
	path := s.ScoresPath(p)
	t, err := ReadTable(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingArtifactError{Kind: "score table", Path: path}
		}
		return nil, err
	}

	ci := t.Index(CompetitorColumn)
	if ci < 0 {
		return nil, fmt.Errorf("score table %s: missing column %q", path, CompetitorColumn)
	}
	si := t.Index(CompositeColumn)

	out := make([]model.ScoreRow, 0, len(t.Records))
	for line, rec := range t.Records {
		row := model.ScoreRow{Competitor: cell(rec, ci), Scores: map[string]float64{}}
		for i, col := range t.Header {
			if i == ci || col == "" {
				continue
			}
			raw := strings.TrimSpace(cell(rec, i))
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("score table %s line %d column %q: %w", path, line+2, col, err)
			}
			if i == si {
				row.Composite = v
				continue
			}
			row.Scores[col] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadScoresIfExists 读取得分表，不存在时 ok 为 false
func (s *Store) ReadScoresIfExists(p model.Period) (rows []model.ScoreRow, ok bool, err error) {
	rows, err = s.ReadScores(p)
	var missing *MissingArtifactError
	if errors.As(err, &missing) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

// ReadManualScores 读取手工评分表，不存在时 ok 为 false
func (s *Store) ReadManualScores() (t Table, ok bool, err error) {
	t, err = ReadTable(s.manualScores)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Table{}, false, nil
		}
		return Table{}, false, err
	}
	return t, true, nil
}
