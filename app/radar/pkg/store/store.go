package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// ErrSealedPeriod 已有更晚周期基于该周期做过平滑，不允许重写
var ErrSealedPeriod = errors.New("score table is sealed")

// ErrLocked 同一周期已有流水线在运行
var ErrLocked = errors.New("period is locked by another run")

// MissingArtifactError 后续阶段依赖的中间产物不存在
type MissingArtifactError struct {
	Kind string
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing %s: expected file %s (run the producing stage first)", e.Kind, e.Path)
}

// Artifact 可供下载的最终产物
type Artifact struct {
	Name    string    `json:"name"`
	Path    string    `json:"-"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Store 以周期为粒度的文件存储。每期每类产物一个文件。
type Store struct {
	dataDir      string
	reportsDir   string
	manualScores string
}

// New 创建存储
func New(dataDir, reportsDir, manualScores string) *Store {
	if manualScores == "" {
		manualScores = filepath.Join(dataDir, "raw", "manual_scores.csv")
	}
	return &Store{dataDir: dataDir, reportsDir: reportsDir, manualScores: manualScores}
}

// NewFromConfig 按配置创建存储
func NewFromConfig(cfg *config.Config) *Store {
	return New(cfg.Paths.DataDir, cfg.Paths.ReportsDir, cfg.Paths.ManualScores)
}

func (s *Store) processed(name string) string {
	return filepath.Join(s.dataDir, "processed", name)
}

// NewsPath 新闻表路径
func (s *Store) NewsPath(p model.Period) string {
	return s.processed(fmt.Sprintf("news_%s.csv", p))
}

// EnrichedPath 补全后的新闻表路径
func (s *Store) EnrichedPath(p model.Period) string {
	return s.processed(fmt.Sprintf("news_enriched_%s.csv", p))
}

// ScoresPath 得分表路径
func (s *Store) ScoresPath(p model.Period) string {
	return s.processed(fmt.Sprintf("radar_scores_%s.csv", p))
}

// RadarChartPath 雷达图路径
func (s *Store) RadarChartPath(p model.Period) string {
	return s.processed(fmt.Sprintf("radar_%s.png", p))
}

// GapsChartPath 差距图路径
func (s *Store) GapsChartPath(p model.Period) string {
	return s.processed(fmt.Sprintf("gaps_%s.png", p))
}

// HistoryChartPath 历史趋势图路径
func (s *Store) HistoryChartPath(p model.Period) string {
	return s.processed(fmt.Sprintf("history_%s.png", p))
}

// ManualScoresPath 分析师手工评分文件路径
func (s *Store) ManualScoresPath() string {
	return s.manualScores
}

// ReportsDir 报告输出目录
func (s *Store) ReportsDir() string {
	return s.reportsDir
}

// Exists 文件是否存在
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFileAtomic 先写临时文件再重命名，保证产物要么完整要么不存在
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

var scoreFileRe = regexp.MustCompile(`^radar_scores_(\d{4}-\d{2})\.csv$`)

// ScorePeriods 已有得分表的周期，升序
func (s *Store) ScorePeriods() ([]model.Period, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, "processed"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []model.Period
	for _, e := range entries {
		m := scoreFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		p, err := model.ParsePeriod(m[1])
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// PeriodScores 某一期的得分表
type PeriodScores struct {
	Period model.Period
	Rows   []model.ScoreRow
}

// History 返回不晚于 upTo 的最近 n 期得分表（升序）
func (s *Store) History(upTo model.Period, n int) ([]PeriodScores, error) {
	periods, err := s.ScorePeriods()
	if err != nil {
		return nil, err
	}

	var eligible []model.Period
	for _, p := range periods {
		if !upTo.Before(p) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) > n {
		eligible = eligible[len(eligible)-n:]
	}

	out := make([]PeriodScores, 0, len(eligible))
	for _, p := range eligible {
		rows, err := s.ReadScores(p)
		if err != nil {
			return nil, err
		}
		out = append(out, PeriodScores{Period: p, Rows: rows})
	}
	return out, nil
}

var reportRevRe = regexp.MustCompile(`_r(\d+)\.pptx$`)

// NextReportPath 返回本次运行的报告路径，已有报告不会被覆盖
func (s *Store) NextReportPath(version string, p model.Period) (string, error) {
	base := fmt.Sprintf("radar_report_%s_%s", version, p)

	entries, err := os.ReadDir(s.reportsDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	next := 1
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base+"_r") {
			continue
		}
		m := reportRevRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
			next = n + 1
		}
	}
	return filepath.Join(s.reportsDir, fmt.Sprintf("%s_r%d.pptx", base, next)), nil
}

// ListReports 列出报告目录中的产物，最新的在前
func (s *Store) ListReports() ([]Artifact, error) {
	entries, err := os.ReadDir(s.reportsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []Artifact
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pptx", ".pdf", ".md", ".docx":
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Artifact{
			Name:    e.Name(),
			Path:    filepath.Join(s.reportsDir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ModTime.After(out[j].ModTime) })
	return out, nil
}

// ResolveReport 按文件名查找报告，禁止路径穿越
func (s *Store) ResolveReport(name string) (Artifact, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return Artifact{}, fmt.Errorf("invalid artifact name %q", name)
	}
	path := filepath.Join(s.reportsDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, &MissingArtifactError{Kind: "report", Path: path}
	}
	return Artifact{Name: name, Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// AcquireLock 获取周期锁，返回释放函数
func (s *Store) AcquireLock(p model.Period) (func(), error) {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dataDir, fmt.Sprintf(".radar-%s.lock", p))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: remove %s if no run is active", ErrLocked, path)
		}
		return nil, err
	}
	fmt.Fprintf(f, "pid=%d started=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	_ = f.Close()

	return func() { _ = os.Remove(path) }, nil
}
