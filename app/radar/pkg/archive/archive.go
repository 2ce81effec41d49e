package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// 归档表结构。CSV 仍是唯一事实来源，这里只做查询镜像。
var schema = []string{
	`CREATE TABLE IF NOT EXISTS radar_runs (
		run_id      TEXT PRIMARY KEY,
		period      TEXT NOT NULL,
		focal       TEXT NOT NULL,
		source      TEXT NOT NULL,
		report_path TEXT NOT NULL,
		pdf_path    TEXT NOT NULL DEFAULT '',
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS radar_scores (
		run_id     TEXT NOT NULL REFERENCES radar_runs(run_id),
		period     TEXT NOT NULL,
		competitor TEXT NOT NULL,
		scores     JSONB NOT NULL,
		composite  DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, competitor)
	)`,
	`CREATE TABLE IF NOT EXISTS radar_headlines (
		id         BIGSERIAL PRIMARY KEY,
		run_id     TEXT NOT NULL REFERENCES radar_runs(run_id),
		period     TEXT NOT NULL,
		date       TEXT NOT NULL,
		competitor TEXT NOT NULL,
		title      TEXT NOT NULL,
		source     TEXT NOT NULL,
		url        TEXT NOT NULL,
		topic      TEXT NOT NULL,
		impact     TEXT NOT NULL
	)`,
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Run 一次完成的流水线运行
type Run struct {
	ID         string
	Period     model.Period
	Focal      string
	Source     string
	ReportPath string
	PDFPath    string
	StartedAt  time.Time
	FinishedAt time.Time
	Scores     []model.ScoreRow
	Headlines  []model.Headline
}

// Archiver 将运行结果写入 Postgres
type Archiver struct {
	db *sql.DB
}

// Open 按配置连接数据库。未配置 Host 时返回 nil，表示不归档。
func Open(ctx context.Context, cfg config.DBConfig) (*Archiver, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	a := New(db)
	if err := a.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

// New 包装已有连接
func New(db *sql.DB) *Archiver {
	return &Archiver{db: db}
}

// Close 关闭连接
func (a *Archiver) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// EnsureSchema 建表
func (a *Archiver) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save 在一个事务内写入运行记录、得分与新闻
func (a *Archiver) Save(ctx context.Context, run Run) error {
	if a == nil || a.db == nil {
		return nil
	}

	builders := []sq.Sqlizer{insertRun(run)}
	if ins, ok := insertScores(run); ok {
		builders = append(builders, ins)
	}
	if ins, ok := insertHeadlines(run); ok {
		builders = append(builders, ins)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, b := range builders {
		query, args, err := b.ToSql()
		if err == nil {
			_, err = tx.ExecContext(ctx, query, args...)
		}
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				err = fmt.Errorf("%w: %v", err, rerr)
			}
			return err
		}
	}
	return tx.Commit()
}

func insertRun(run Run) sq.InsertBuilder {
	return psql.Insert("radar_runs").
		Columns("run_id", "period", "focal", "source", "report_path", "pdf_path", "started_at", "finished_at").
		Values(run.ID, run.Period.String(), run.Focal, run.Source, run.ReportPath, run.PDFPath, run.StartedAt, run.FinishedAt)
}

func insertScores(run Run) (sq.InsertBuilder, bool) {
	ins := psql.Insert("radar_scores").Columns("run_id", "period", "competitor", "scores", "composite")
	for _, r := range run.Scores {
		scores, _ := json.Marshal(r.Scores)
		ins = ins.Values(run.ID, run.Period.String(), r.Competitor, string(scores), r.Composite)
	}
	return ins, len(run.Scores) > 0
}

func insertHeadlines(run Run) (sq.InsertBuilder, bool) {
	ins := psql.Insert("radar_headlines").
		Columns("run_id", "period", "date", "competitor", "title", "source", "url", "topic", "impact")
	n := 0
	for _, h := range run.Headlines {
		if h.IsWarning() {
			continue
		}
		ins = ins.Values(run.ID, run.Period.String(), h.Date, h.Competitor, clean(h.Title), h.Source, h.URL, h.Topic, h.Impact)
		n++
	}
	return ins, n > 0
}

// clean 去掉非法 UTF-8 与 NULL 字节，PostgreSQL 文本字段不接受
func clean(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.ReplaceAll(s, "\x00", "")
}
