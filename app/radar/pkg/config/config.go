package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// Config 雷达流水线配置
type Config struct {
	Periodo          string                        `yaml:"periodo"`
	Focal            string                        `yaml:"focal"`
	Competitors      []string                      `yaml:"competitors"`
	Empresas         []string                      `yaml:"empresas"` // 旧版字段，competitors 为空时使用
	Axes             []model.Axis                  `yaml:"axes"`
	NewsSources      map[string][]string           `yaml:"news_sources"`
	TopicKeywords    TopicRules                    `yaml:"topic_keywords"`
	HighImpactTopics []string                      `yaml:"high_impact_topics"`
	AxisSignals      map[string]map[string]float64 `yaml:"axis_signals"`
	UseLLM           bool                          `yaml:"use_llm"`
	NotasGlobales    string                        `yaml:"notas_globales"`
	CompetitorNotes  map[string]string             `yaml:"competitor_notes"`

	LLM         LLMConfig         `yaml:"llm"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Collector   CollectorConfig   `yaml:"collector"`
	Search      SearchConfig      `yaml:"search"`
	Enrich      EnrichConfig      `yaml:"enrich"`
	Paths       PathsConfig       `yaml:"paths"`
	Report      ReportConfig      `yaml:"report"`
	PDF         PDFConfig         `yaml:"pdf"`
	DB          DBConfig          `yaml:"db"`
	Writer      WriterConfig      `yaml:"template_writer"`
	SMTP        SMTPConfig        `yaml:"smtp"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	MaxPromptChars int    `yaml:"max_prompt_chars"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig LLM 调用限流
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// CollectorConfig 新闻采集配置
type CollectorConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	DelayMillis    int    `yaml:"delay_ms"`
	MinTitleLength int    `yaml:"min_title_length"`
	MaxCandidates  int    `yaml:"max_candidates"`
	UserAgent      string `yaml:"user_agent"`
}

// SearchConfig 搜索兜底配置（竞品未配置新闻源时使用）
type SearchConfig struct {
	Provider   string        `yaml:"provider"`
	MaxResults int           `yaml:"max_results"`
	Tavily     TavilyConfig  `yaml:"tavily"`
	SearXNG    SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// EnrichConfig 新闻正文补全配置
type EnrichConfig struct {
	Enabled  bool `yaml:"enabled"`
	MaxItems int  `yaml:"max_items"`
	MaxChars int  `yaml:"max_chars"`
}

// PathsConfig 数据与产物目录
type PathsConfig struct {
	DataDir      string `yaml:"data_dir"`
	Template     string `yaml:"template"`
	ManualScores string `yaml:"manual_scores"`
	ReportsDir   string `yaml:"reports_dir"`
}

// ReportConfig 报告版式
type ReportConfig struct {
	Version      string      `yaml:"version"`
	NewsPerSlide int         `yaml:"news_per_slide"`
	Font         string      `yaml:"font"`
	Brand        BrandConfig `yaml:"brand"`
}

// BrandConfig 品牌色（RRGGBB）
type BrandConfig struct {
	QuantumBlue string `yaml:"quantum_blue"`
	MintSignal  string `yaml:"mint_signal"`
}

// PDFConfig PDF 导出配置
type PDFConfig struct {
	UseLibreOffice  bool   `yaml:"use_libreoffice"`
	LibreOfficePath string `yaml:"libreoffice_path"`
}

// DBConfig 归档数据库配置，Host 为空时不归档
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// WriterConfig 文档填充工具的预置模板
type WriterConfig struct {
	Docx string `yaml:"docx"`
	Pptx string `yaml:"pptx"`
}

// SMTPConfig 纪要邮件发送配置，Host 为空时不发送
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// DefaultHighImpactTopic 默认的高影响主题
const DefaultHighImpactTopic = "Partnerships/Expansion"

// LoadConfig 从指定路径加载配置，补全默认值并校验
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析 YAML 内容
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Competitors) == 0 {
		c.Competitors = c.Empresas
	}
	if len(c.HighImpactTopics) == 0 {
		c.HighImpactTopics = []string{DefaultHighImpactTopic}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxPromptChars <= 0 {
		c.LLM.MaxPromptChars = 12000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 20
	}

	col := &c.Collector
	if col.TimeoutSeconds <= 0 {
		col.TimeoutSeconds = 15
	}
	if col.DelayMillis <= 0 {
		col.DelayMillis = 1000
	}
	if col.MinTitleLength <= 0 {
		col.MinTitleLength = 30
	}
	if col.MaxCandidates <= 0 {
		col.MaxCandidates = 30
	}
	if col.UserAgent == "" {
		col.UserAgent = "Mozilla/5.0 (compatible; CompetitorRadar/1.0)"
	}

	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 10
	}
	if c.Enrich.MaxItems <= 0 {
		c.Enrich.MaxItems = 20
	}
	if c.Enrich.MaxChars <= 0 {
		c.Enrich.MaxChars = 5000
	}

	p := &c.Paths
	if p.DataDir == "" {
		p.DataDir = "data"
	}
	if p.Template == "" {
		p.Template = filepath.Join("templates", "radar_template.pptx")
	}
	if p.ManualScores == "" {
		p.ManualScores = filepath.Join(p.DataDir, "raw", "manual_scores.csv")
	}
	if p.ReportsDir == "" {
		p.ReportsDir = filepath.Join("reports", "out")
	}

	r := &c.Report
	if r.Version == "" {
		r.Version = "v3"
	}
	if r.NewsPerSlide <= 0 {
		r.NewsPerSlide = 12
	}
	if r.Font == "" {
		r.Font = "Space Grotesk"
	}
	if r.Brand.QuantumBlue == "" {
		r.Brand.QuantumBlue = "0B1F3A"
	}
	if r.Brand.MintSignal == "" {
		r.Brand.MintSignal = "3EF2C4"
	}

	if c.PDF.LibreOfficePath == "" {
		c.PDF.LibreOfficePath = "soffice"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}

	if c.Writer.Docx == "" {
		c.Writer.Docx = filepath.Join("templates", "report_template.docx")
	}
	if c.Writer.Pptx == "" {
		c.Writer.Pptx = filepath.Join("templates", "report_template.pptx")
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

// applyEnvOverrides 敏感信息优先从环境变量读取
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("RADAR_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.Search.Tavily.APIKey = v
	}
	if v := os.Getenv("RADAR_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && v > 0 {
		c.SMTP.Port = v
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.SMTP.User = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		c.SMTP.Password = v
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.User
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error

	if _, err := model.ParsePeriod(c.Periodo); err != nil {
		errs = append(errs, fmt.Errorf("periodo: %w", err))
	}
	if len(c.Axes) == 0 {
		errs = append(errs, errors.New("axes: at least one {name, weight} entry is required"))
	}

	seen := make(map[string]bool, len(c.Axes))
	total := 0.0
	for i, a := range c.Axes {
		name := strings.TrimSpace(a.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("axes[%d]: name is empty", i))
		case seen[name]:
			errs = append(errs, fmt.Errorf("axes[%d]: duplicate axis %q", i, name))
		}
		seen[name] = true
		if a.Weight < 0 || math.IsNaN(a.Weight) || math.IsInf(a.Weight, 0) {
			errs = append(errs, fmt.Errorf("axes[%d]: weight of %q must be a finite value >= 0", i, name))
			continue
		}
		total += a.Weight
	}
	if len(c.Axes) > 0 && total <= 0 {
		errs = append(errs, errors.New("axes: the sum of weights must be positive"))
	}

	for axis, signals := range c.AxisSignals {
		for signal, w := range signals {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				errs = append(errs, fmt.Errorf("axis_signals.%s.%s: weight must be finite", axis, signal))
			}
		}
	}

	dup := make(map[string]bool, len(c.Competitors))
	for _, name := range c.Competitors {
		if dup[name] {
			errs = append(errs, fmt.Errorf("competitors: duplicate entry %q", name))
		}
		dup[name] = true
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, errors.New("smtp: from (or user) is required when host is set"))
	}
	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp: port %d out of range", c.SMTP.Port))
	}

	return errors.Join(errs...)
}

// Period 返回当前运行周期
func (c *Config) Period() model.Period {
	p, _ := model.ParsePeriod(c.Periodo)
	return p
}

// WithRun 返回替换了周期和全局备注的副本，用于单次运行。空值表示沿用原配置。
func (c *Config) WithRun(period, notes string) (*Config, error) {
	cp := *c
	if period != "" {
		cp.Periodo = period
	}
	if notes != "" {
		cp.NotasGlobales = notes
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return &cp, nil
}
