package tool

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/mailer"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/minutes"
)

// MinutesTool 由会议转写稿生成纪要
type MinutesTool struct {
	gen        llm.Generator
	mail       *mailer.Mailer
	reportsDir string
	now        func() time.Time
}

// NewMinutesTool 创建纪要工具，mail 为 nil 时不支持邮件发送
func NewMinutesTool(gen llm.Generator, mail *mailer.Mailer, reportsDir string) *MinutesTool {
	return &MinutesTool{gen: gen, mail: mail, reportsDir: reportsDir, now: time.Now}
}

// Name implements Tool
func (t *MinutesTool) Name() string { return "minutes" }

// Description implements Tool
func (t *MinutesTool) Description() string {
	return "Meeting minutes: summarize a transcript into decisions, agreements, tasks and risks. " +
		"Params: transcript (text), project, date, block_tokens, email_to (comma-separated recipients)."
}

// Run implements Tool
func (t *MinutesTool) Run(ctx context.Context, req Request) (Artifact, error) {
	text := req.Param("transcript", "")
	if text == "" {
		return Artifact{}, &ParamError{Param: "transcript", Reason: "is required"}
	}

	s := minutes.NewSummarizer(t.gen)
	if v := req.Param("block_tokens", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 100 {
			return Artifact{}, &ParamError{Param: "block_tokens", Reason: fmt.Sprintf("must be an integer >= 100, got %q", v)}
		}
		s.SetBlockSize(n, n+n/4)
	}

	var recipients []string
	if v := req.Param("email_to", ""); v != "" {
		var err error
		if recipients, err = mailer.ParseRecipients(v); err != nil {
			return Artifact{}, &ParamError{Param: "email_to", Reason: "is invalid", Err: err}
		}
	}

	m, err := s.Summarize(ctx, text)
	if err != nil {
		return Artifact{}, err
	}

	now := t.now()
	m.Project = req.Param("project", "")
	m.Date = req.Param("date", now.Format(time.DateOnly))
	path, err := minutes.Save(t.reportsDir, m, now)
	if err != nil {
		return Artifact{}, err
	}
	logger.Log.Infof("用户 [%s] 生成会议纪要: %s", req.Session.Username, path)

	summary := fmt.Sprintf("%d block(s), %d task(s), %d decision(s)", m.Blocks, len(m.Tasks), len(m.Decisions))
	if len(recipients) > 0 {
		summary += "; " + t.email(m, path, recipients)
	}
	return Artifact{
		Tool:    t.Name(),
		Name:    filepath.Base(path),
		Path:    path,
		Summary: summary,
	}, nil
}

// email 发送纪要，失败只记录日志，不影响已生成的文件
func (t *MinutesTool) email(m minutes.Minutes, path string, to []string) string {
	if !t.mail.Enabled() {
		logger.Log.Warnf("未配置 SMTP，纪要未发送给 %s", strings.Join(to, ", "))
		return "email not sent: smtp is not configured"
	}
	body, err := minutes.Render(m)
	if err != nil {
		logger.Log.Warnf("纪要邮件正文渲染失败: %v", err)
		return "email not sent"
	}

	title := m.Project
	if title == "" {
		title = "meeting"
	}
	err = t.mail.Send(mailer.Message{
		Subject:     fmt.Sprintf("Minutes: %s (%s)", title, m.Date),
		Body:        body,
		To:          to,
		Attachments: []string{path, jsonPath(path)},
	})
	if err != nil {
		logger.Log.Warnf("纪要邮件发送失败: %v", err)
		return "email not sent"
	}
	return fmt.Sprintf("emailed to %d recipient(s)", len(to))
}

func jsonPath(mdPath string) string {
	return strings.TrimSuffix(mdPath, ".md") + ".json"
}
