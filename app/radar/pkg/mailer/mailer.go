package mailer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
)

// ErrDisabled 未配置 SMTP 主机
var ErrDisabled = errors.New("smtp is not configured")

// Message 纯文本邮件，附件为本地文件路径
type Message struct {
	Subject     string
	Body        string
	To          []string
	Attachments []string
}

// SendFunc 与 smtp.SendMail 相同的签名
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer SMTP 发信。服务器支持时 smtp.SendMail 会先 STARTTLS 再认证。
type Mailer struct {
	cfg  config.SMTPConfig
	send SendFunc
	now  func() time.Time
}

// New 创建发信器
func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// WithSender 替换底层发送函数
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	m.send = send
	return m
}

// Enabled 是否配置了 SMTP 主机
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

// Send 发送邮件
func (m *Mailer) Send(msg Message) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	if len(msg.To) == 0 {
		return errors.New("no recipients")
	}
	from, err := mail.ParseAddress(m.cfg.From)
	if err != nil {
		return fmt.Errorf("smtp from %q: %w", m.cfg.From, err)
	}

	raw, err := Build(from.String(), msg, m.now())
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, from.Address, msg.To, raw); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	logger.Log.Infof("邮件已发送: %q → %s", msg.Subject, strings.Join(msg.To, ", "))
	return nil
}

// ParseRecipients 解析逗号分隔的收件人列表，返回纯地址
func ParseRecipients(s string) ([]string, error) {
	list, err := mail.ParseAddressList(s)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out, nil
}

// Build 生成 multipart/mixed 邮件：正文为 quoted-printable 纯文本，附件为 base64
func Build(from string, msg Message, date time.Time) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, err
	}
	qp := quotedprintable.NewWriter(text)
	if _, err := qp.Write([]byte(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}

	for _, path := range msg.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		name := filepath.Base(path)
		ctype := mime.TypeByExtension(filepath.Ext(name))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ctype},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&out, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()}))
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// writeBase64 按 RFC 2045 每行 76 个字符
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 0 {
		n := min(76, len(enc))
		if _, err := fmt.Fprintf(w, "%s\r\n", enc[:n]); err != nil {
			return err
		}
		enc = enc[n:]
	}
	return nil
}
