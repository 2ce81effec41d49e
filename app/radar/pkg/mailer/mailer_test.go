package mailer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
)

type sent struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  []byte
}

func newTestMailer(cfg config.SMTPConfig, got *sent, err error) *Mailer {
	m := New(cfg).WithSender(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*got = sent{addr: addr, auth: a, from: from, to: to, msg: msg}
		return err
	})
	m.now = func() time.Time { return time.Date(2025, 11, 1, 9, 30, 0, 0, time.UTC) }
	return m
}

func TestSend(t *testing.T) {
	dir := t.TempDir()
	attachment := filepath.Join(dir, "minutes_20251101-093000.json")
	require.NoError(t, os.WriteFile(attachment, []byte(`{"project":"Weekly sync"}`), 0o644))

	var got sent
	m := newTestMailer(config.SMTPConfig{
		Host: "smtp.example.com", Port: 587, User: "radar@example.com", Password: "pw", From: "Radar <radar@example.com>",
	}, &got, nil)

	err := m.Send(Message{
		Subject:     "Minuta: reunión semanal",
		Body:        "Acuerdos\n- piloto en marzo",
		To:          []string{"ana@example.com", "luis@example.com"},
		Attachments: []string{attachment},
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", got.addr)
	assert.NotNil(t, got.auth)
	assert.Equal(t, "radar@example.com", got.from)
	assert.Equal(t, []string{"ana@example.com", "luis@example.com"}, got.to)

	msg, err := mail.ReadMessage(bytes.NewReader(got.msg))
	require.NoError(t, err)
	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Minuta: reunión semanal", subject)
	assert.Equal(t, "ana@example.com, luis@example.com", msg.Header.Get("To"))
	assert.Equal(t, `"Radar" <radar@example.com>`, msg.Header.Get("From"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	text, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(text)
	require.NoError(t, err)
	assert.Equal(t, "Acuerdos\r\n- piloto en marzo", string(body))

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "minutes_20251101-093000.json", att.FileName())
	raw, err := io.ReadAll(att)
	require.NoError(t, err)
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(raw), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, `{"project":"Weekly sync"}`, string(data))

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSendErrors(t *testing.T) {
	var got sent
	assert.ErrorIs(t, New(config.SMTPConfig{}).Send(Message{To: []string{"a@example.com"}}), ErrDisabled)

	var nilMailer *Mailer
	assert.False(t, nilMailer.Enabled())

	m := newTestMailer(config.SMTPConfig{Host: "localhost", Port: 25, From: "radar@example.com"}, &got, errors.New("connection refused"))
	assert.ErrorContains(t, m.Send(Message{}), "no recipients")

	err := m.Send(Message{To: []string{"a@example.com"}, Attachments: []string{filepath.Join(t.TempDir(), "absent.md")}})
	assert.ErrorContains(t, err, "read attachment")

	err = m.Send(Message{Subject: "x", To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "connection refused")
	assert.Nil(t, got.auth, "no credentials, no auth")
}

func TestParseRecipients(t *testing.T) {
	got, err := ParseRecipients("Ana <ana@example.com>, luis@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com", "luis@example.com"}, got)

	_, err = ParseRecipients("not an address")
	assert.Error(t, err)
}
