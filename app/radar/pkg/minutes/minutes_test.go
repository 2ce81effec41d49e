package minutes

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

func words(n int, w string) string {
	return strings.TrimSpace(strings.Repeat(w+" ", n))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 4, EstimateTokens("one two three"))
	assert.Equal(t, 130, EstimateTokens(words(100, "x")))
}

func TestChunkPacksParagraphs(t *testing.T) {
	para := words(100, "a")
	text := strings.Join([]string{para, para, para, para, para}, "\n")

	blocks := Chunk(text, 300, 400)
	require.Len(t, blocks, 3)
	assert.Equal(t, para+"\n"+para, blocks[0])
	assert.Equal(t, para, blocks[2])
}

func TestChunkOversizedParagraph(t *testing.T) {
	small, giant := words(100, "s"), words(500, "g")
	blocks := Chunk(strings.Join([]string{small, giant, small}, "\n"), 300, 400)
	require.Len(t, blocks, 3)
	assert.Equal(t, giant, blocks[1])
}

func TestChunkEmpty(t *testing.T) {
	assert.Empty(t, Chunk("", 0, 0))
	assert.Empty(t, Chunk("\n \n", 0, 0))
}

const transcript = `Ana: we reviewed the onboarding funnel
Luis: the pilot with two clients starts next week
Ana: data from the CRM is still late
Marta: I will prepare the dashboard`

func TestSummarizeDemo(t *testing.T) {
	m, err := NewSummarizer(nil).Summarize(context.Background(), transcript)
	require.NoError(t, err)

	assert.True(t, m.Demo)
	assert.Equal(t, 1, m.Blocks)
	assert.True(t, strings.HasPrefix(m.Summary, DemoNotice))
	assert.Equal(t, []string{
		"Ana: we reviewed the onboarding funnel",
		"Luis: the pilot with two clients starts next week",
		"Ana: data from the CRM is still late",
	}, m.KeyPoints)
	assert.Empty(t, m.Decisions)
	assert.NotEmpty(t, m.NextSteps)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := NewSummarizer(nil).Summarize(context.Background(), "  \n")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

type scriptedGen struct {
	prompts []string
}

func (g *scriptedGen) Complete(_ context.Context, req llm.Request) llm.Response {
	g.prompts = append(g.prompts, req.Prompt)
	fields := map[string]string{}
	switch {
	case strings.Contains(req.Prompt, "Transcript block"):
		fields[FieldKeyPoints] = "Pilot approved"
		fields[FieldDecisions] = "Start pilot"
		fields[FieldAgreements] = ""
		fields[FieldTasks] = "Prepare dashboard | Marta | | "
		fields[FieldRisks] = "CRM delay"
	case strings.Contains(req.Prompt, "Partial summaries"):
		fields[FieldSummary] = "Draft summary"
		fields[FieldDecisions] = "Start pilot"
		fields[FieldAgreements] = "Weekly report"
		fields[FieldTasks] = "- Prepare dashboard | Marta | Pending | Pending\n- Send notes | Ana | 2025-11-03 | sent"
		fields[FieldRisks] = "CRM delay"
		fields[FieldNextSteps] = "Committee review"
	default:
		for _, f := range req.Fields {
			fields[f] = req.Fallback[f]
		}
		fields[FieldSummary] = "Checked summary"
	}
	return llm.Response{Fields: fields, FromModel: true}
}

func TestSummarizeMapReduceCheck(t *testing.T) {
	gen := &scriptedGen{}
	s := NewSummarizer(gen)
	s.SetBlockSize(10, 12)

	m, err := s.Summarize(context.Background(), transcript)
	require.NoError(t, err)

	require.Equal(t, 4, m.Blocks)
	assert.Len(t, gen.prompts, m.Blocks+2, "one call per block, then reduce and check")
	assert.False(t, m.Demo)
	assert.Equal(t, "Checked summary", m.Summary)
	assert.Equal(t, []string{"Pilot approved"}, m.KeyPoints)
	assert.Equal(t, []string{"Prepare dashboard | Marta | Pending | Pending", "Send notes | Ana | 2025-11-03 | sent"}, m.Tasks)
	assert.Contains(t, gen.prompts[m.Blocks], `"decisions": "Start pilot"`)
}

func TestSummarizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSummarizer(nil).Summarize(ctx, transcript)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderAndSave(t *testing.T) {
	dir := t.TempDir()
	m := Minutes{
		Project:   "Weekly sync",
		Date:      "2025-11-01",
		Summary:   "Pilot approved.",
		KeyPoints: []string{"Pilot approved"},
		Tasks:     []string{"Prepare dashboard | Marta | Pending | Pending"},
	}

	at := time.Date(2025, 11, 1, 9, 30, 0, 0, time.UTC)
	path, err := Save(dir, m, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "minutes_20251101-093000.md"), path)
	assert.True(t, store.Exists(filepath.Join(dir, "minutes_20251101-093000.json")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)
	assert.True(t, strings.HasPrefix(md, "# Meeting minutes: Weekly sync\n"))
	assert.Contains(t, md, "**Date:** 2025-11-01")
	assert.Contains(t, md, "## Key points\n\n- Pilot approved\n")
	assert.Contains(t, md, "## Decisions\n\n- None recorded\n")
	assert.Contains(t, md, "## Tasks\n\n- Prepare dashboard | Marta | Pending | Pending\n")
}

func TestLoadTranscript(t *testing.T) {
	dir := t.TempDir()

	srt := filepath.Join(dir, "call.srt")
	require.NoError(t, os.WriteFile(srt, []byte("1\r\n00:00:01,000 --> 00:00:03,000\r\nHello team\r\n\r\n2\r\n00:00:04,000 --> 00:00:06,000\r\nLet's start\r\n"), 0o644))
	text, err := LoadTranscript(srt)
	require.NoError(t, err)
	assert.Equal(t, "Hello team\nLet's start", text)

	vtt := filepath.Join(dir, "call.vtt")
	require.NoError(t, os.WriteFile(vtt, []byte("WEBVTT\n\n00:01.000 --> 00:03.000\nFirst line\n\n00:04.000 --> 00:06.000\nSecond line\n"), 0o644))
	text, err = LoadTranscript(vtt)
	require.NoError(t, err)
	assert.Equal(t, "First line\nSecond line", text)

	docx := filepath.Join(dir, "call.docx")
	f, err := os.Create(docx)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body><w:p><w:pPr/><w:r><w:t>Budget &amp; </w:t></w:r><w:r><w:t xml:space="preserve">scope</w:t></w:r></w:p><w:p><w:r><w:t>Next</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	text, err = LoadTranscript(docx)
	require.NoError(t, err)
	assert.Equal(t, "Budget & scope\nNext", text)

	_, err = LoadTranscript(filepath.Join(dir, "call.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transcript format")
}
