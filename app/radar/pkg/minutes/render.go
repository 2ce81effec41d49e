package minutes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/template"
	"time"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

const markdownTpl = `# Meeting minutes{{if .Project}}: {{.Project}}{{end}}

{{if .Date}}**Date:** {{.Date}}
{{end}}
## Summary

{{.Summary}}
{{template "list" dict "Title" "Key points" "Items" .KeyPoints}}
{{- template "list" dict "Title" "Decisions" "Items" .Decisions}}
{{- template "list" dict "Title" "Agreements" "Items" .Agreements}}
{{- template "list" dict "Title" "Tasks" "Items" .Tasks}}
{{- template "list" dict "Title" "Risks" "Items" .Risks}}
{{- template "list" dict "Title" "Next steps" "Items" .NextSteps}}
{{- define "list"}}
## {{.Title}}

{{range .Items}}- {{.}}
{{else}}- None recorded
{{end}}{{end}}`

var tpl = template.Must(template.New("minutes").Funcs(template.FuncMap{
	"dict": func(kv ...any) map[string]any {
		m := make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m[kv[i].(string)] = kv[i+1]
		}
		return m
	},
}).Parse(markdownTpl))

// Render 渲染 Markdown 纪要
func Render(m Minutes) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Save 将纪要写入 dir/minutes_<时间戳>.md，同时写一份 .json，返回 .md 路径
func Save(dir string, m Minutes, at time.Time) (string, error) {
	md, err := Render(m)
	if err != nil {
		return "", fmt.Errorf("render minutes: %w", err)
	}

	base := filepath.Join(dir, "minutes_"+at.Format("20060102-150405"))
	if err := store.WriteFileAtomic(base+".json", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}); err != nil {
		return "", err
	}

	path := base + ".md"
	if err := store.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, md)
		return err
	}); err != nil {
		return "", err
	}
	return path, nil
}
