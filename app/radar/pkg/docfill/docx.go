package docfill

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

const documentPath = "word/document.xml"

var (
	// 正文、页眉、页脚中的段落都参与替换
	wordPartRe = regexp.MustCompile(`^word/(?:document|header\d*|footer\d*)\.xml$`)
	wordParaRe = regexp.MustCompile(`(?s)<w:p(?:\s[^>/]*)?>.*?</w:p>`)
	wordTextRe = regexp.MustCompile(`(?s)<w:t(?:\s[^>/]*)?>(.*?)</w:t>`)
)

// document 内存中的 docx 包
type document struct {
	parts map[string][]byte
	order []string
}

func openDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%s is not a docx package: %w", path, err)
	}

	doc := &document{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		doc.parts[f.Name] = b
		doc.order = append(doc.order, f.Name)
	}
	if _, ok := doc.parts[documentPath]; !ok {
		return nil, fmt.Errorf("%s is not a docx package: missing %s", path, documentPath)
	}
	return doc, nil
}

func (d *document) textParts() []string {
	var out []string
	for _, name := range d.order {
		if wordPartRe.MatchString(name) {
			out = append(out, name)
		}
	}
	return out
}

// paragraphs 所有文本部件中非空段落的纯文本
func (d *document) paragraphs() []string {
	var out []string
	for _, name := range d.textParts() {
		for _, para := range wordParaRe.FindAllString(string(d.parts[name]), -1) {
			if t := wordParagraphText(para); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func wordParagraphText(para string) string {
	var sb strings.Builder
	for _, m := range wordTextRe.FindAllStringSubmatch(para, -1) {
		sb.WriteString(html.UnescapeString(m[1]))
	}
	return sb.String()
}

// fill 以段落为粒度替换占位符：段落文本拼接后替换，结果写入第一个 w:t，
// 其余 w:t 清空，run 的格式与段落中的其他元素保持不变
func (d *document) fill(values map[string]string) Result {
	var res Result
	missing := map[string]bool{}
	for _, name := range d.textParts() {
		changed := false
		out := wordParaRe.ReplaceAllStringFunc(string(d.parts[name]), func(para string) string {
			text := wordParagraphText(para)
			hit := false
			replaced := placeholderRe.ReplaceAllStringFunc(text, func(token string) string {
				key := placeholderRe.FindStringSubmatch(token)[1]
				v, ok := values[key]
				if !ok {
					missing[key] = true
					return token
				}
				hit = true
				return v
			})
			if !hit {
				return para
			}
			res.Replaced++
			changed = true
			return rewriteWordText(para, replaced)
		})
		if changed {
			d.parts[name] = []byte(out)
		}
	}
	res.Missing = sortedKeys(missing)
	return res
}

func rewriteWordText(para, text string) string {
	locs := wordTextRe.FindAllStringIndex(para, -1)
	var sb strings.Builder
	last := 0
	for i, loc := range locs {
		sb.WriteString(para[last:loc[0]])
		if i == 0 {
			sb.WriteString(wordText(text))
		} else {
			sb.WriteString(`<w:t xml:space="preserve"></w:t>`)
		}
		last = loc[1]
	}
	sb.WriteString(para[last:])
	return sb.String()
}

// wordText 值中的换行写成同一 run 内的 w:br
func wordText(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = escape(l)
	}
	return `<w:t xml:space="preserve">` + strings.Join(lines, `</w:t><w:br/><w:t xml:space="preserve">`) + `</w:t>`
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func (d *document) write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range d.order {
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(d.parts[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (d *document) save(path string) error {
	return store.WriteFileAtomic(path, d.write)
}
