package minutes

import (
	"archive/zip"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	cueIndexRe = regexp.MustCompile(`^\d+$`)
	docxParaRe = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	docxTextRe = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
)

// LoadTranscript 读取 .txt / .srt / .vtt / .docx 转写稿，返回纯文本
func LoadTranscript(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil

	case ".srt", ".vtt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return subtitleText(string(data)), nil

	case ".docx":
		return docxText(path)

	default:
		return "", fmt.Errorf("unsupported transcript format %q (expected .txt, .srt, .vtt or .docx)", ext)
	}
}

// subtitleText 去掉字幕序号、时间轴与 WEBVTT 头
func subtitleText(s string) string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "",
			strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "NOTE"),
			strings.Contains(line, "-->"),
			cueIndexRe.MatchString(line):
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func docxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}

		var lines []string
		for _, para := range docxParaRe.FindAllString(string(data), -1) {
			var sb strings.Builder
			for _, m := range docxTextRe.FindAllStringSubmatch(para, -1) {
				sb.WriteString(html.UnescapeString(m[1]))
			}
			lines = append(lines, sb.String())
		}
		return strings.Join(lines, "\n"), nil
	}
	return "", fmt.Errorf("%s: word/document.xml not found", path)
}
