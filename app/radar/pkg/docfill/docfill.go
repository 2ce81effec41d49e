package docfill

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/pptx"
)

// 占位符形如 {{ KEY }}，KEY 由字母、数字和下划线组成
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// 常见报告字段的展示顺序，其余字段按字母序排在后面
var fieldOrder = []string{
	"TITULO", "SUBTITULO", "CLIENTE", "FECHA", "AUTOR",
	"RESUMEN_EJECUTIVO", "CONTEXTO", "OBJETIVO", "ALCANCE",
	"HALLAZGO_1", "HALLAZGO_2", "HALLAZGO_3",
	"RECOMENDACION_1", "RECOMENDACION_2", "RECOMENDACION_3",
	"SIGUIENTES_PASOS", "RIESGO_1", "MITIGANTE_1", "RIESGO_2", "MITIGANTE_2", "ANEXOS",
}

// Format 模板格式
type Format string

const (
	Docx Format = "docx"
	Pptx Format = "pptx"
)

// ParseFormat 解析格式名，大小写不敏感，允许带点
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case Docx, Pptx:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected docx or pptx)", s)
	}
}

// FormatOf 按扩展名判断模板格式
func FormatOf(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Result 一次填充的结果
type Result struct {
	Replaced int      // 发生替换的段落次数
	Missing  []string // 模板中存在但没有提供值的占位符
}

// Placeholders 返回模板中的占位符，按常见字段顺序排列并去重
func Placeholders(path string) ([]string, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	var texts []string
	switch f {
	case Docx:
		doc, err := openDocument(path)
		if err != nil {
			return nil, err
		}
		texts = doc.paragraphs()
	case Pptx:
		d, err := pptx.Open(path)
		if err != nil {
			return nil, err
		}
		for i := 0; i < d.SlideCount(); i++ {
			t, err := d.Texts(i)
			if err != nil {
				return nil, err
			}
			texts = append(texts, t...)
		}
	}

	found := map[string]bool{}
	for _, t := range texts {
		for _, m := range placeholderRe.FindAllStringSubmatch(t, -1) {
			found[m[1]] = true
		}
	}
	keys := make([]string, 0, len(found))
	for k := range found {
		keys = append(keys, k)
	}
	return Order(keys), nil
}

// Order 按常见报告字段顺序排序，未知字段按字母序排在后面
func Order(keys []string) []string {
	rank := make(map[string]int, len(fieldOrder))
	for i, k := range fieldOrder {
		rank[k] = i
	}
	out := append([]string(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// Fill 用 values 替换模板中的占位符并原子写入 out。没有值的占位符保持原样。
func Fill(template, out string, values map[string]string) (Result, error) {
	f, err := FormatOf(template)
	if err != nil {
		return Result{}, err
	}
	if of, err := FormatOf(out); err != nil || of != f {
		return Result{}, fmt.Errorf("output %s must have the template's .%s extension", out, f)
	}

	switch f {
	case Docx:
		return fillDocx(template, out, values)
	default:
		return fillPptx(template, out, values)
	}
}

func fillPptx(template, out string, values map[string]string) (Result, error) {
	d, err := pptx.Open(template)
	if err != nil {
		return Result{}, err
	}

	var res Result
	missing := map[string]bool{}
	for i := 0; i < d.SlideCount(); i++ {
		texts, err := d.Texts(i)
		if err != nil {
			return Result{}, err
		}
		// 同一个键可能写成 {{KEY}} 或 {{ KEY }}，逐个原样替换
		tokens := map[string]string{}
		for _, t := range texts {
			for _, m := range placeholderRe.FindAllStringSubmatch(t, -1) {
				tokens[m[0]] = m[1]
			}
		}
		for token, key := range tokens {
			v, ok := values[key]
			if !ok {
				missing[key] = true
				continue
			}
			n, err := d.ReplaceText(i, token, v, nil)
			if err != nil {
				return Result{}, err
			}
			res.Replaced += n
		}
	}
	if err := d.Save(out); err != nil {
		return Result{}, err
	}
	res.Missing = sortedKeys(missing)
	return res, nil
}

func fillDocx(template, out string, values map[string]string) (Result, error) {
	doc, err := openDocument(template)
	if err != nil {
		return Result{}, err
	}
	res := doc.fill(values)
	if err := doc.save(out); err != nil {
		return Result{}, err
	}
	return res, nil
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return Order(out)
}
