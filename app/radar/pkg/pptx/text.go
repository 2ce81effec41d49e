package pptx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Style 替换后文本的字体样式，零值字段保持模板原样
type Style struct {
	Size  float64 // 磅
	Bold  bool
	Color string // RRGGBB
	Font  string
}

var (
	paraRe     = regexp.MustCompile(`(?s)<a:p(?:\s[^>/]*)?>.*?</a:p>`)
	runRe      = regexp.MustCompile(`(?s)<a:r>(.*?)</a:r>`)
	runTextRe  = regexp.MustCompile(`(?s)<a:t(?:\s[^>]*)?>(.*?)</a:t>`)
	elemRe     = regexp.MustCompile(`(?s)<a:r>.*?</a:r>|<a:br\b[^>]*/>|<a:br\b[^>]*>.*?</a:br>|<a:fld\b[^>]*>.*?</a:fld>`)
	rPrRe      = regexp.MustCompile(`(?s)<a:rPr\b[^>]*/>|<a:rPr\b[^>]*>.*?</a:rPr>`)
	rPrOpenRe  = regexp.MustCompile(`^<a:rPr\b([^>]*?)/?>`)
	sizeBoldRe = regexp.MustCompile(`\s(?:sz|b)="[^"]*"`)
	fillRe     = regexp.MustCompile(`(?s)<a:(?:solidFill|gradFill|pattFill)\b.*?</a:(?:solidFill|gradFill|pattFill)>|<a:noFill/>`)
	latinRe    = regexp.MustCompile(`<a:latin\b[^>]*/>`)
	lnRe       = regexp.MustCompile(`(?s)<a:ln\b[^>]*/>|<a:ln\b[^>]*>.*?</a:ln>`)
	afterLatin = regexp.MustCompile(`<a:(?:ea|cs|sym|hlinkClick|hlinkMouseOver|rtl|extLst)\b`)
)

// paragraphText 段落内所有文本 run 拼接后的纯文本
func paragraphText(para string) string {
	var sb strings.Builder
	for _, run := range runRe.FindAllStringSubmatch(para, -1) {
		for _, t := range runTextRe.FindAllStringSubmatch(run[1], -1) {
			sb.WriteString(html.UnescapeString(t[1]))
		}
	}
	return sb.String()
}

// Texts 返回幻灯片中所有非空段落的文本
func (d *Deck) Texts(slide int) ([]string, error) {
	p, err := d.slidePath(slide)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, para := range paraRe.FindAllString(string(d.parts[p]), -1) {
		if t := paragraphText(para); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// ReplaceText 以段落为粒度替换占位符，返回替换的段落数。
// 软换行 a:br 与域字段 a:fld 把段落分成若干段，各段内 run 的文本先拼接再匹配，
// 结果写入该段第一个 run 并沿用其 rPr，a:br 与 a:fld 原样保留在段与段之间；
// 值中的换行拆分为多个段落，沿用原段落属性。跨段落的占位符不匹配。
func (d *Deck) ReplaceText(slide int, token, value string, style *Style) (int, error) {
	p, err := d.slidePath(slide)
	if err != nil {
		return 0, err
	}
	if token == "" {
		return 0, nil
	}

	count := 0
	out := paraRe.ReplaceAllStringFunc(string(d.parts[p]), func(para string) string {
		prefix, segs, suffix := splitParagraph(para)
		hit := false
		for i := range segs {
			if strings.Contains(segs[i].text, token) {
				segs[i].text = strings.ReplaceAll(segs[i].text, token, value)
				hit = true
			}
		}
		if !hit {
			return para
		}
		count++
		return rebuildParagraph(prefix, segs, suffix, style)
	})
	if count > 0 {
		d.set(p, []byte(out))
	}
	return count, nil
}

// segment 段落中一段连续的文本 run，keep 为紧随其后的 a:br 或 a:fld
type segment struct {
	rPr  string
	text string
	runs int
	keep string
}

func splitParagraph(para string) (string, []segment, string) {
	locs := elemRe.FindAllStringIndex(para, -1)
	if len(locs) == 0 {
		return para, nil, ""
	}
	prefix := para[:locs[0][0]]
	suffix := para[locs[len(locs)-1][1]:]

	var segs []segment
	var cur segment
	for _, loc := range locs {
		el := para[loc[0]:loc[1]]
		if !strings.HasPrefix(el, "<a:r>") {
			cur.keep = el
			segs = append(segs, cur)
			cur = segment{}
			continue
		}
		if cur.runs == 0 {
			cur.rPr = rPrRe.FindString(el)
		}
		cur.runs++
		for _, t := range runTextRe.FindAllStringSubmatch(el, -1) {
			cur.text += html.UnescapeString(t[1])
		}
	}
	return prefix, append(segs, cur), suffix
}

func rebuildParagraph(prefix string, segs []segment, suffix string, style *Style) string {
	base := ""
	for _, seg := range segs {
		if seg.runs > 0 {
			base = seg.rPr
			break
		}
	}

	var sb, body strings.Builder
	for _, seg := range segs {
		if seg.runs > 0 || seg.text != "" {
			rPr := seg.rPr
			if seg.runs == 0 {
				rPr = base
			}
			if style != nil {
				rPr = applyStyle(rPr, *style)
			}
			for i, line := range strings.Split(seg.text, "\n") {
				if i > 0 {
					sb.WriteString(prefix + body.String() + suffix)
					body.Reset()
				}
				body.WriteString(runXML(rPr, line))
			}
		}
		body.WriteString(seg.keep)
	}
	sb.WriteString(prefix + body.String() + suffix)
	return sb.String()
}

func runXML(rPr, text string) string {
	return "<a:r>" + rPr + "<a:t>" + escape(text) + "</a:t></a:r>"
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// applyStyle 覆盖 rPr 的字号、加粗、颜色与字体，保留其他属性与子元素
func applyStyle(rPr string, s Style) string {
	if rPr == "" {
		rPr = `<a:rPr lang="en-US" dirty="0"/>`
	}

	attrs := ""
	if m := rPrOpenRe.FindStringSubmatch(rPr); m != nil {
		attrs = strings.TrimSuffix(m[1], "/")
	}
	children := ""
	if !strings.HasSuffix(rPr, "/>") {
		open := rPrOpenRe.FindString(rPr)
		children = strings.TrimSuffix(strings.TrimPrefix(rPr, open), "</a:rPr>")
	}

	attrs = sizeBoldRe.ReplaceAllString(attrs, "")
	if s.Size > 0 {
		attrs += fmt.Sprintf(` sz="%d"`, int(s.Size*100+0.5))
	}
	if s.Bold {
		attrs += ` b="1"`
	} else {
		attrs += ` b="0"`
	}

	ln := ""
	if s.Color != "" {
		children = fillRe.ReplaceAllString(children, "")
	}
	if m := lnRe.FindString(children); m != "" {
		ln = m
		children = strings.Replace(children, m, "", 1)
	}
	fill := ""
	if s.Color != "" {
		fill = fmt.Sprintf(`<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, strings.TrimPrefix(s.Color, "#"))
	}
	if s.Font != "" {
		children = latinRe.ReplaceAllString(children, "")
		latin := fmt.Sprintf(`<a:latin typeface="%s"/>`, escape(s.Font))
		if loc := afterLatin.FindStringIndex(children); loc != nil {
			children = children[:loc[0]] + latin + children[loc[0]:]
		} else {
			children += latin
		}
	}

	return "<a:rPr" + attrs + ">" + ln + fill + children + "</a:rPr>"
}
