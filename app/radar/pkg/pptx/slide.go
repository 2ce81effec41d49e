package pptx

import (
	"fmt"
	"strconv"
	"strings"
)

const slideOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
	`<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">`

const groupProps = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

// TextBox 文本框：位置与逐行文本
type TextBox struct {
	Rect  Rect
	Lines []string
	Style *Style
}

func textBoxXML(id int, box TextBox) string {
	rPr := `<a:rPr lang="en-US" dirty="0"/>`
	if box.Style != nil {
		rPr = applyStyle(rPr, *box.Style)
	}

	var paras strings.Builder
	for _, line := range box.Lines {
		paras.WriteString("<a:p>")
		paras.WriteString(runXML(rPr, line))
		paras.WriteString("</a:p>")
	}
	if len(box.Lines) == 0 {
		paras.WriteString(`<a:p><a:endParaRPr lang="en-US" dirty="0"/></a:p>`)
	}

	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
			`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`+
			`<p:txBody><a:bodyPr wrap="square" rtlCol="0"><a:normAutofit/></a:bodyPr><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, id-1, emu(box.Rect.X), emu(box.Rect.Y), emu(box.Rect.W), emu(box.Rect.H), paras.String())
}

func slideXML(boxes []TextBox) string {
	var sb strings.Builder
	sb.WriteString(slideOpen)
	sb.WriteString("<p:cSld><p:spTree>")
	sb.WriteString(groupProps)
	for i, box := range boxes {
		sb.WriteString(textBoxXML(i+2, box))
	}
	sb.WriteString("</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>")
	return sb.String()
}

// AppendTextSlide 追加一张只含文本框的幻灯片，版式与第 layoutOf 张相同。返回新幻灯片序号（从 0 开始）。
func (d *Deck) AppendTextSlide(layoutOf int, box TextBox) (int, error) {
	src, err := d.slidePath(layoutOf)
	if err != nil {
		return 0, err
	}
	srcRels, err := d.readRels(src)
	if err != nil {
		return 0, err
	}
	layout, ok := srcRels.byType(relSlideLayout)
	if !ok {
		return 0, fmt.Errorf("slide %s has no layout relationship", src)
	}

	part := d.nextPartName("ppt/slides/slide", ".xml")
	d.set(part, []byte(slideXML([]TextBox{box})))

	rels := &relationships{}
	rels.add(relSlideLayout, relTarget(part, resolve(src, layout.Target)))
	if err := d.writeRels(part, rels); err != nil {
		return 0, err
	}
	d.addOverride(part, ctSlide)

	presRels, err := d.readRels(presentationPath)
	if err != nil {
		return 0, err
	}
	rid := presRels.add(relSlide, relTarget(presentationPath, part))
	if err := d.writeRels(presentationPath, presRels); err != nil {
		return 0, err
	}

	pres := string(d.parts[presentationPath])
	if !strings.Contains(pres, "</p:sldIdLst>") {
		return 0, fmt.Errorf("%s has no slide list", presentationPath)
	}
	entry := fmt.Sprintf(`<p:sldId id="%d" r:id="%s"/>`, nextSlideID(pres), rid)
	d.set(presentationPath, []byte(strings.Replace(pres, "</p:sldIdLst>", entry+"</p:sldIdLst>", 1)))

	return d.SlideCount() - 1, nil
}

func nextSlideID(pres string) int {
	maxID := 255
	for _, tag := range sldIDTagRe.FindAllString(pres, -1) {
		if m := sldIDRe.FindStringSubmatch(tag); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxID {
				maxID = n
			}
		}
	}
	return maxID + 1
}
