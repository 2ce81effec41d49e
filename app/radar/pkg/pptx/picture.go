package pptx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"regexp"
	"strconv"
	"strings"
)

var cNvPrIDRe = regexp.MustCompile(`<p:cNvPr\b[^>]*?\sid="(\d+)"`)

// AddPicture 在幻灯片上插入 PNG 图片。rect.H 为 0 时按图片宽高比计算高度。
func (d *Deck) AddPicture(slide int, png []byte, rect Rect) error {
	p, err := d.slidePath(slide)
	if err != nil {
		return err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return fmt.Errorf("decode picture: %w", err)
	}
	if format != "png" {
		return fmt.Errorf("unsupported picture format %q", format)
	}
	if rect.H <= 0 && cfg.Width > 0 {
		rect.H = rect.W * float64(cfg.Height) / float64(cfg.Width)
	}

	media := d.nextPartName("ppt/media/image", ".png")
	d.set(media, png)
	d.ensureDefault("png", "image/png")

	rels, err := d.readRels(p)
	if err != nil {
		return err
	}
	rid := rels.add(relImage, relTarget(p, media))
	if err := d.writeRels(p, rels); err != nil {
		return err
	}

	slideXML := string(d.parts[p])
	id := nextShapeID(slideXML)
	pic := fmt.Sprintf(
		`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`+
			`<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
			`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		id, id-1, rid, emu(rect.X), emu(rect.Y), emu(rect.W), emu(rect.H))

	i := strings.LastIndex(slideXML, "</p:spTree>")
	if i < 0 {
		return fmt.Errorf("slide %s has no shape tree", p)
	}
	d.set(p, []byte(slideXML[:i]+pic+slideXML[i:]))
	return nil
}

func nextShapeID(slideXML string) int {
	maxID := 1
	for _, m := range cNvPrIDRe.FindAllStringSubmatch(slideXML, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxID {
			maxID = n
		}
	}
	return maxID + 1
}
