package pptx

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skeleton(t *testing.T, slides ...[]string) *Deck {
	t.Helper()
	var boxes [][]TextBox
	for _, lines := range slides {
		boxes = append(boxes, []TextBox{{Rect: Rect{X: 0.5, Y: 0.5, W: 12, H: 6}, Lines: lines}})
	}
	var buf bytes.Buffer
	require.NoError(t, WriteSkeleton(&buf, boxes))

	d, err := Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return d
}

func reopen(t *testing.T, d *Deck) *Deck {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))
	out, err := Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return out
}

func TestSkeletonRoundTrip(t *testing.T) {
	d := skeleton(t, []string{"{{PERIOD}}", "Summary: {{EXECUTIVE_SUMMARY}}"}, []string{"{{NEWS_TABLE}}"})
	assert.Equal(t, 2, d.SlideCount())

	texts, err := d.Texts(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"{{PERIOD}}", "Summary: {{EXECUTIVE_SUMMARY}}"}, texts)

	_, err = d.Texts(5)
	assert.ErrorIs(t, err, ErrSlideRange)
}

func TestReadRejectsNonPptx(t *testing.T) {
	_, err := Read(strings.NewReader("plain text"), 10)
	assert.Error(t, err)
}

func TestReplaceTextKeepsStyleAndSplitsLines(t *testing.T) {
	d := skeleton(t, []string{"Summary: {{EXECUTIVE_SUMMARY}}", "untouched"})

	n, err := d.ReplaceText(0, "{{EXECUTIVE_SUMMARY}}", "line one\nline <two> & more", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d = reopen(t, d)
	texts, err := d.Texts(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Summary: line one", "line <two> & more", "untouched"}, texts)

	xml := string(d.parts["ppt/slides/slide1.xml"])
	assert.Contains(t, xml, "line &lt;two&gt; &amp; more")

	n, err = d.ReplaceText(0, "{{MISSING}}", "x", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

const splitRunSlide = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` + groupProps +
	`<p:sp><p:nvSpPr><p:cNvPr id="4" name="Body"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>` +
	`<a:p><a:pPr algn="ctr"/>` +
	`<a:r><a:rPr lang="es-CL" sz="2000" b="1" dirty="0"><a:solidFill><a:srgbClr val="FF0000"/></a:solidFill><a:latin typeface="Arial"/><a:cs typeface="Arial"/></a:rPr><a:t>Ranking {{RANK</a:t></a:r>` +
	`<a:r><a:rPr lang="es-CL" sz="1000"/><a:t>ING_TABLE}}</a:t></a:r>` +
	`<a:endParaRPr lang="es-CL"/></a:p>` +
	`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

func TestReplaceTextAcrossRuns(t *testing.T) {
	d := skeleton(t, []string{"placeholder"})
	d.set("ppt/slides/slide1.xml", []byte(splitRunSlide))

	n, err := d.ReplaceText(0, "{{RANKING_TABLE}}", "1. Acme: 100.0\n2. UBIMIA: 37.5", nil)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	xml := string(d.parts["ppt/slides/slide1.xml"])
	assert.Equal(t, 2, strings.Count(xml, `<a:pPr algn="ctr"/>`), "paragraph properties are cloned per line")
	assert.Equal(t, 2, strings.Count(xml, `sz="2000" b="1"`), "first run formatting is kept")
	assert.NotContains(t, xml, `sz="1000"`)

	texts, err := d.Texts(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ranking 1. Acme: 100.0", "2. UBIMIA: 37.5"}, texts)
}

const breakSlide = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` + groupProps +
	`<p:sp><p:nvSpPr><p:cNvPr id="4" name="Footer"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>` +
	`<a:p>` +
	`<a:r><a:rPr lang="es-CL" sz="1200"/><a:t>Cliente: {{CLIENTE}}</a:t></a:r>` +
	`<a:br><a:rPr lang="es-CL"/></a:br>` +
	`<a:r><a:rPr lang="es-CL" sz="900"/><a:t>Fecha {{FECHA}} p. </a:t></a:r>` +
	`<a:fld id="{B6F15528-21DE-4FAA-801E-634DDDAF4B2B}" type="slidenum"><a:rPr lang="es-CL"/><a:t>‹#›</a:t></a:fld>` +
	`<a:endParaRPr lang="es-CL"/></a:p>` +
	`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

func TestReplaceTextKeepsBreaksAndFields(t *testing.T) {
	d := skeleton(t, []string{"placeholder"})
	d.set("ppt/slides/slide1.xml", []byte(breakSlide))

	n, err := d.ReplaceText(0, "{{CLIENTE}}", "Acme", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = d.ReplaceText(0, "{{FECHA}}", "2025-03", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	xml := string(d.parts["ppt/slides/slide1.xml"])
	assert.Contains(t, xml, `<a:r><a:rPr lang="es-CL" sz="1200"/><a:t>Cliente: Acme</a:t></a:r>`+
		`<a:br><a:rPr lang="es-CL"/></a:br>`+
		`<a:r><a:rPr lang="es-CL" sz="900"/><a:t>Fecha 2025-03 p. </a:t></a:r>`+
		`<a:fld id="{B6F15528-21DE-4FAA-801E-634DDDAF4B2B}" type="slidenum">`)
	assert.Equal(t, 1, strings.Count(xml, "<a:p>"), "no extra paragraphs")

	texts, err := d.Texts(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cliente: AcmeFecha 2025-03 p. "}, texts)
}

func TestReplaceTextLineSplitAroundBreak(t *testing.T) {
	d := skeleton(t, []string{"placeholder"})
	d.set("ppt/slides/slide1.xml", []byte(breakSlide))

	_, err := d.ReplaceText(0, "{{CLIENTE}}", "Acme\nGlobex", nil)
	require.NoError(t, err)

	xml := string(d.parts["ppt/slides/slide1.xml"])
	assert.Equal(t, 2, strings.Count(xml, "<a:p>"))
	assert.Equal(t, 1, strings.Count(xml, "<a:br>"))
	assert.Equal(t, 1, strings.Count(xml, `type="slidenum"`))
	assert.Contains(t, xml, `<a:t>Cliente: Acme</a:t></a:r><a:endParaRPr lang="es-CL"/></a:p><a:p><a:r><a:rPr lang="es-CL" sz="1200"/><a:t>Globex</a:t></a:r><a:br>`)
}

func TestReplaceTextWithStyle(t *testing.T) {
	d := skeleton(t, []string{"placeholder"})
	d.set("ppt/slides/slide1.xml", []byte(splitRunSlide))

	_, err := d.ReplaceText(0, "{{RANKING_TABLE}}", "x", &Style{Size: 14, Color: "#0B1F3A", Font: "Space Grotesk"})
	require.NoError(t, err)

	xml := string(d.parts["ppt/slides/slide1.xml"])
	assert.Contains(t, xml, `<a:rPr lang="es-CL" dirty="0" sz="1400" b="0"><a:solidFill><a:srgbClr val="0B1F3A"/></a:solidFill><a:latin typeface="Space Grotesk"/><a:cs typeface="Arial"/></a:rPr>`)
	assert.NotContains(t, xml, "FF0000")
}

func TestApplyStyleOnBareRun(t *testing.T) {
	got := applyStyle("", Style{Size: 12, Bold: true, Color: "3EF2C4"})
	assert.Equal(t, `<a:rPr lang="en-US" dirty="0" sz="1200" b="1"><a:solidFill><a:srgbClr val="3EF2C4"/></a:solidFill></a:rPr>`, got)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestAddPicture(t *testing.T) {
	d := skeleton(t, []string{"{{RADAR}}"}, []string{"second"})

	require.NoError(t, d.AddPicture(0, testPNG(t, 200, 100), Rect{X: 0.3, Y: 1.5, W: 6}))
	require.NoError(t, d.AddPicture(0, testPNG(t, 10, 10), Rect{X: 7, Y: 1.5, W: 2, H: 2}))
	d = reopen(t, d)

	assert.Contains(t, d.parts, "ppt/media/image1.png")
	assert.Contains(t, d.parts, "ppt/media/image2.png")
	assert.Contains(t, string(d.parts[contentTypesPath]), `<Default Extension="png" ContentType="image/png"/>`)
	assert.Equal(t, 1, strings.Count(string(d.parts[contentTypesPath]), `Extension="png"`))

	rels, err := d.readRels("ppt/slides/slide1.xml")
	require.NoError(t, err)
	img, ok := rels.byID("rId2")
	require.True(t, ok)
	assert.Equal(t, "../media/image1.png", img.Target)
	assert.Equal(t, relImage, img.Type)

	xml := string(d.parts["ppt/slides/slide1.xml"])
	assert.Contains(t, xml, `<a:ext cx="5486400" cy="2743200"/>`, "height follows the image aspect ratio")
	assert.Contains(t, xml, `<p:cNvPr id="3" name="Picture 2"/>`)
	assert.Contains(t, xml, `<p:cNvPr id="4" name="Picture 3"/>`)
	assert.Contains(t, xml, `r:embed="rId3"`)

	assert.Error(t, d.AddPicture(0, []byte("not a png"), Rect{W: 1}))
}

func TestAppendTextSlide(t *testing.T) {
	d := skeleton(t, []string{"first"}, []string{"{{NEWS_TABLE}}"})

	idx, err := d.AppendTextSlide(1, TextBox{Rect: Rect{X: 0.4, Y: 0.5, W: 12, H: 6}, Lines: []string{"- a", "- b"}, Style: &Style{Size: 14}})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = d.AppendTextSlide(1, TextBox{Rect: Rect{W: 1, H: 1}, Lines: []string{"- c"}})
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	d = reopen(t, d)
	assert.Equal(t, 4, d.SlideCount())

	texts, err := d.Texts(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"- a", "- b"}, texts)
	texts, err = d.Texts(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"- c"}, texts)

	rels, err := d.readRels("ppt/slides/slide3.xml")
	require.NoError(t, err)
	layout, ok := rels.byType(relSlideLayout)
	require.True(t, ok)
	assert.Equal(t, "../slideLayouts/slideLayout1.xml", layout.Target)

	pres := string(d.parts[presentationPath])
	assert.Contains(t, pres, `<p:sldId id="258" r:id="rId5"/>`)
	assert.Contains(t, pres, `<p:sldId id="259" r:id="rId6"/>`)
	assert.Contains(t, string(d.parts[contentTypesPath]), `PartName="/ppt/slides/slide4.xml"`)
}

func TestSaveAndOpen(t *testing.T) {
	d := skeleton(t, []string{"{{PERIOD}}"})
	_, err := d.ReplaceText(0, "{{PERIOD}}", "2025-03", nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "deck.pptx")
	require.NoError(t, d.Save(path))

	got, err := Open(path)
	require.NoError(t, err)
	texts, err := got.Texts(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03"}, texts)
}

func TestRelTarget(t *testing.T) {
	assert.Equal(t, "../media/image1.png", relTarget("ppt/slides/slide1.xml", "ppt/media/image1.png"))
	assert.Equal(t, "slides/slide7.xml", relTarget("ppt/presentation.xml", "ppt/slides/slide7.xml"))
	assert.Equal(t, "ppt/media/image1.png", resolve("ppt/slides/slide1.xml", "../media/image1.png"))
	assert.Equal(t, "ppt/slides/slide2.xml", resolve("ppt/presentation.xml", "/ppt/slides/slide2.xml"))
}
