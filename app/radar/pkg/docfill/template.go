package docfill

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/pptx"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// Section 默认文档模板中的一节：标题加若干正文段落
type Section struct {
	Heading string
	Lines   []string
}

// DefaultSections 默认报告模板的内容
func DefaultSections() []Section {
	return []Section{
		{Heading: "{{TITULO}}", Lines: []string{"{{SUBTITULO}}", "Cliente: {{CLIENTE}}", "Fecha: {{FECHA}}", "Autor: {{AUTOR}}"}},
		{Heading: "Resumen ejecutivo", Lines: []string{"{{RESUMEN_EJECUTIVO}}"}},
		{Heading: "Contexto", Lines: []string{"{{CONTEXTO}}"}},
		{Heading: "Hallazgos", Lines: []string{"1. {{HALLAZGO_1}}", "2. {{HALLAZGO_2}}", "3. {{HALLAZGO_3}}"}},
		{Heading: "Recomendaciones", Lines: []string{"1. {{RECOMENDACION_1}}", "2. {{RECOMENDACION_2}}", "3. {{RECOMENDACION_3}}"}},
		{Heading: "Siguientes pasos", Lines: []string{"{{SIGUIENTES_PASOS}}"}},
	}
}

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`
	docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`
	docxBodyOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	docxBodyClose = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`
)

// WriteDocxSkeleton 输出只包含正文部件的最小 docx，标题加粗
func WriteDocxSkeleton(w io.Writer, sections []Section) error {
	var body strings.Builder
	body.WriteString(docxBodyOpen)
	for _, s := range sections {
		body.WriteString(`<w:p><w:r><w:rPr><w:b/><w:sz w:val="28"/></w:rPr>` + wordText(s.Heading) + `</w:r></w:p>`)
		for _, line := range s.Lines {
			body.WriteString(`<w:p><w:r>` + wordText(line) + `</w:r></w:p>`)
		}
	}
	body.WriteString(docxBodyClose)

	zw := zip.NewWriter(w)
	for _, part := range []struct{ name, data string }{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{documentPath, body.String()},
	} {
		fw, err := zw.Create(part.name)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(fw, part.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

func box(x, y, w, h float64, lines ...string) pptx.TextBox {
	return pptx.TextBox{Rect: pptx.Rect{X: x, Y: y, W: w, H: h}, Lines: lines}
}

// DefaultSlides 默认演示模板：封面、摘要、发现与建议
func DefaultSlides() [][]pptx.TextBox {
	return [][]pptx.TextBox{
		{
			box(0.8, 2.0, 11.7, 1.2, "{{TITULO}}"),
			box(0.8, 3.3, 11.7, 0.8, "{{SUBTITULO}}"),
			box(0.8, 5.4, 11.7, 1.2, "{{CLIENTE}} | {{FECHA}}", "{{AUTOR}}"),
		},
		{
			box(0.5, 0.4, 12.3, 0.8, "Resumen ejecutivo"),
			box(0.5, 1.4, 12.3, 3.0, "{{RESUMEN_EJECUTIVO}}"),
			box(0.5, 4.6, 12.3, 2.4, "{{CONTEXTO}}"),
		},
		{
			box(0.5, 0.4, 12.3, 0.8, "Hallazgos"),
			box(0.5, 1.4, 12.3, 5.6, "{{HALLAZGO_1}}", "{{HALLAZGO_2}}", "{{HALLAZGO_3}}"),
		},
		{
			box(0.5, 0.4, 12.3, 0.8, "Recomendaciones"),
			box(0.5, 1.4, 12.3, 3.8, "{{RECOMENDACION_1}}", "{{RECOMENDACION_2}}", "{{RECOMENDACION_3}}"),
			box(0.5, 5.4, 12.3, 1.6, "{{SIGUIENTES_PASOS}}"),
		},
	}
}

// SaveDefaultTemplate 按格式写出默认模板
func SaveDefaultTemplate(f Format, path string) error {
	return store.WriteFileAtomic(path, func(w io.Writer) error {
		if f == Docx {
			return WriteDocxSkeleton(w, DefaultSections())
		}
		return pptx.WriteSkeleton(w, DefaultSlides())
	})
}
