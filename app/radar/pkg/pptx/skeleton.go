package pptx

import (
	"fmt"
	"io"
	"strings"
)

// 16:9 画布
const (
	SlideWidth  = 13.333
	SlideHeight = 7.5
)

const xmlDecl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const skeletonMaster = xmlDecl +
	`<p:sldMaster xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">` +
	`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` + groupProps + `</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`<p:txStyles><p:titleStyle/><p:bodyStyle/><p:otherStyle/></p:txStyles></p:sldMaster>`

const skeletonLayout = xmlDecl +
	`<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `" type="blank" preserve="1">` +
	`<p:cSld name="Blank"><p:spTree>` + groupProps + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const skeletonTheme = xmlDecl +
	`<a:theme xmlns:a="` + nsA + `" name="Radar"><a:themeElements>` +
	`<a:clrScheme name="Radar">` +
	`<a:dk1><a:srgbClr val="000000"/></a:dk1><a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="0B1F3A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="0B1F3A"/></a:accent1><a:accent2><a:srgbClr val="3EF2C4"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Radar">` +
	`<a:majorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Radar">` +
	`<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>` +
	`<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>` +
	`</a:fmtScheme></a:themeElements></a:theme>`

const rootRels = xmlDecl +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="` + relOfficeDocument + `" Target="ppt/presentation.xml"/></Relationships>`

// WriteSkeleton 生成最小可用的演示文稿，每个元素对应一张幻灯片上的文本框
func WriteSkeleton(w io.Writer, slides [][]TextBox) error {
	if len(slides) == 0 {
		return fmt.Errorf("skeleton needs at least one slide")
	}

	d := &Deck{parts: map[string][]byte{}}

	var ct strings.Builder
	ct.WriteString(xmlDecl)
	ct.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	ct.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	ct.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := range slides {
		fmt.Fprintf(&ct, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="%s"/>`, i+1, ctSlide)
	}
	ct.WriteString(`</Types>`)
	d.set(contentTypesPath, []byte(ct.String()))
	d.set("_rels/.rels", []byte(rootRels))

	presRels := &relationships{}
	presRels.add(relSlideMaster, "slideMasters/slideMaster1.xml")
	presRels.add(relTheme, "theme/theme1.xml")

	var ids strings.Builder
	for i, boxes := range slides {
		part := fmt.Sprintf("ppt/slides/slide%d.xml", i+1)
		rid := presRels.add(relSlide, relTarget(presentationPath, part))
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="%s"/>`, 256+i, rid)

		d.set(part, []byte(slideXML(boxes)))
		slideRels := &relationships{}
		slideRels.add(relSlideLayout, "../slideLayouts/slideLayout1.xml")
		if err := d.writeRels(part, slideRels); err != nil {
			return err
		}
	}

	d.set(presentationPath, []byte(xmlDecl+
		`<p:presentation xmlns:a="`+nsA+`" xmlns:r="`+nsR+`" xmlns:p="`+nsP+`">`+
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`+
		`<p:sldIdLst>`+ids.String()+`</p:sldIdLst>`+
		fmt.Sprintf(`<p:sldSz cx="%d" cy="%d"/>`, emu(SlideWidth), emu(SlideHeight))+
		`<p:notesSz cx="6858000" cy="9144000"/></p:presentation>`))
	if err := d.writeRels(presentationPath, presRels); err != nil {
		return err
	}

	master := "ppt/slideMasters/slideMaster1.xml"
	d.set(master, []byte(skeletonMaster))
	masterRels := &relationships{}
	masterRels.add(relSlideLayout, "../slideLayouts/slideLayout1.xml")
	masterRels.add(relTheme, "../theme/theme1.xml")
	if err := d.writeRels(master, masterRels); err != nil {
		return err
	}

	layout := "ppt/slideLayouts/slideLayout1.xml"
	d.set(layout, []byte(skeletonLayout))
	layoutRels := &relationships{}
	layoutRels.add(relSlideMaster, "../slideMasters/slideMaster1.xml")
	if err := d.writeRels(layout, layoutRels); err != nil {
		return err
	}

	d.set("ppt/theme/theme1.xml", []byte(skeletonTheme))
	return d.Write(w)
}
