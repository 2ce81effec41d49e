package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// OOXML 命名空间与关系类型
const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"

	relBase           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	relOfficeDocument = relBase + "officeDocument"
	relSlide          = relBase + "slide"
	relSlideLayout    = relBase + "slideLayout"
	relSlideMaster    = relBase + "slideMaster"
	relTheme          = relBase + "theme"
	relImage          = relBase + "image"

	ctSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"

	presentationPath = "ppt/presentation.xml"
	contentTypesPath = "[Content_Types].xml"

	emuPerInch = 914400
)

// ErrSlideRange 幻灯片序号越界
var ErrSlideRange = errors.New("slide index out of range")

// Rect 以英寸表示的位置与尺寸
type Rect struct {
	X, Y, W, H float64
}

func emu(inches float64) int64 {
	return int64(inches*emuPerInch + 0.5)
}

// Deck 内存中的演示文稿（zip 包内各部件）
type Deck struct {
	parts map[string][]byte
	order []string
}

// Open 读取 pptx 文件
func Open(filePath string) (*Deck, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read 从 zip 数据读取演示文稿
func Read(r io.ReaderAt, size int64) (*Deck, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("not a pptx package: %w", err)
	}

	d := &Deck{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		d.set(f.Name, data)
	}

	if _, ok := d.parts[presentationPath]; !ok {
		return nil, fmt.Errorf("not a pptx package: missing %s", presentationPath)
	}
	return d, nil
}

func (d *Deck) set(name string, data []byte) {
	if _, ok := d.parts[name]; !ok {
		d.order = append(d.order, name)
	}
	d.parts[name] = data
}

// Write 输出 zip 包
func (d *Deck) Write(w io.Writer) error {
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

// Save 原子写入文件
func (d *Deck) Save(filePath string) error {
	return store.WriteFileAtomic(filePath, d.Write)
}

var (
	sldIDTagRe = regexp.MustCompile(`<p:sldId\b[^>]*>`)
	sldIDRe    = regexp.MustCompile(`\sid="(\d+)"`)
	sldRIDRe   = regexp.MustCompile(`\sr:id="([^"]+)"`)
)

// slidePaths 按放映顺序返回幻灯片部件路径
func (d *Deck) slidePaths() ([]string, error) {
	rels, err := d.readRels(presentationPath)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, tag := range sldIDTagRe.FindAllString(string(d.parts[presentationPath]), -1) {
		m := sldRIDRe.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		rel, ok := rels.byID(m[1])
		if !ok {
			return nil, fmt.Errorf("presentation relationship %s not found", m[1])
		}
		out = append(out, resolve(presentationPath, rel.Target))
	}
	return out, nil
}

// SlideCount 幻灯片数量
func (d *Deck) SlideCount() int {
	paths, err := d.slidePaths()
	if err != nil {
		return 0
	}
	return len(paths)
}

// slidePath 第 i 张（从 0 开始）幻灯片的部件路径
func (d *Deck) slidePath(i int) (string, error) {
	paths, err := d.slidePaths()
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(paths) {
		return "", fmt.Errorf("%w: %d (deck has %d slides)", ErrSlideRange, i+1, len(paths))
	}
	return paths[i], nil
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Rels    []relationship `xml:"Relationship"`
}

func (r *relationships) byID(id string) (relationship, bool) {
	for _, rel := range r.Rels {
		if rel.ID == id {
			return rel, true
		}
	}
	return relationship{}, false
}

func (r *relationships) byType(typ string) (relationship, bool) {
	for _, rel := range r.Rels {
		if rel.Type == typ {
			return rel, true
		}
	}
	return relationship{}, false
}

// add 追加关系并返回新 ID
func (r *relationships) add(typ, target string) string {
	next := 0
	for _, rel := range r.Rels {
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > next {
			next = n
		}
	}
	id := fmt.Sprintf("rId%d", next+1)
	r.Rels = append(r.Rels, relationship{ID: id, Type: typ, Target: target})
	return id
}

func relsPath(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

func (d *Deck) readRels(part string) (*relationships, error) {
	data, ok := d.parts[relsPath(part)]
	if !ok {
		return &relationships{}, nil
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsPath(part), err)
	}
	return &rels, nil
}

func (d *Deck) writeRels(part string, rels *relationships) error {
	data, err := marshalRels(rels)
	if err != nil {
		return err
	}
	d.set(relsPath(part), data)
	return nil
}

func marshalRels(rels *relationships) ([]byte, error) {
	body, err := xml.Marshal(rels)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// resolve 将关系中的相对 Target 解析为包内路径
func resolve(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(source), target))
}

// relTarget resolve 的逆运算
func relTarget(source, part string) string {
	from := strings.Split(path.Dir(source), "/")
	to := strings.Split(part, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	return strings.Repeat("../", len(from)-i) + strings.Join(to[i:], "/")
}

// nextPartName 同一目录下下一个可用的编号部件名，如 ppt/media/image3.png
func (d *Deck) nextPartName(prefix, ext string) string {
	re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `(\d+)` + regexp.QuoteMeta(ext) + "$")
	var nums []int
	for name := range d.parts {
		if m := re.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	next := 1
	if len(nums) > 0 {
		next = nums[len(nums)-1] + 1
	}
	return fmt.Sprintf("%s%d%s", prefix, next, ext)
}

// ensureDefault 在 [Content_Types].xml 中登记扩展名
func (d *Deck) ensureDefault(ext, contentType string) {
	ct := string(d.parts[contentTypesPath])
	if strings.Contains(strings.ToLower(ct), `extension="`+ext+`"`) {
		return
	}
	entry := fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, ext, contentType)
	d.set(contentTypesPath, []byte(strings.Replace(ct, "</Types>", entry+"</Types>", 1)))
}

// addOverride 在 [Content_Types].xml 中登记部件类型
func (d *Deck) addOverride(part, contentType string) {
	ct := string(d.parts[contentTypesPath])
	entry := fmt.Sprintf(`<Override PartName="/%s" ContentType="%s"/>`, part, contentType)
	d.set(contentTypesPath, []byte(strings.Replace(ct, "</Types>", entry+"</Types>", 1)))
}
