package engine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// Exporter 将 PPTX 转换为 PDF
type Exporter interface {
	Export(ctx context.Context, pptxPath string) (string, error)
}

// LibreOffice 调用 soffice --headless 转换
type LibreOffice struct {
	bin     string
	timeout time.Duration
}

// NewLibreOffice 创建转换器，bin 为空时使用 soffice
func NewLibreOffice(bin string) *LibreOffice {
	if bin == "" {
		bin = "soffice"
	}
	return &LibreOffice{bin: bin, timeout: 2 * time.Minute}
}

// Export implements Exporter
func (l *LibreOffice) Export(ctx context.Context, pptxPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	dir := filepath.Dir(pptxPath)
	cmd := exec.CommandContext(ctx, l.bin, "--headless", "--convert-to", "pdf", "--outdir", dir, pptxPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", l.bin, err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSuffix(pptxPath, filepath.Ext(pptxPath)) + ".pdf"
	if !store.Exists(out) {
		return "", fmt.Errorf("%s finished but %s was not created", l.bin, out)
	}
	return out, nil
}
