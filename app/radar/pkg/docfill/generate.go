package docfill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
)

const systemPrompt = "You write the content of business document templates. " +
	"Use a professional and direct tone, in the language of the request. " +
	"Use an empty string for any field that does not apply."

// DemoValues 没有模型可用时的演示内容
func DemoValues(keys []string, prompt string, now time.Time) map[string]string {
	base := map[string]string{
		"TITULO":    "Reporte Ejecutivo (modo demo)",
		"SUBTITULO": "Documento generado sin conexión al modelo",
		"CLIENTE":   "Cliente Demo",
		"FECHA":     now.Format("02/01/2006"),
		"AUTOR":     "Template Writer",
		"RESUMEN_EJECUTIVO": "Documento generado en modo demostración para validar el flujo: " +
			"plantilla, detección de placeholders, reemplazo y descarga.",
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := base[k]; ok {
			out[k] = v
		} else {
			out[k] = fmt.Sprintf("Contenido demo para %s.", k)
		}
	}
	if p := strings.TrimSpace(prompt); p != "" {
		if _, ok := out["CONTEXTO"]; ok {
			r := []rune(p)
			if len(r) > 240 {
				r = r[:240]
			}
			out["CONTEXTO"] = "Prompt recibido (demo): " + string(r)
		}
	}
	return out
}

// Values 合并手工填写的值与生成的值。manual 中的键优先；
// prompt 为空时不调用模型，缺少的键填空字符串。第二个返回值表示内容是否来自模型。
func Values(ctx context.Context, gen llm.Generator, keys []string, manual map[string]string, prompt string, now time.Time) (map[string]string, bool) {
	out := make(map[string]string, len(keys))
	var pending []string
	for _, k := range keys {
		if v, ok := manual[k]; ok {
			out[k] = v
			continue
		}
		pending = append(pending, k)
	}
	if len(pending) == 0 {
		return out, false
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		for _, k := range pending {
			out[k] = ""
		}
		return out, false
	}
	if gen == nil {
		gen = llm.Fallback{}
	}

	resp := gen.Complete(ctx, llm.Request{
		System:   systemPrompt,
		Prompt:   "Fill in the fields of a document template.\n\nRequest:\n" + prompt,
		Fields:   pending,
		Fallback: DemoValues(pending, prompt, now),
	})
	for _, k := range pending {
		out[k] = resp.Get(k)
	}
	return out, resp.FromModel
}
