// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/olegiv/studio-go/internal/model"
	"github.com/olegiv/studio-go/internal/toast"
)

// monthsIt contains Italian month names.
var monthsIt = []string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

// TemplateFuncs returns the template function map.
func (r *Renderer) TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"truncate": func(s string, length int) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"seq": func(start, end int) []int {
			var result []int
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
			return result
		},
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"toJSON": func(v any) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return "[]"
			}
			return template.JS(b)
		},
		"prettyJSON": prettyJSON,
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				dict[key] = values[i+1]
			}
			return dict
		},

		// Content
		"field":     field,
		"fieldList": fieldList,
		"content": func(v *View, key string) template.HTML {
			return r.content(v, key)
		},
		"markdown":   r.Markdown,
		"toastClass": toastClass,
	}
}

// content renders a scalar according to its stored type.
func (r *Renderer) content(v *View, key string) template.HTML {
	if v == nil {
		return ""
	}
	text := v.Text(key)
	if v.Type(key) == model.TypeRichtext {
		return r.Markdown(text)
	}
	escaped := template.HTMLEscapeString(text)
	if v.Type(key) == model.TypeTextarea {
		escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	}
	return template.HTML(escaped)
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthsIt[t.Month()-1], t.Year())
}

func formatDateTime(t time.Time) string {
	return fmt.Sprintf("%d %s %d, %02d:%02d", t.Day(), monthsIt[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

func prettyJSON(s string) string {
	var data any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return s
	}
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return s
	}
	return strings.TrimRight(b.String(), "\n")
}

func toastClass(sev toast.Severity) string {
	if sev == toast.Error {
		return "toast toast-error"
	}
	return "toast toast-success"
}
