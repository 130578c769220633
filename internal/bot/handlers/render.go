package handlers

import (
	"fmt"
	"html"
	"strings"
)

const bytesPerMB = 1024 * 1024

// render substitutes {key} placeholders in tmpl. kv holds key, value pairs.
func render(tmpl string, kv ...string) string {
	if len(kv) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// sizeMB formats a byte count the way the completion message shows it.
func sizeMB(n int64) string {
	return fmt.Sprintf("%.2f", float64(n)/bytesPerMB)
}

var escape = html.EscapeString
