// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structure

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// menuPromptTmpl is sent to the model for each chunk. The taxonomy section
// is rendered from configuration.
var menuPromptTmpl = template.Must(template.New("menu").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`You are a menu digitization system. The text below was recognized from photos of a restaurant's printed menu and may contain recognition noise.
{{- if .Restaurant}}

Restaurant: {{.Restaurant}}
{{- end}}

Return a single JSON object nested as category, then subcategory, then a list of items:
{"<category>": {"<subcategory>": [{"name": "...", "prices": {"half": 120, "full": 220}, "description": "...", "cuisine": "...", "spicy": false, "bestseller": false}]}}

Use only these categories and subcategories:
{{- range .Taxonomy}}
- {{.Name}}: {{join .Subcategories ", "}}
{{- end}}

Rules:
1. Put each dish under the category and subcategory that fits it best. Paneer, vegetables, dal and plain rice are vegetarian; chicken, mutton, fish, prawns and egg are non-vegetarian.
2. Prices are numbers without currency symbols. If a dish has one price, use "full". Leave out prices you cannot read.
3. cuisine is one of North Indian, South Indian, Chinese, Italian, Thai, Goan, Continental when it is clear, otherwise omit it.
4. spicy is true for chili or masala dishes. bestseller is true when the menu marks the dish as a special or bestseller.
5. Only include dishes present in the text. Omit empty categories.

Respond with the JSON object only, no commentary and no code fences.

Menu text:
{{.Text}}
`))

type promptData struct {
	Restaurant string
	Taxonomy   types.Taxonomy
	Text       string
}

// renderPrompt executes the menu prompt template.
func renderPrompt(d promptData) (string, error) {
	var buf bytes.Buffer
	if err := menuPromptTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
