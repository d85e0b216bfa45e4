package certificates

import (
	"bytes"
	"html/template"
	"regexp"
)

// Renderer expands a template body against a flat string record with
// contextual HTML escaping. Stateless and safe for concurrent use.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Template authors write bare {{field_name}} placeholders; rewrite them to map
// lookups before parsing. Index lookups yield "" for absent keys, so missing
// optional fields render as empty rather than erroring.
var fieldPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Render substitutes named variables into the template body. The two image
// reference fields are exposed under two names each for backward template
// compatibility (logo_url/logo_image, signature_image_url/signature_image).
func (r *Renderer) Render(body string, record map[string]string) (string, error) {
	data := make(map[string]string, len(record)+4)
	for key, value := range record {
		data[key] = value
	}
	aliasImage(data, "logo_url", "logo_image")
	aliasImage(data, "signature_image_url", "signature_image")

	source := fieldPattern.ReplaceAllString(body, `{{index . "$1"}}`)
	tmpl, err := template.New("certificate").Option("missingkey=zero").Parse(source)
	if err != nil {
		return "", &TemplateSyntaxError{Err: err}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &RenderError{Err: err}
	}
	return buf.String(), nil
}

func aliasImage(data map[string]string, primary, alias string) {
	value := data[primary]
	if value == "" {
		value = data[alias]
	}
	data[primary] = value
	data[alias] = value
}
