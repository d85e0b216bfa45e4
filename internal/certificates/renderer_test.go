package certificates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesFields(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("<p>Hello {{student_name}}, you passed {{course_name}}.</p>", map[string]string{
		"student_name": "Ada Lovelace",
		"course_name":  "CCNA",
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello Ada Lovelace, you passed CCNA.</p>", out)
}

func TestRenderMissingFieldsRenderEmpty(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("<p>{{student_name}}|{{never_provided}}|</p>", map[string]string{
		"student_name": "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>Ada||</p>", out)
}

func TestRenderEscapesHTML(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("<p>{{student_name}}</p>", map[string]string{
		"student_name": `<script>alert("x")</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderWhitespaceInsidePlaceholder(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("<p>{{ student_name }}</p>", map[string]string{
		"student_name": "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>Ada</p>", out)
}

func TestRenderAliasesImageFields(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("{{logo_image}}/{{signature_image}}", map[string]string{
		"logo_url":            "logo.png",
		"signature_image_url": "sig.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "logo.png/sig.png", out)

	// The aliases also feed back into the canonical names.
	out, err = r.Render("{{logo_url}}", map[string]string{"logo_image": "alt.png"})
	require.NoError(t, err)
	assert.Equal(t, "alt.png", out)
}

func TestRenderMalformedTemplate(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render("<p>{{#student_name}}</p>", nil)
	require.Error(t, err)
	var syntaxErr *TemplateSyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}
