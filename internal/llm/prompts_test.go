package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"triagemd/pkg"
)

func TestRenderSubstitutesContext(t *testing.T) {
	out := render(pkg.PromptQuestion, "Do you have a fever?")
	assert.Contains(t, out, "Do you have a fever?")
	assert.False(t, strings.Contains(out, contextMarker))
}

func TestRenderEveryKindHasTemplate(t *testing.T) {
	kinds := []pkg.PromptKind{
		pkg.PromptQuestion, pkg.PromptGuidance, pkg.PromptOffTopic,
		pkg.PromptClarify, pkg.PromptClassify, pkg.PromptPick,
	}
	for _, k := range kinds {
		assert.NotEmpty(t, templates[k], "missing template for %s", k)
	}
}
