package v1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

func Test_RenderTemplate_Substitution(t *testing.T) {
	tpl := &types.PromptTemplate{
		Content:   "You are a {{tone}} assistant for {{product}}.",
		Variables: []byte(`[{"name":"tone","required":true},{"name":"product","required":false}]`),
	}

	content, err := RenderTemplate(tpl, map[string]string{"tone": "friendly", "product": "SageChat"})

	assert.NoError(t, err)
	assert.Equal(t, "You are a friendly assistant for SageChat.", content)
}

func Test_RenderTemplate_MissingRequiredVariable(t *testing.T) {
	tpl := &types.PromptTemplate{
		Content:   "You are a {{tone}} assistant.",
		Variables: []byte(`[{"name":"tone","required":true}]`),
	}

	_, err := RenderTemplate(tpl, nil)

	if assert.Error(t, err) {
		cerr, ok := err.(*errors.CustomizedError)
		if assert.True(t, ok) {
			assert.Equal(t, http.StatusBadRequest, cerr.GetCode())
		}
	}
}

func Test_RenderTemplate_NoVariables(t *testing.T) {
	tpl := &types.PromptTemplate{Content: "Static prompt."}

	content, err := RenderTemplate(tpl, nil)

	assert.NoError(t, err)
	assert.Equal(t, "Static prompt.", content)
}
