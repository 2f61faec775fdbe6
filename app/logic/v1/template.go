package v1

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/pkg/errors"
	"github.com/sagechat-ai/sagechat/pkg/i18n"
	"github.com/sagechat-ai/sagechat/pkg/types"
)

type TemplateLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewTemplateLogic(ctx context.Context, core *core.Core) *TemplateLogic {
	return &TemplateLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *TemplateLogic) GetTemplate(id string) (*types.PromptTemplate, error) {
	data, err := l.core.Store().PromptTemplateStore().Get(l.ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("TemplateLogic.GetTemplate.NotFound", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("TemplateLogic.GetTemplate.PromptTemplateStore.Get", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}
	return data, nil
}

func (l *TemplateLogic) ListTemplates(page, pageSize uint64) ([]types.PromptTemplate, error) {
	list, err := l.core.Store().PromptTemplateStore().List(l.ctx, page, pageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("TemplateLogic.ListTemplates.PromptTemplateStore.List", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}
	return list, nil
}

// ResolveSystemPrompt 根据模板与变量生成系统提示词
func (l *TemplateLogic) ResolveSystemPrompt(templateID string, variables map[string]string) (string, error) {
	tpl, err := l.GetTemplate(templateID)
	if err != nil {
		return "", err
	}
	return RenderTemplate(tpl, variables)
}

// RenderTemplate 以 {{name}} 占位符替换变量，必填变量缺失视为参数错误
func RenderTemplate(tpl *types.PromptTemplate, variables map[string]string) (string, error) {
	vars, err := tpl.ParseVariables()
	if err != nil {
		return "", errors.New("RenderTemplate.ParseVariables", i18n.ERROR_TEMPLATE_RENDER, err).Code(http.StatusInternalServerError)
	}

	for _, v := range vars {
		if !v.Required {
			continue
		}
		if val, exists := variables[v.Name]; !exists || val == "" {
			return "", errors.New("RenderTemplate.MissingVariable",
				i18n.ERROR_TEMPLATE_RENDER, fmt.Errorf("missing required variable %q", v.Name)).Code(http.StatusBadRequest)
		}
	}

	content := tpl.Content
	for name, val := range variables {
		content = strings.ReplaceAll(content, "{{"+name+"}}", val)
	}
	return content, nil
}
