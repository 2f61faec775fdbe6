package types

import "encoding/json"

// TemplateVariable declares one {{name}} slot of a prompt template.
type TemplateVariable struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// PromptTemplate is one entry of the template catalog.
type PromptTemplate struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Content   string          `json:"content" db:"content"`
	Variables json.RawMessage `json:"variables" db:"variables"` // []TemplateVariable
	CreatedAt int64           `json:"created_at" db:"created_at"`
	UpdatedAt int64           `json:"updated_at" db:"updated_at"`
}

func (t PromptTemplate) ParseVariables() ([]TemplateVariable, error) {
	if len(t.Variables) == 0 {
		return nil, nil
	}
	var vars []TemplateVariable
	if err := json.Unmarshal(t.Variables, &vars); err != nil {
		return nil, err
	}
	return vars, nil
}
