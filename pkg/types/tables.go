package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "sage_"

const (
	TABLE_USAGE_RECORD        = TableName("usage_record")
	TABLE_USER_QUOTA          = TableName("user_quota")
	TABLE_CONVERSATION_VECTOR = TableName("conversation_vector")
	TABLE_PROMPT_TEMPLATE     = TableName("prompt_template")
	TABLE_ACCESS_TOKEN        = TableName("access_token")
)
