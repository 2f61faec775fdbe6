package i18n

var ALLOW_LANG = map[string]bool{
	"en": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_NOT_FOUND         = "error.notfound"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_UNAUTHORIZED      = "error.unauthorized"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"
	ERROR_QUOTA_EXCEEDED    = "error.quota_exceeded"
	ERROR_AI_UNAVAILABLE    = "error.ai.unavailable"
	ERROR_TEMPLATE_RENDER   = "error.template.render"
)
