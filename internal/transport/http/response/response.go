package response

import "net/http"

// ErrorPage 是 error.html 的视图模型
type ErrorPage struct {
	Status    int
	Title     string
	Message   string
	Detail    string // 仅开发环境填充
	RequestID string
}

func NewErrorPage(err error, requestID string, development bool) ErrorPage {
	code := CodeOf(err)
	p := ErrorPage{
		Status:    code,
		Title:     http.StatusText(code),
		Message:   CodeMsgMap[code],
		RequestID: requestID,
	}
	if p.Message == "" {
		p.Message = CodeMsgMap[CodeServerError]
	}
	if development && err != nil {
		p.Detail = err.Error()
	}
	return p
}
