package types

// ErrorResponse is the JSON body written by the error middleware.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code,omitempty"`
}

// NoticeLevel is the toast severity shown by the browser.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a user-visible confirmation returned from mutating calls.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// SuccessNotice builds a success toast.
func SuccessNotice(message string) Notice {
	return Notice{Level: NoticeSuccess, Message: message}
}
