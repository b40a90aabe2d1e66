package imagga

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies a keyword failure. Codes are stage-agnostic except
// where noted, so a host can present them without knowing the protocol.
type ErrorCode string

const (
	// ErrBasicAuthKeyNotSetCode is raised only when an adapter is created.
	ErrBasicAuthKeyNotSetCode      ErrorCode = "BASIC_AUTH_KEY_NOT_SET"
	ErrUploadFailedCode            ErrorCode = "UPLOAD_FAILED"
	ErrGetTagsFromUploadFailedCode ErrorCode = "GET_TAGS_FROM_UPLOAD_FAILED"
	ErrLoginCode                   ErrorCode = "LOGIN_ERROR"
	ErrProcessingJSONCode          ErrorCode = "ERROR_PROCESSING_JSON"
	ErrNotSupportedFileTypeCode    ErrorCode = "NOT_SUPPORTED_FILE_TYPE"
)

// Sentinels for use with errors.Is: any *Error matches the sentinel carrying
// the same code.
var (
	ErrBasicAuthKeyNotSet      = &Error{Code: ErrBasicAuthKeyNotSetCode}
	ErrUploadFailed            = &Error{Code: ErrUploadFailedCode}
	ErrGetTagsFromUploadFailed = &Error{Code: ErrGetTagsFromUploadFailedCode}
	ErrLogin                   = &Error{Code: ErrLoginCode}
	ErrProcessingJSON          = &Error{Code: ErrProcessingJSONCode}
	ErrNotSupportedFileType    = &Error{Code: ErrNotSupportedFileTypeCode}
)

// messages are the user-facing texts for each code. "{0}" is replaced by the
// adapter id, "{1}" by the first argument.
var messages = map[ErrorCode]string{
	ErrBasicAuthKeyNotSetCode:      "Please provide a valid basicAuthKey in the configuration for {0}.",
	ErrUploadFailedCode:            `Upload of picture failed. Imagga responded with a problem: "{1}"`,
	ErrLoginCode:                   "Login at Imagga failed. Please provide a valid credentials key in the configuration.",
	ErrGetTagsFromUploadFailedCode: `Request for keywords to Imagga failed. Imagga responded with a problem: "{1}"`,
	ErrProcessingJSONCode:          "Imagga is currently unavailable. Please try again later.",
	ErrNotSupportedFileTypeCode:    `Please upload a valid file type. Imagga supports the file types "JPG" or "PNG".`,
}

// Error is the failure reported by the adapter. Args holds the values
// referenced by the user-facing message (for protocol failures: the error
// text returned by Imagga). Body holds the raw response body, when there was
// one, for diagnostics only.
type Error struct {
	Code   ErrorCode
	Args   []string
	Detail string
	Body   string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Message renders the user-facing text for the error.
func (e *Error) Message() string {
	msg, ok := messages[e.Code]
	if !ok {
		return string(e.Code)
	}

	arg := ""
	if len(e.Args) > 0 {
		arg = e.Args[0]
	}

	return strings.NewReplacer("{0}", AdapterID, "{1}", arg).Replace(msg)
}

// Status maps the error to the HTTP status a host should answer with.
func (e *Error) Status() (int, string) {
	switch e.Code {
	case ErrNotSupportedFileTypeCode:
		return http.StatusUnsupportedMediaType, e.Message()
	case ErrBasicAuthKeyNotSetCode:
		return http.StatusInternalServerError, e.Message()
	case ErrProcessingJSONCode:
		return http.StatusServiceUnavailable, e.Message()
	default:
		return http.StatusBadGateway, e.Message()
	}
}

// CodeOf extracts the error code from err, if it carries one.
func CodeOf(err error) (ErrorCode, bool) {
	var ierr *Error
	if errors.As(err, &ierr) {
		return ierr.Code, true
	}
	return "", false
}

func processingError(body []byte, cause error) *Error {
	return &Error{
		Code:   ErrProcessingJSONCode,
		Detail: fmt.Sprintf("there was an exception while processing the response: '%s'", body),
		Body:   string(body),
		Cause:  cause,
	}
}
