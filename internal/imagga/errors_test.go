package imagga

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Code: ErrUploadFailedCode, Args: []string{"boom"}})

	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.NotErrorIs(t, err, ErrLogin)

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrUploadFailedCode, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := processingError([]byte(`{"result":`), cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `{"result":`, err.Body)
	assert.Equal(t, `ERROR_PROCESSING_JSON: there was an exception while processing the response: '{"result":': unexpected end of JSON input`, err.Error())
}

func TestError_Message(t *testing.T) {
	cases := []struct {
		err      *Error
		expected string
	}{
		{&Error{Code: ErrUploadFailedCode, Args: []string{"errorText"}}, `Upload of picture failed. Imagga responded with a problem: "errorText"`},
		{&Error{Code: ErrGetTagsFromUploadFailedCode}, `Request for keywords to Imagga failed. Imagga responded with a problem: ""`},
		{&Error{Code: ErrBasicAuthKeyNotSetCode}, "Please provide a valid basicAuthKey in the configuration for imagga."},
		{&Error{Code: ErrorCode("SOMETHING_ELSE")}, "SOMETHING_ELSE"},
	}

	for _, tc := range cases {
		t.Run(string(tc.err.Code), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Message())
		})
	}
}

func TestError_Status(t *testing.T) {
	cases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrNotSupportedFileTypeCode, http.StatusUnsupportedMediaType},
		{ErrBasicAuthKeyNotSetCode, http.StatusInternalServerError},
		{ErrProcessingJSONCode, http.StatusServiceUnavailable},
		{ErrLoginCode, http.StatusBadGateway},
		{ErrUploadFailedCode, http.StatusBadGateway},
		{ErrGetTagsFromUploadFailedCode, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			status, message := (&Error{Code: tc.code}).Status()
			assert.Equal(t, tc.expected, status)
			assert.NotEmpty(t, message)
		})
	}
}
