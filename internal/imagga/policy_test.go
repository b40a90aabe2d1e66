package imagga

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		stage    stage
		status   int
		expected outcome
	}{
		{stageUpload, http.StatusUnauthorized, outcome{code: ErrLoginCode}},
		{stageUpload, http.StatusBadRequest, outcome{code: ErrUploadFailedCode, withText: true}},
		{stageUpload, http.StatusForbidden, outcome{code: ErrUploadFailedCode, withText: true}},
		{stageUpload, http.StatusInternalServerError, outcome{code: ErrUploadFailedCode, withText: true}},
		{stageTags, http.StatusUnauthorized, outcome{code: ErrLoginCode, invalidateUpload: true}},
		{stageTags, http.StatusBadRequest, outcome{code: ErrGetTagsFromUploadFailedCode, withText: true, invalidateUpload: true}},
		{stageTags, http.StatusNotFound, outcome{code: ErrGetTagsFromUploadFailedCode, withText: true, invalidateUpload: true}},
		{stageTags, http.StatusServiceUnavailable, outcome{code: ErrGetTagsFromUploadFailedCode, withText: true, invalidateUpload: true}},
	}

	for _, tc := range cases {
		t.Run(string(tc.stage)+" "+http.StatusText(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, classify(tc.stage, tc.status))
		})
	}
}

func TestClassify_UnknownStagePanics(t *testing.T) {
	assert.Panics(t, func() {
		classify(stage("thumbnail"), http.StatusBadRequest)
	})
}
