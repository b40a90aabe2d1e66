package imagga

import "net/http"

type stage string

const (
	stageUpload stage = "upload"
	stageTags   stage = "tags"
)

// anyStatus matches every status a more specific rule did not claim.
const anyStatus = 0

// outcome is what a failed request turns into.
type outcome struct {
	code ErrorCode
	// withText passes the error text from the response body on as the
	// error's single argument.
	withText bool
	// invalidateUpload drops the cached upload id the request was made
	// with, so the next call uploads again.
	invalidateUpload bool
}

type rule struct {
	stage  stage
	status int
	outcome
}

// failurePolicy maps a non-200 response to its outcome. Rules are matched in
// order; the first rule for the stage whose status matches wins.
//
// Imagga answers 401 for a bad credential at either stage. Any rejection at
// the tags stage may also mean the upload id is no longer known to Imagga,
// so it is dropped from the cache to let a retry start over.
var failurePolicy = []rule{
	{stage: stageUpload, status: http.StatusUnauthorized, outcome: outcome{code: ErrLoginCode}},
	{stage: stageUpload, status: anyStatus, outcome: outcome{code: ErrUploadFailedCode, withText: true}},
	{stage: stageTags, status: http.StatusUnauthorized, outcome: outcome{code: ErrLoginCode, invalidateUpload: true}},
	{stage: stageTags, status: anyStatus, outcome: outcome{code: ErrGetTagsFromUploadFailedCode, withText: true, invalidateUpload: true}},
}

func classify(s stage, status int) outcome {
	for _, r := range failurePolicy {
		if r.stage == s && (r.status == anyStatus || r.status == status) {
			return r.outcome
		}
	}

	// every stage has a catch-all rule
	panic("imagga: no failure policy for stage " + string(s))
}
