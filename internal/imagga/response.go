package imagga

import (
	"encoding/json"
	"errors"
	"fmt"
)

type uploadResponse struct {
	Result *struct {
		UploadID *string `json:"upload_id"`
	} `json:"result"`
}

type tagsResponse struct {
	Result *struct {
		Tags []struct {
			Confidence *float64                   `json:"confidence"`
			Tag        map[string]json.RawMessage `json:"tag"`
		} `json:"tags"`
	} `json:"result"`
}

type errorResponse struct {
	Status *struct {
		Text json.RawMessage `json:"text"`
	} `json:"status"`
}

// parseUploadID reads result.upload_id from a successful upload response.
func parseUploadID(body []byte) (string, error) {
	var r uploadResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", err
	}

	if r.Result == nil {
		return "", errors.New("response has no result")
	}
	if r.Result.UploadID == nil {
		return "", errors.New("result has no upload_id")
	}

	return *r.Result.UploadID, nil
}

// parseKeywords reads the tags of a successful tags response, taking the text
// for lang. The order of the response is kept: Imagga applies limit and
// threshold, and filtering a limited result again would corrupt it.
func parseKeywords(body []byte, lang string) ([]Keyword, error) {
	var r tagsResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}

	if r.Result == nil {
		return nil, errors.New("response has no result")
	}
	if r.Result.Tags == nil {
		return nil, errors.New("result has no tags")
	}

	keywords := make([]Keyword, 0, len(r.Result.Tags))
	for i, t := range r.Result.Tags {
		if t.Confidence == nil {
			return nil, fmt.Errorf("tag %d has no confidence", i)
		}

		raw, ok := t.Tag[lang]
		if !ok {
			return nil, fmt.Errorf("tag %d has no text for language %q", i, lang)
		}

		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("tag %d text for language %q: %w", i, lang, err)
		}

		keywords = append(keywords, Keyword{Text: text, Confidence: *t.Confidence})
	}

	return keywords, nil
}

// errorText extracts status.text from an error response. The body of a
// failed request is not trusted to have any particular shape: anything
// unexpected results in an empty text.
func errorText(body []byte) string {
	var r errorResponse
	if err := json.Unmarshal(body, &r); err != nil || r.Status == nil {
		return ""
	}

	var text string
	if err := json.Unmarshal(r.Status.Text, &text); err != nil {
		return ""
	}

	return text
}
