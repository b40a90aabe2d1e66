package imagga

import (
	"io"

	"golang.org/x/text/language"
)

// Keyword is a tag suggested by Imagga together with its confidence, a
// percentage between 0 and 100.
type Keyword struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Resource is the binary content keywords are requested for.
type Resource interface {
	// Fingerprint is a stable identity of the content. Equal content must
	// have an equal fingerprint.
	Fingerprint() string

	// Extension is the file name extension without the leading dot, if the
	// resource has one.
	Extension() (string, bool)

	// Open returns a new stream over the content.
	Open() (io.ReadCloser, error)
}

const defaultLanguage = "en"

// languageCode is the ISO 639 code Imagga expects for locale. An undefined
// locale has no code: Imagga then answers in English.
func languageCode(locale language.Tag) (string, bool) {
	if locale == language.Und {
		return "", false
	}

	base, _ := locale.Base()
	return base.String(), true
}
