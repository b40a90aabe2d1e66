package imagga

import (
	"io"
	"strings"
)

const (
	boundary          = "ImageUpload"
	uploadContentType = "multipart/form-data;boundary=" + boundary
	crlf              = "\r\n"
)

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// uploadBody streams res as a multipart/form-data payload with a single part
// named "image":
//
//	--ImageUpload
//	Content-Disposition: form-data; name="image"; filename="<fingerprint>.<ext>"
//
//	<content>
//	--ImageUpload--
//
// The content is never read into memory; closing the body closes the
// resource stream.
func uploadBody(res Resource) (io.ReadCloser, error) {
	content, err := res.Open()
	if err != nil {
		return nil, err
	}

	filename := res.Fingerprint()
	if ext, ok := res.Extension(); ok {
		filename += "." + ext
	}

	head := "--" + boundary + crlf +
		`Content-Disposition: form-data; name="image"; filename="` + quoteEscaper.Replace(filename) + `"` + crlf +
		crlf
	tail := crlf + "--" + boundary + "--" + crlf

	return &multipartBody{
		Reader:  io.MultiReader(strings.NewReader(head), content, strings.NewReader(tail)),
		content: content,
	}, nil
}

type multipartBody struct {
	io.Reader
	content io.Closer
}

func (b *multipartBody) Close() error {
	return b.content.Close()
}
