package imagga

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResource struct {
	fingerprint string
	ext         string
	content     string
	openErr     error
	closed      bool
}

func (r *stubResource) Fingerprint() string { return r.fingerprint }

func (r *stubResource) Extension() (string, bool) { return r.ext, r.ext != "" }

func (r *stubResource) Open() (io.ReadCloser, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	return &closeRecorder{Reader: strings.NewReader(r.content), closed: &r.closed}, nil
}

type closeRecorder struct {
	io.Reader
	closed *bool
}

func (c *closeRecorder) Close() error {
	*c.closed = true
	return nil
}

func TestUploadBody(t *testing.T) {
	res := &stubResource{fingerprint: "etag", ext: "png", content: "\x89PNG image bytes"}

	body, err := uploadBody(res)
	require.NoError(t, err)

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.True(t, res.closed)

	expected := "--ImageUpload\r\n" +
		"Content-Disposition: form-data; name=\"image\"; filename=\"etag.png\"\r\n" +
		"\r\n" +
		"\x89PNG image bytes" +
		"\r\n--ImageUpload--\r\n"
	assert.Equal(t, expected, string(raw))
}

func TestUploadBody_ParsesAsMultipart(t *testing.T) {
	res := &stubResource{fingerprint: "etag", content: "content"}

	body, err := uploadBody(res)
	require.NoError(t, err)
	defer body.Close()

	mediaType, params, err := mime.ParseMediaType(uploadContentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(body, params["boundary"])

	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "image", part.FormName())
	assert.Equal(t, "etag", part.FileName())

	content, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestUploadBody_EscapesFilename(t *testing.T) {
	res := &stubResource{fingerprint: `W/"abc"`, content: "x"}

	body, err := uploadBody(res)
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `filename="W/\"abc\""`)
}

func TestUploadBody_OpenFails(t *testing.T) {
	res := &stubResource{fingerprint: "etag", openErr: errors.New("gone")}

	_, err := uploadBody(res)
	assert.EqualError(t, err, "gone")
}
