package imagga

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// uploadKey identifies the upload id of a resource. A different service URL
// or credential must never reuse an id, so all three take part. The
// credential is only ever stored as part of a digest.
func uploadKey(fingerprint, serviceURL, basicAuthKey string) string {
	h := sha256.New()
	for _, part := range []string{fingerprint, serviceURL, basicAuthKey} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}

	return "upload:" + hex.EncodeToString(h.Sum(nil))
}

// uploadToken is the invalidation token attached to the upload id stored
// under key.
func uploadToken(key string) string {
	return "upload-id:" + key
}

// tagsKey identifies the keywords of one upload for one request shape.
func tagsKey(uploadID string, locale language.Tag, limit, minAccuracy int) string {
	var b strings.Builder
	b.WriteString("tags:")
	b.WriteString(url.QueryEscape(uploadID))
	b.WriteByte(':')
	b.WriteString(locale.String())
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(limit))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(minAccuracy))
	return b.String()
}
