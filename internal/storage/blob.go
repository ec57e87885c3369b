package storage

import (
	"io"
	"path"

	"github.com/google/uuid"
)

// BlobStore holds question media (images, audio for listening items,
// attachments for file_upload stems).
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// MediaKey builds the canonical key for a question's media file, keeping the
// original extension so handlers can infer a content type on the way out.
func MediaKey(questionID, filename string) string {
	return path.Join("media", questionID, uuid.NewString()+path.Ext(filename))
}
