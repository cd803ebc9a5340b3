// Package storage publishes generated images under random, never-reused
// object names and returns their public URLs.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"tryon/internal/imagecodec"
)

// ErrObjectExists is returned instead of overwriting an existing object.
var ErrObjectExists = errors.New("storage: object already exists")

// Object is one upload.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// Publisher stores an object and returns a URL anyone can fetch it from.
type Publisher interface {
	Publish(ctx context.Context, obj Object) (string, error)
}

// NewObjectKey returns "<uuid>.<ext>" for the given MIME type.
func NewObjectKey(mime string) string {
	return uuid.NewString() + "." + imagecodec.Extension(mime)
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		out += "/" + p
	}
	return out
}

func validateObject(obj Object) (string, error) {
	if len(obj.Data) == 0 {
		return "", errors.New("storage: object is empty")
	}
	return sanitizeKey(obj.Key)
}
