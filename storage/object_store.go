package storage

import "context"

// Object is a public document published under a stable key.
type Object struct {
	Key          string
	ContentType  string
	CacheControl string
	Body         []byte
}

type PutResult struct {
	Key  string
	URL  string
	ETag string
}

// ObjectStore overwrites objects in place; readers always fetch the
// latest version from the public URL.
type ObjectStore interface {
	Put(ctx context.Context, obj Object) (*PutResult, error)
	PublicURL(key string) string
}
