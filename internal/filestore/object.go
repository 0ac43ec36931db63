package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket, e.g. "pgmeta/app/<id>.json".
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	ContentType  string
	ETag         string
	LastModified time.Time

	// IsDir is true for a common prefix returned by a non-recursive listing.
	IsDir bool
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading.
type Object interface {
	io.ReadCloser

	Info() *ObjectInfo
}

// ListOptions controls how ListObjects filters results.
type ListOptions struct {
	// Prefix restricts results to keys starting with this string.
	Prefix string

	// Recursive lists every key under Prefix instead of grouping by "/".
	Recursive bool

	// Limit caps the number of results. 0 means no cap.
	Limit int

	// StartAfter skips keys up to and including this one.
	StartAfter string
}

// PutOptions carries metadata for PutObject.
type PutOptions struct {
	ContentType string
}
