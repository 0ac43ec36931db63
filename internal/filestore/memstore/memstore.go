// Package memstore is an in-memory filestore.Store for tests and dry runs.
package memstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
)

// Store keeps objects in memory, keyed by bucket then object key.
type Store struct {
	// Now stamps LastModified; defaults to time.Now.
	Now func() time.Time

	mu      sync.RWMutex
	buckets map[string]map[string]*entry
}

type entry struct {
	data []byte
	info filestore.ObjectInfo
}

var _ filestore.Store = (*Store)(nil)

func New() *Store {
	return &Store{buckets: make(map[string]map[string]*entry)}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) EnsureBucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "ensure bucket", err)
	}
	if bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "bucket name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]*entry)
	}
	return nil
}

func (s *Store) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts filestore.PutOptions) (*filestore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "put object", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "read object body", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "object %s: got %d bytes, want %d", key, len(data), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %s does not exist", bucket)
	}
	sum := md5.Sum(data)
	e := &entry{
		data: data,
		info: filestore.ObjectInfo{
			Key:          key,
			Size:         int64(len(data)),
			ContentType:  opts.ContentType,
			ETag:         hex.EncodeToString(sum[:]),
			LastModified: s.now(),
		},
	}
	objs[key] = e
	info := e.info
	return &info, nil
}

func (s *Store) ListObjects(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "list objects", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %s does not exist", bucket)
	}

	keys := make([]string, 0, len(objs))
	for k := range objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]filestore.ObjectInfo, 0)
	seenDirs := make(map[string]bool)
	for _, k := range keys {
		if !strings.HasPrefix(k, opts.Prefix) || (opts.StartAfter != "" && k <= opts.StartAfter) {
			continue
		}
		if !opts.Recursive {
			if i := strings.Index(k[len(opts.Prefix):], "/"); i >= 0 {
				dir := k[:len(opts.Prefix)+i+1]
				if !seenDirs[dir] {
					seenDirs[dir] = true
					results = append(results, filestore.ObjectInfo{Key: dir, Size: -1, IsDir: true})
				}
				continue
			}
		}
		results = append(results, objs[k].info)
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	return results, nil
}

func (s *Store) lookup(bucket, key string) (*entry, error) {
	objs, ok := s.buckets[bucket]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "bucket %s does not exist", bucket)
	}
	e, ok := objs[key]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "object %s does not exist", key)
	}
	return e, nil
}

func (s *Store) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "get object", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	info := e.info
	return &object{Reader: bytes.NewReader(e.data), info: &info}, nil
}

func (s *Store) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "stat object", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	info := e.info
	return &info, nil
}

// PresignGetURL returns a mem:// URL; ttl is ignored.
func (s *Store) PresignGetURL(ctx context.Context, bucket, key string, _ time.Duration) (string, error) {
	if _, err := s.StatObject(ctx, bucket, key); err != nil {
		return "", err
	}
	return "mem://" + bucket + "/" + key, nil
}

type object struct {
	*bytes.Reader
	info *filestore.ObjectInfo
}

func (o *object) Close() error { return nil }

func (o *object) Info() *filestore.ObjectInfo { return o.info }
