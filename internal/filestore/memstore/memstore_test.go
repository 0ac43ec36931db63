package memstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
)

func put(t *testing.T, s *Store, key, body string) {
	t.Helper()
	_, err := s.PutObject(context.Background(), "b", key, strings.NewReader(body), int64(len(body)), filestore.PutOptions{ContentType: "text/plain"})
	require.NoError(t, err)
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.EnsureBucket(ctx, "b"))
	put(t, s, "x/1.json", "hello")

	obj, err := s.GetObject(ctx, "b", "x/1.json")
	require.NoError(t, err)
	defer obj.Close()

	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), obj.Info().Size)
	assert.Equal(t, "text/plain", obj.Info().ContentType)
	assert.NotEmpty(t, obj.Info().ETag)
}

func TestStore_Missing(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetObject(ctx, "nope", "k")
	assert.True(t, errs.IsNotFound(err))

	require.NoError(t, s.EnsureBucket(ctx, "b"))
	_, err = s.StatObject(ctx, "b", "k")
	assert.True(t, errs.IsNotFound(err))

	_, err = s.PutObject(ctx, "nope", "k", strings.NewReader(""), 0, filestore.PutOptions{})
	assert.True(t, errs.IsNotFound(err))
}

func TestStore_PutSizeMismatch(t *testing.T) {
	s := New()
	require.NoError(t, s.EnsureBucket(context.Background(), "b"))

	_, err := s.PutObject(context.Background(), "b", "k", strings.NewReader("abc"), 10, filestore.PutOptions{})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.EnsureBucket(ctx, "b"))
	for _, k := range []string{"p/app/2.json", "p/app/1.json", "p/web/1.json", "p/top.json", "other.json"} {
		put(t, s, k, "{}")
	}

	all, err := s.ListObjects(ctx, "b", filestore.ListOptions{Prefix: "p/", Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"p/app/1.json", "p/app/2.json", "p/top.json", "p/web/1.json"}, keys(all))

	shallow, err := s.ListObjects(ctx, "b", filestore.ListOptions{Prefix: "p/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p/app/", "p/top.json", "p/web/"}, keys(shallow))
	assert.True(t, shallow[0].IsDir)

	limited, err := s.ListObjects(ctx, "b", filestore.ListOptions{Prefix: "p/", Recursive: true, Limit: 1, StartAfter: "p/app/1.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p/app/2.json"}, keys(limited))
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().EnsureBucket(ctx, "b")
	assert.True(t, errs.IsTimeout(err))
}

func keys(objs []filestore.ObjectInfo) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Key
	}
	return out
}
