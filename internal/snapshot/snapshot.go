// Package snapshot captures the catalog of one database as a JSON document
// and stores it in object storage under
//
//	<prefix>/<database>/<id>.json
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/koustreak/pgmeta/internal/catalog"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/logger"
)

const contentType = "application/json"

// Snapshot is an immutable copy of catalog state at TakenAt.
type Snapshot struct {
	ID        uuid.UUID          `json:"id"`
	TakenAt   time.Time          `json:"taken_at"`
	Database  string             `json:"database"`
	Databases []catalog.Database `json:"databases"`
	Relations []catalog.Relation `json:"relations"`
}

// Source is the subset of catalog.Reader a snapshot is built from.
type Source interface {
	CurrentDatabase(ctx context.Context) (string, error)
	Databases(ctx context.Context) ([]catalog.Database, error)
	Relations(ctx context.Context) ([]catalog.Relation, error)
}

var _ Source = (*catalog.Reader)(nil)

// Take reads the current database name, the database list and every
// relation concurrently. Each read uses its own connection, so the three
// parts are not transactionally consistent with each other.
func Take(ctx context.Context, src Source) (*Snapshot, error) {
	snap := &Snapshot{ID: uuid.New(), TakenAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Database, err = src.CurrentDatabase(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Databases, err = src.Databases(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Relations, err = src.Relations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Entry describes a stored snapshot without loading it.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	Database     string    `json:"database"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Exporter writes and reads snapshots in one bucket.
type Exporter struct {
	store  filestore.Store
	bucket string
	prefix string
	log    *logger.Logger
}

// NewExporter returns an Exporter storing under bucket/prefix.
func NewExporter(store filestore.Store, bucket, prefix string, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{
		store:  store,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log,
	}
}

// Key returns the object key for a snapshot of database with id.
func (e *Exporter) Key(database string, id uuid.UUID) string {
	return path.Join(e.prefix, database, id.String()+".json")
}

// Export writes snap and returns its object key. The bucket is created on
// first use.
func (e *Exporter) Export(ctx context.Context, snap *Snapshot) (string, error) {
	if err := checkDatabase(snap.Database); err != nil {
		return "", err
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnknown, "failed to encode snapshot", err)
	}

	if err := e.store.EnsureBucket(ctx, e.bucket); err != nil {
		return "", err
	}

	key := e.Key(snap.Database, snap.ID)
	info, err := e.store.PutObject(ctx, e.bucket, key, bytes.NewReader(body), int64(len(body)),
		filestore.PutOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}

	e.log.With().
		Str("bucket", e.bucket).
		Str("key", key).
		Int("relations", len(snap.Relations)).
		Int("bytes", int(info.Size)).
		Logger().Info("snapshot exported")
	return key, nil
}

// List returns the snapshots stored for database, oldest first. An empty
// database lists snapshots of every database.
func (e *Exporter) List(ctx context.Context, database string) ([]Entry, error) {
	prefix := e.prefix + "/"
	if e.prefix == "" {
		prefix = ""
	}
	if database != "" {
		if err := checkDatabase(database); err != nil {
			return nil, err
		}
		prefix += database + "/"
	}

	objs, err := e.store.ListObjects(ctx, e.bucket, filestore.ListOptions{Prefix: prefix, Recursive: true})
	if err != nil {
		if errs.IsNotFound(err) {
			return []Entry{}, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(objs))
	for _, o := range objs {
		entry, ok := e.parseKey(o.Key)
		if !ok {
			continue
		}
		entry.Size = o.Size
		entry.LastModified = o.LastModified
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastModified.Before(entries[j].LastModified)
	})
	return entries, nil
}

// Load reads one snapshot back.
func (e *Exporter) Load(ctx context.Context, database string, id uuid.UUID) (*Snapshot, error) {
	if err := checkDatabase(database); err != nil {
		return nil, err
	}
	obj, err := e.store.GetObject(ctx, e.bucket, e.Key(database, id))
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var snap Snapshot
	if err := json.NewDecoder(obj).Decode(&snap); err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "failed to decode snapshot "+id.String(), err)
	}
	return &snap, nil
}

// URL returns a time-limited download link for a stored snapshot.
func (e *Exporter) URL(ctx context.Context, database string, id uuid.UUID, ttl time.Duration) (string, error) {
	if err := checkDatabase(database); err != nil {
		return "", err
	}
	return e.store.PresignGetURL(ctx, e.bucket, e.Key(database, id), ttl)
}

// checkDatabase rejects names that cannot be one key segment. path.Join
// would collapse "." and "..", moving the object out of its database.
func checkDatabase(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return errs.Newf(errs.ErrKindInvalidInput, "database name %q cannot be used in a snapshot key", name)
	}
	return nil
}

// parseKey accepts keys of the form <prefix>/<database>/<uuid>.json.
func (e *Exporter) parseKey(key string) (Entry, bool) {
	rest := key
	if e.prefix != "" {
		var ok bool
		if rest, ok = strings.CutPrefix(key, e.prefix+"/"); !ok {
			return Entry{}, false
		}
	}

	db, file, ok := strings.Cut(rest, "/")
	if !ok || db == "" || strings.Contains(file, "/") {
		return Entry{}, false
	}
	name, ok := strings.CutSuffix(file, ".json")
	if !ok {
		return Entry{}, false
	}
	id, err := uuid.Parse(name)
	if err != nil || id.String() != name {
		return Entry{}, false
	}
	return Entry{ID: id, Database: db, Key: key}, true
}
