package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	fgerrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/httputil"
)

// Mongo defaults used when the URI does not name them.
const (
	DefaultDatabase   = "forcegraph"
	DefaultCollection = "records"
)

// Source fetches graph query records from somewhere.
type Source interface {
	// Key identifies the fetched content for caching. Two calls with the
	// same key are expected to return the same records.
	Key() string
	// Fetch retrieves all records.
	Fetch(ctx context.Context) ([]Record, error)
}

// FileSource reads records from a JSON file.
type FileSource struct {
	Path string
}

// Key includes the modification time so edits invalidate cached results.
func (s FileSource) Key() string {
	if fi, err := os.Stat(s.Path); err == nil {
		return fmt.Sprintf("file:%s@%d", s.Path, fi.ModTime().UnixNano())
	}
	return "file:" + s.Path
}

func (s FileSource) Fetch(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fgerrors.Wrap(fgerrors.ErrCodeSourceNotFound, err, "open %s", s.Path)
		}
		return nil, fgerrors.Wrap(fgerrors.ErrCodeInternal, err, "open %s", s.Path)
	}
	defer f.Close()

	recs, err := DecodeRecords(f)
	if err != nil {
		return nil, fgerrors.Wrap(fgerrors.ErrCodeInvalidFormat, err, "%s", s.Path)
	}
	return recs, nil
}

// HTTPSource fetches a JSON array of records from a URL.
type HTTPSource struct {
	URL    string
	Client *httputil.Client
}

func (s HTTPSource) Key() string { return "http:" + s.URL }

func (s HTTPSource) Fetch(ctx context.Context) ([]Record, error) {
	c := s.Client
	if c == nil {
		c = httputil.NewClient(nil)
	}
	var recs []Record
	if err := c.Get(ctx, s.URL, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// MongoSource reads records stored as documents in a MongoDB collection.
// Each document has the shape of a Record.
type MongoSource struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// NewMongoSource parses uri. The database comes from the URI path and the
// collection from the "collection" query parameter, which is stripped
// before connecting.
func NewMongoSource(uri string) (MongoSource, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return MongoSource{}, fgerrors.Wrap(fgerrors.ErrCodeInvalidInput, err, "mongo uri")
	}
	s := MongoSource{
		Database:   strings.Trim(u.Path, "/"),
		Collection: u.Query().Get("collection"),
		Timeout:    10 * time.Second,
	}
	if s.Database == "" {
		s.Database = DefaultDatabase
	}
	if s.Collection == "" {
		s.Collection = DefaultCollection
	}
	q := u.Query()
	q.Del("collection")
	u.RawQuery = q.Encode()
	s.URI = u.String()
	return s, nil
}

func (s MongoSource) Key() string {
	return fmt.Sprintf("mongo:%s/%s", s.Database, s.Collection)
}

func (s MongoSource) Fetch(ctx context.Context) ([]Record, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.URI))
	if err != nil {
		return nil, fgerrors.Wrap(fgerrors.ErrCodeNetwork, err, "connect mongo")
	}
	defer client.Disconnect(context.Background())

	coll := client.Database(s.Database).Collection(s.Collection)
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fgerrors.Wrap(fgerrors.ErrCodeNetwork, err, "find %s.%s", s.Database, s.Collection)
	}
	var recs []Record
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fgerrors.Wrap(fgerrors.ErrCodeInvalidFormat, err, "decode %s.%s", s.Database, s.Collection)
	}
	return recs, nil
}

// Open picks a Source from a location: mongodb:// and mongodb+srv:// URIs,
// http(s) URLs, or a local file path. client is used for HTTP sources and
// may be nil.
func Open(location string, client *httputil.Client) (Source, error) {
	switch {
	case location == "":
		return nil, fgerrors.New(fgerrors.ErrCodeInvalidInput, "empty source location")
	case strings.HasPrefix(location, "mongodb://"), strings.HasPrefix(location, "mongodb+srv://"):
		return NewMongoSource(location)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return HTTPSource{URL: location, Client: client}, nil
	default:
		return FileSource{Path: strings.TrimPrefix(location, "file://")}, nil
	}
}
