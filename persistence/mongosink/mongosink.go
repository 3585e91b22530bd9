// Package mongosink appends every emitted orchestration event as a document
// to a MongoDB collection: a narrow Client interface sits over the driver,
// and Sink only depends on that interface so it can be faked in tests
// without a live Mongo instance.
package mongosink

import (
	"context"
	"errors"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forgeflow/execorch/events"
)

const (
	defaultCollection = "execorch_events"
	defaultOpTimeout   = 5 * time.Second
)

// Client is the narrow set of collection operations the sink needs, small
// enough for a fake to stand in for tests.
type Client interface {
	InsertOne(ctx context.Context, doc any) error
}

// driverClient adapts a real *mongo.Collection to Client.
type driverClient struct {
	coll    *mongodriver.Collection
	timeout time.Duration
}

func (c *driverClient) InsertOne(ctx context.Context, doc any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

// Options configures the Mongo-backed event sink.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Sink implements events.Sink by appending every event as a BSON document.
type Sink struct {
	client Client
}

// NewSink builds a Sink from an already-dialed Mongo client.
func NewSink(opts Options) (*Sink, error) {
	if opts.Client == nil {
		return nil, errors.New("mongosink: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongosink: database name is required")
	}
	collection := opts.Collection
	if collection == "" {
		collection = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collection)
	return &Sink{client: &driverClient{coll: coll, timeout: timeout}}, nil
}

// newSinkWithClient is the test seam: it bypasses the real driver entirely.
func newSinkWithClient(c Client) *Sink {
	return &Sink{client: c}
}

// Receive implements events.Sink. It never returns an error to the caller —
// a Mongo write failure degrades the event sink, it must never interrupt
// orchestration (spec.md §4.7's stream is the source of truth; sinks are
// best-effort fan-out).
func (s *Sink) Receive(e events.Event) {
	doc := map[string]any{
		"type":      string(e.Type()),
		"level":     string(e.Level()),
		"seq":       int64(e.Sequence()),
		"timestamp": time.UnixMilli(e.Timestamp()),
	}
	if e.GroupID() != "" {
		doc["group_id"] = e.GroupID()
	}
	if e.ParentID() != "" {
		doc["parent_id"] = e.ParentID()
	}
	_ = s.client.InsertOne(context.Background(), doc)
}
