// Package patternlib is the default "Pattern source" collaborator: it
// stores user-authored pattern expressions plus their metadata in
// MongoDB so a pattern written on one node is loadable by name on any
// other node on the LAN. It never evaluates a pattern itself — that
// stays internal/pattern/expr's job — it only validates a submission
// compiles before persisting it.
package patternlib

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tiko09/ledctrl/internal/pattern/expr"
)

// Entry is one stored pattern: its source expression plus the
// metadata needed to register it as a pattern.Pattern on a loading
// node. ID is kept when the same name is stored again; storing under a
// different name creates a separate entry with a new ID.
type Entry struct {
	ID        string    `bson:"id"`
	Name      string    `bson:"name"`
	Source    string    `bson:"source"`
	Mode      string    `bson:"mode"` // color.Mode name, e.g. "hsv" or "rgb"
	Author    string    `bson:"author,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Config addresses the backing MongoDB deployment.
type Config struct {
	URI        string
	Database   string
	Collection string
}

func (c Config) collection() string {
	if c.Collection != "" {
		return c.Collection
	}
	return "patterns"
}

// Library is a MongoDB-backed pattern source. Safe for concurrent use
// (the driver's *mongo.Client already is).
type Library struct {
	cfg    Config
	client *mongo.Client
}

// Connect dials MongoDB at cfg.URI and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*Library, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("patternlib: connect: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		return nil, fmt.Errorf("patternlib: ping: %w", err)
	}

	return &Library{cfg: cfg, client: client}, nil
}

// Close disconnects from MongoDB.
func (l *Library) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}

func (l *Library) coll() *mongo.Collection {
	return l.client.Database(l.cfg.Database).Collection(l.cfg.collection())
}

// Store validates source against the expression compiler and, only if
// it compiles cleanly, upserts it under name. Returns the compiler's
// warnings (if any) alongside a nil error on success.
func (l *Library) Store(ctx context.Context, name, source, mode, author string) (warnings []string, err error) {
	_, errs, warnings := expr.Compile(source)
	if len(errs) > 0 {
		return nil, fmt.Errorf("patternlib: pattern %q does not compile: %v", name, errs)
	}

	id := uuid.NewString()
	var existing Entry
	if err := l.coll().FindOne(ctx, bson.M{"name": name}).Decode(&existing); err == nil && existing.ID != "" {
		id = existing.ID
	}

	entry := Entry{
		ID:        id,
		Name:      name,
		Source:    source,
		Mode:      mode,
		Author:    author,
		UpdatedAt: time.Now(),
	}

	opts := options.Update().SetUpsert(true)
	_, err = l.coll().UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": entry},
		opts,
	)
	if err != nil {
		return warnings, fmt.Errorf("patternlib: store %q: %w", name, err)
	}
	return warnings, nil
}

// Load fetches the named entry and compiles its source, so a caller
// gets a ready-to-evaluate Program directly rather than having to
// re-invoke the compiler itself.
func (l *Library) Load(ctx context.Context, name string) (Entry, *expr.Program, error) {
	var entry Entry
	err := l.coll().FindOne(ctx, bson.M{"name": name}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return Entry{}, nil, fmt.Errorf("patternlib: pattern %q not found", name)
		}
		return Entry{}, nil, fmt.Errorf("patternlib: load %q: %w", name, err)
	}

	prog, errs, _ := expr.Compile(entry.Source)
	if len(errs) > 0 {
		return entry, nil, fmt.Errorf("patternlib: stored pattern %q no longer compiles: %v", name, errs)
	}
	return entry, prog, nil
}

// List returns every stored entry's metadata, without compiling any of them.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	cursor, err := l.coll().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, fmt.Errorf("patternlib: list: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("patternlib: decode list: %w", err)
	}
	return entries, nil
}

// Delete removes the named entry. It is not an error to delete a name
// that does not exist.
func (l *Library) Delete(ctx context.Context, name string) error {
	_, err := l.coll().DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("patternlib: delete %q: %w", name, err)
	}
	return nil
}
