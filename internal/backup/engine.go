package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jpillora/backoff"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"userdb/internal/shared/logger"
)

const restoreBatchSize = 500

// DefaultCollections are the collections archived when none are specified.
var DefaultCollections = []string{"users", "sessions"}

// Engine archives and restores Mongo collections using gzip JSON-lines
// files, one per collection, plus a manifest.
type Engine struct {
	db  *mongo.Database
	log logger.Logger
}

// NewEngine creates an Engine bound to a database.
func NewEngine(db *mongo.Database, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewLogger()
	}
	return &Engine{db: db, log: log.WithComponent("backup")}
}

// BackupResult summarizes a completed backup.
type BackupResult struct {
	Directory   string
	Collections []CollectionInfo
	Duration    time.Duration
}

// Backup archives the given collections into dir. The directory is
// created if it does not exist. Each document is written as one line of
// canonical Extended JSON, so restores are lossless for all BSON types.
func (e *Engine) Backup(ctx context.Context, dir string, collections []string) (*BackupResult, error) {
	if len(collections) == 0 {
		collections = DefaultCollections
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	start := time.Now()
	manifest := &Manifest{
		Database:  e.db.Name(),
		CreatedAt: start.UTC(),
	}

	for _, name := range collections {
		info, err := e.backupCollection(ctx, dir, name)
		if err != nil {
			return nil, fmt.Errorf("failed to back up collection %s: %w", name, err)
		}
		manifest.Collections = append(manifest.Collections, *info)
		e.log.WithFields(map[string]interface{}{
			"collection": name,
			"documents":  info.Count,
		}).Info("Collection archived")
	}

	if err := WriteManifest(dir, manifest); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return &BackupResult{
		Directory:   dir,
		Collections: manifest.Collections,
		Duration:    time.Since(start),
	}, nil
}

func (e *Engine) backupCollection(ctx context.Context, dir, name string) (*CollectionInfo, error) {
	fileName := name + archiveExt
	writer, err := newCollectionWriter(filepath.Join(dir, fileName))
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	cursor, err := e.db.Collection(name).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var count int64
	for cursor.Next(ctx) {
		line, err := bson.MarshalExtJSON(cursor.Current, true, false)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document: %w", err)
		}
		if err := writer.WriteLine(line); err != nil {
			return nil, err
		}
		count++
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return &CollectionInfo{Name: name, Count: count, FileName: fileName}, nil
}

// RestoreOptions controls restore behavior.
type RestoreOptions struct {
	// Drop removes each target collection before inserting documents.
	Drop bool
	// DryRun reports what would be restored without writing anything.
	DryRun bool
}

// RestoreResult summarizes a completed (or simulated) restore.
type RestoreResult struct {
	Database    string
	Collections []CollectionInfo
	DryRun      bool
	Duration    time.Duration
}

// Restore loads an archive directory back into the database. With
// DryRun it only counts documents per collection; with Drop the target
// collections are dropped before inserting.
func (e *Engine) Restore(ctx context.Context, dir string, opts RestoreOptions) (*RestoreResult, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &RestoreResult{
		Database: manifest.Database,
		DryRun:   opts.DryRun,
	}

	for _, info := range manifest.Collections {
		restored, err := e.restoreCollection(ctx, dir, info, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to restore collection %s: %w", info.Name, err)
		}
		result.Collections = append(result.Collections, CollectionInfo{
			Name:     info.Name,
			Count:    restored,
			FileName: info.FileName,
		})
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (e *Engine) restoreCollection(ctx context.Context, dir string, info CollectionInfo, opts RestoreOptions) (int64, error) {
	reader, err := newCollectionReader(filepath.Join(dir, info.FileName))
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	if opts.DryRun {
		var count int64
		for {
			_, ok, err := reader.Next()
			if err != nil {
				return 0, err
			}
			if !ok {
				break
			}
			count++
		}
		return count, nil
	}

	coll := e.db.Collection(info.Name)
	if opts.Drop {
		if err := coll.Drop(ctx); err != nil {
			return 0, fmt.Errorf("failed to drop collection: %w", err)
		}
		e.log.WithFields(map[string]interface{}{"collection": info.Name}).Warn("Collection dropped before restore")
	}

	var (
		batch    []interface{}
		restored int64
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false)); err != nil {
			return err
		}
		restored += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		line, ok, err := reader.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}

		var doc bson.D
		if err := bson.UnmarshalExtJSON(line, true, &doc); err != nil {
			return 0, fmt.Errorf("failed to decode document: %w", err)
		}
		batch = append(batch, doc)
		if len(batch) >= restoreBatchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}

	e.log.WithFields(map[string]interface{}{
		"collection": info.Name,
		"documents":  restored,
	}).Info("Collection restored")
	return restored, nil
}

const connectAttempts = 5

// Connect dials Mongo with bounded exponential backoff so CLI runs
// tolerate a database that is still starting up.
func Connect(ctx context.Context, uri string, log logger.Logger) (*mongo.Client, error) {
	if log == nil {
		log = logger.NewLogger()
	}

	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var client *mongo.Client
	dial := func(ctx context.Context) error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = c.Ping(pingCtx, nil)
		cancel()
		if err != nil {
			_ = c.Disconnect(ctx)
			return err
		}
		client = c
		return nil
	}

	if err := dialWithRetry(ctx, connectAttempts, b, log, dial); err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB after retries: %w", err)
	}
	return client, nil
}

// dialWithRetry runs dial up to attempts times. The retry announcement and
// delay only happen when another attempt actually follows.
func dialWithRetry(ctx context.Context, attempts int, b *backoff.Backoff, log logger.Logger, dial func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := dial(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := b.Duration()
		log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Warn("MongoDB connection failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
