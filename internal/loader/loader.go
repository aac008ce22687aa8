// Package loader runs the two-pass ingest: every song-catalog file first,
// then every listening-log file. Each file is parsed in full, then written
// in its own transaction and committed, so a failing file leaves nothing
// behind and earlier files stay loaded.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/datasource/file"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/extract"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/metrics"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/storage"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/transform"
)

// FileExt is the extension of input files.
const FileExt = ".json"

// ProgressFunc is called after each file of a pass, successful or not.
type ProgressFunc func(kind extract.Kind, done, total int, path string)

// Options configures a Loader. The zero value loads with hash songplay ids,
// fails fast and does not cache lookups.
type Options struct {
	SongRoot string
	LogRoot  string

	// Job labels metrics.
	Job string
	// IDs assigns songplay_id; nil means transform.HashIDs.
	IDs transform.IDGenerator
	// LookupCache memoizes song lookups for the duration of the event pass.
	LookupCache bool
	// ContinueOnError logs and skips failed files; the pass then returns
	// all file errors joined.
	ContinueOnError bool
	Extractor       extract.Extractor
	OnProgress      ProgressFunc
}

// Loader drives a Store through the ingest protocol.
type Loader struct {
	store storage.Store
	log   *zap.Logger
	opts  Options
	runID string
}

// PassResult tallies one pass.
type PassResult struct {
	Found     int
	Processed int
	Failed    int
}

// Summary is the outcome of Run.
type Summary struct {
	RunID   string
	Catalog PassResult
	Events  PassResult
	// Rows holds the row count per table after the run.
	Rows map[string]int64
}

// New returns a Loader writing to store. A nil logger is replaced by a
// no-op one.
func New(store storage.Store, log *zap.Logger, opts Options) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.IDs == nil {
		opts.IDs = transform.HashIDs{}
	}
	id := uuid.NewString()
	return &Loader{
		store: store,
		log:   log.With(zap.String("run_id", id)),
		opts:  opts,
		runID: id,
	}
}

// RunID identifies this loader's run in logs.
func (l *Loader) RunID() string { return l.runID }

// Run loads the catalog, then the event logs, then reads back row counts.
// The event pass never starts if the catalog pass fails, since songplays
// resolve their song against the loaded catalog.
func (l *Loader) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: l.runID}
	l.log.Info("ingest started",
		zap.String("song_data", l.opts.SongRoot),
		zap.String("log_data", l.opts.LogRoot))

	var err error
	if sum.Catalog, err = l.step(ctx, "catalog", l.opts.SongRoot, extract.KindSong); err != nil {
		return sum, err
	}
	if sum.Events, err = l.step(ctx, "events", l.opts.LogRoot, extract.KindEvent); err != nil {
		return sum, err
	}

	start := time.Now()
	sum.Rows, err = l.counts(ctx)
	metrics.RecordStep(l.opts.Job, "summary", err, time.Since(start))
	if err != nil {
		return sum, err
	}
	fields := make([]zap.Field, 0, len(storage.Tables))
	for _, t := range storage.Tables {
		fields = append(fields, zap.Int64(t.Name, sum.Rows[t.Name]))
	}
	l.log.Info("ingest finished", fields...)
	return sum, nil
}

func (l *Loader) step(ctx context.Context, step, root string, kind extract.Kind) (PassResult, error) {
	start := time.Now()
	res, err := l.ProcessDir(ctx, root, kind)
	metrics.RecordStep(l.opts.Job, step, err, time.Since(start))
	if err != nil {
		return res, fmt.Errorf("%s pass: %w", step, err)
	}
	return res, nil
}

func (l *Loader) counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(storage.Tables))
	for _, t := range storage.Tables {
		n, err := l.store.Count(ctx, t)
		if err != nil {
			return nil, err
		}
		out[t.Name] = n
	}
	return out, nil
}

// ProcessDir loads every FileExt file under root as kind, one transaction
// per file, in walk order.
func (l *Loader) ProcessDir(ctx context.Context, root string, kind extract.Kind) (PassResult, error) {
	var res PassResult
	files, err := file.Collect(file.FindFiles(root, FileExt))
	if err != nil {
		return res, err
	}
	res.Found = len(files)
	l.log.Info(fmt.Sprintf("%d files found in %s", len(files), root), zap.String("kind", string(kind)))

	var lookups *storage.CachedLookup
	if kind == extract.KindEvent && l.opts.LookupCache {
		lookups = storage.NewCachedLookup()
	}

	var errs []error
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := l.processFile(ctx, path, kind, lookups)
		metrics.RecordFile(l.opts.Job, string(kind), err)
		if err != nil {
			res.Failed++
			if !l.opts.ContinueOnError || ctx.Err() != nil {
				return res, err
			}
			l.log.Error("file skipped", zap.String("path", path), zap.Error(err))
			errs = append(errs, err)
		} else {
			res.Processed++
		}

		if l.opts.OnProgress != nil {
			l.opts.OnProgress(kind, i+1, len(files), path)
		}
		l.log.Info(fmt.Sprintf("%d/%d files processed.", i+1, len(files)), zap.String("path", path))
	}

	if lookups != nil {
		hits, misses := lookups.Stats()
		l.log.Debug("song lookup cache", zap.Int64("hits", hits), zap.Int64("misses", misses))
	}
	return res, errors.Join(errs...)
}

func (l *Loader) processFile(ctx context.Context, path string, kind extract.Kind, cache *storage.CachedLookup) error {
	src := file.NewLocal(path)
	var err error
	switch kind {
	case extract.KindSong:
		err = l.loadCatalog(ctx, src)
	case extract.KindEvent:
		err = l.loadEvents(ctx, src, cache)
	default:
		err = fmt.Errorf("unknown file kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("process %s: %w", path, err)
	}
	return nil
}

func (l *Loader) loadCatalog(ctx context.Context, src *file.Local) error {
	recs, err := l.opts.Extractor.Songs(ctx, src)
	if err != nil {
		return err
	}

	songs := make([]rowValuer, 0, len(recs))
	artists := make([]rowValuer, 0, len(recs))
	for _, r := range recs {
		s, a := transform.Catalog(r)
		songs = append(songs, s)
		artists = append(artists, a)
	}

	return l.inTx(ctx, func(tx storage.Tx) error {
		if err := l.write(ctx, tx, storage.Songs, songs); err != nil {
			return err
		}
		return l.write(ctx, tx, storage.Artists, artists)
	})
}

func (l *Loader) loadEvents(ctx context.Context, src *file.Local, cache *storage.CachedLookup) error {
	recs, err := l.opts.Extractor.Events(ctx, src)
	if err != nil {
		return err
	}
	plays := extract.Playbacks(recs)

	return l.inTx(ctx, func(tx storage.Tx) error {
		var lookup storage.Lookup = tx
		if cache != nil {
			lookup = cache.Through(tx)
		}
		var matched, unmatched int64
		counted := transform.LookupFunc(func(ctx context.Context, title, artist string, duration float64) (string, string, bool, error) {
			songID, artistID, found, err := lookup.LookupSong(ctx, title, artist, duration)
			if err == nil {
				if found {
					matched++
				} else {
					unmatched++
				}
			}
			return songID, artistID, found, err
		})

		rows, err := transform.Events(ctx, plays, counted, l.opts.IDs)
		if err != nil {
			return err
		}
		metrics.RecordLookups(l.opts.Job, "matched", matched)
		metrics.RecordLookups(l.opts.Job, "unmatched", unmatched)

		if err := l.write(ctx, tx, storage.Times, valuers(rows.Times)); err != nil {
			return err
		}
		if err := l.write(ctx, tx, storage.Users, valuers(rows.Users)); err != nil {
			return err
		}
		return l.write(ctx, tx, storage.SongPlays, valuers(rows.SongPlays))
	})
}

// inTx runs fn in a new transaction, committing on success and rolling back
// otherwise.
func (l *Loader) inTx(ctx context.Context, fn func(storage.Tx) error) (err error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			l.log.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type rowValuer interface{ Values() []any }

func valuers[T rowValuer](rows []T) []rowValuer {
	out := make([]rowValuer, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// write converts typed rows at the store boundary and writes them with the
// table's conflict policy.
func (l *Loader) write(ctx context.Context, tx storage.Tx, table storage.Table, rows []rowValuer) error {
	if len(rows) == 0 {
		return nil
	}
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = r.Values()
	}
	n, err := tx.Write(ctx, table, table.Policy, vals)
	if err != nil {
		return err
	}
	metrics.RecordRows(l.opts.Job, table.Name, n)
	return nil
}
