// Package sqlstore implements storage.Driver on any database/sql connection
// using ent's dialect-aware SQL builder. The sqlite and postgres packages open
// the connection and hand it to New.
package sqlstore

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/fxamacker/cbor/v2"

	"github.com/authorid/authorid/pkg/sample"
	"github.com/authorid/authorid/pkg/storage"
	"github.com/authorid/authorid/pkg/vec"
)

const (
	usersTable   = "users"
	samplesTable = "samples"
)

var userColumns = []string{"id", "email", "name", "pw_hash", "created_at"}

var sampleColumns = []string{
	"id", "user_id", "label", "fingerprint", "dimensions",
	"image_key", "filename", "content_type", "created_at",
}

// Store implements storage.Driver over an ent SQL driver.
type Store struct {
	drv     *entsql.Driver
	dialect string
}

// New wraps db with ent's SQL driver for the given dialect (dialect.SQLite or
// dialect.Postgres) and creates the schema if it does not exist yet.
func New(ctx context.Context, db *stdsql.DB, dialectName string) (*Store, error) {
	if dialectName != dialect.SQLite && dialectName != dialect.Postgres {
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialectName)
	}

	s := &Store{
		drv:     entsql.OpenDB(dialectName, db),
		dialect: dialectName,
	}

	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		var res stdsql.Result
		if err := s.drv.Exec(ctx, stmt, []any{}, &res); err != nil {
			return err
		}
	}
	return nil
}

// schema returns the DDL for a dialect. seq carries insertion order.
func schema(name string) []string {
	seq, blob, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "BLOB", "TIMESTAMP"
	if name == dialect.Postgres {
		seq, blob, ts = "BIGSERIAL PRIMARY KEY", "BYTEA", "TIMESTAMPTZ"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			seq ` + seq + `,
			id TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			pw_hash TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			seq ` + seq + `,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			label TEXT NOT NULL,
			fingerprint ` + blob + ` NOT NULL,
			dimensions INTEGER NOT NULL,
			image_key TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS samples_user_id ON samples (user_id)`,
	}
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// CreateUser stores a new user.
func (s *Store) CreateUser(ctx context.Context, user *sample.User) error {
	if user == nil {
		return errors.New("cannot store nil user")
	}

	query, args := s.builder().
		Insert(usersTable).
		Columns(userColumns...).
		Values(user.ID, strings.ToLower(user.Email), user.Name, user.PasswordHash, user.CreatedAt).
		Query()

	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		// Unique violations are reported differently by every driver, so
		// check for the conflicting row instead of parsing the error.
		if _, lookupErr := s.GetUserByEmail(ctx, user.Email); lookupErr == nil {
			return storage.ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*sample.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*sample.User, error) {
	return s.getUser(ctx, "email", strings.ToLower(email))
}

func (s *Store) getUser(ctx context.Context, column, value string) (*sample.User, error) {
	query, args := s.builder().
		Select(userColumns...).
		From(entsql.Table(usersTable)).
		Where(entsql.EQ(column, value)).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating users: %w", err)
		}
		return nil, storage.NotFoundError{Kind: "user", ID: value}
	}

	u := &sample.User{}
	if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	return u, nil
}

// PutSample stores a new labelled sample. The fingerprint is persisted as a
// CBOR-encoded float array.
func (s *Store) PutSample(ctx context.Context, smp *sample.LabelledSample) error {
	if smp == nil {
		return errors.New("cannot store nil sample")
	}

	if _, err := s.GetUser(ctx, smp.UserID); err != nil {
		return err
	}

	blob, err := encodeFingerprint(smp.Fingerprint)
	if err != nil {
		return fmt.Errorf("encoding fingerprint for sample %s: %w", smp.ID, err)
	}

	query, args := s.builder().
		Insert(samplesTable).
		Columns(sampleColumns...).
		Values(
			smp.ID, smp.UserID, smp.Label, blob, len(smp.Fingerprint),
			smp.ImageKey, smp.Filename, smp.ContentType, smp.CreatedAt,
		).
		Query()

	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("inserting sample %s: %w", smp.ID, err)
	}

	return nil
}

// GetSample retrieves one of the user's samples.
func (s *Store) GetSample(ctx context.Context, userID, id string) (*sample.LabelledSample, error) {
	samples, err := s.querySamples(ctx, s.builder().
		Select(sampleColumns...).
		From(entsql.Table(samplesTable)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("id", id))).
		Limit(1))
	if err != nil {
		return nil, err
	}

	if len(samples) == 0 {
		return nil, storage.NotFoundError{Kind: "sample", ID: id}
	}

	return samples[0], nil
}

// ListSamples returns the user's samples in insertion order.
func (s *Store) ListSamples(ctx context.Context, userID string) ([]*sample.LabelledSample, error) {
	return s.querySamples(ctx, s.builder().
		Select(sampleColumns...).
		From(entsql.Table(samplesTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("seq"))
}

func (s *Store) querySamples(ctx context.Context, selector *entsql.Selector) ([]*sample.LabelledSample, error) {
	query, args := selector.Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	samples := []*sample.LabelledSample{}
	for rows.Next() {
		var (
			smp        sample.LabelledSample
			blob       []byte
			dimensions int
			createdAt  time.Time
		)
		if err := rows.Scan(
			&smp.ID, &smp.UserID, &smp.Label, &blob, &dimensions,
			&smp.ImageKey, &smp.Filename, &smp.ContentType, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}

		fp, err := decodeFingerprint(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding fingerprint for sample %s: %w", smp.ID, err)
		}
		if len(fp) != dimensions {
			return nil, fmt.Errorf("sample %s: stored %d dimensions, decoded %d", smp.ID, dimensions, len(fp))
		}

		smp.Fingerprint = fp
		smp.CreatedAt = createdAt.UTC()
		samples = append(samples, &smp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples: %w", err)
	}

	return samples, nil
}

// DeleteSample removes one of the user's samples.
func (s *Store) DeleteSample(ctx context.Context, userID, id string) error {
	query, args := s.builder().
		Delete(samplesTable).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("id", id))).
		Query()

	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("deleting sample %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting sample %s: %w", id, err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: "sample", ID: id}
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.drv.Close()
}

func encodeFingerprint(fp vec.Vector) ([]byte, error) {
	return cbor.Marshal([]float64(fp))
}

func decodeFingerprint(b []byte) (vec.Vector, error) {
	var fp []float64
	if err := cbor.Unmarshal(b, &fp); err != nil {
		return nil, err
	}
	return vec.Vector(fp), nil
}

var _ storage.Driver = (*Store)(nil)
