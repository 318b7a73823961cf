package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/dxengine/engine/internal/core/scenefile"
)

// ErrNoSnapshot is returned by Latest when no snapshot has the given name.
var ErrNoSnapshot = errors.New("no scene snapshot")

// ErrChecksum means the stored blob does not match its checksum.
var ErrChecksum = errors.New("scene snapshot checksum mismatch")

// Snapshot is one serialized scene stored under a name. Data is the
// world.EntityManager binary encoding.
type Snapshot struct {
	ID        uuid.UUID
	Name      string
	Entities  int
	Checksum  []byte
	Data      []byte
	CreatedAt time.Time
}

// SnapshotInfo is a Snapshot row without its blob.
type SnapshotInfo struct {
	ID        uuid.UUID
	Name      string
	Entities  int
	Size      int
	CreatedAt time.Time
}

type SceneRepo struct {
	db *DB
}

func NewSceneRepo(db *DB) *SceneRepo {
	return &SceneRepo{db: db}
}

// NewSnapshot checksums blob and reads its entity count. The blob must
// start with a valid scene header.
func NewSnapshot(name string, blob []byte) (Snapshot, error) {
	n, err := scenefile.EntityCount(blob)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %q: %w", name, err)
	}
	sum := blake2b.Sum256(blob)
	return Snapshot{
		ID:        uuid.New(),
		Name:      name,
		Entities:  n,
		Checksum:  sum[:],
		Data:      blob,
		CreatedAt: time.Now(),
	}, nil
}

// Verify recomputes the checksum of s.Data.
func (s Snapshot) Verify() error {
	sum := blake2b.Sum256(s.Data)
	if !bytes.Equal(sum[:], s.Checksum) {
		return fmt.Errorf("snapshot %s (%s): %w", s.ID, s.Name, ErrChecksum)
	}
	return nil
}

// Save stores blob as the newest snapshot of name.
func (r *SceneRepo) Save(ctx context.Context, name string, blob []byte) (Snapshot, error) {
	s, err := NewSnapshot(name, blob)
	if err != nil {
		return Snapshot{}, err
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO scene_snapshots (id, name, entities, checksum, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Name, s.Entities, s.Checksum, s.Data, s.CreatedAt,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	r.db.log.Info("scene snapshot saved",
		zap.String("name", name),
		zap.String("id", s.ID.String()),
		zap.Int("entities", s.Entities),
		zap.Int("bytes", len(blob)),
	)
	return s, nil
}

// Latest loads the newest snapshot of name and verifies its checksum.
func (r *SceneRepo) Latest(ctx context.Context, name string) (Snapshot, error) {
	var s Snapshot
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, entities, checksum, data, created_at
		 FROM scene_snapshots WHERE name = $1
		 ORDER BY created_at DESC LIMIT 1`, name,
	).Scan(&s.ID, &s.Name, &s.Entities, &s.Checksum, &s.Data, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w %q", ErrNoSnapshot, name)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	if err := s.Verify(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// List returns the snapshots of name, newest first, without their blobs.
func (r *SceneRepo) List(ctx context.Context, name string) ([]SnapshotInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, entities, octet_length(data), created_at
		 FROM scene_snapshots WHERE name = $1
		 ORDER BY created_at DESC`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots %q: %w", name, err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Entities, &info.Size, &info.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
