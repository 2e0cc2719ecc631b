package perf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/snipe-engine/internal/domain"
)

const (
	RecordsBucket = "performance_records"

	DefaultDBPath = "./data/snipe-engine.db"
)

// Store persists performance records append-only so aggregates survive
// restarts.
type Store struct {
	db     *boltdb.BoltDatabase
	dbPath string
	seq    atomic.Uint64
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[perfStore] opened database")

	return &Store{db: db, dbPath: dbPath}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append writes one record. Keys are (strategy, recordedAt, seq) so records
// for the same millisecond never collide.
func (s *Store) Append(rec *domain.PerformanceRecord) error {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := fmt.Sprintf("%s/%d/%d", rec.StrategyID, rec.RecordedAt.UnixNano(), s.seq.Add(1))
	return s.db.Set(RecordsBucket, []byte(key), data)
}

// LoadAll returns every persisted record. Corrupt entries are skipped and
// counted rather than failing the whole load.
func (s *Store) LoadAll() ([]*domain.PerformanceRecord, error) {
	data, err := s.db.List(RecordsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]*domain.PerformanceRecord, 0, len(data))
	skipped := 0
	for key, value := range data {
		var rec domain.PerformanceRecord
		if err := sonic.Unmarshal(value, &rec); err != nil {
			log.Error().Str("key", key).Err(err).Msg("[perfStore] failed to unmarshal record, skipping")
			skipped++
			continue
		}
		records = append(records, &rec)
	}

	if skipped > 0 {
		log.Error().
			Int("total_in_db", len(data)).
			Int("loaded", len(records)).
			Int("skipped", skipped).
			Msg("[perfStore] record loading completed with errors")
	}
	return records, nil
}
