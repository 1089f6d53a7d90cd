package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"ratehub/internal/application"
	"ratehub/internal/domain"
)

var (
	_ application.RateStore     = (*Store)(nil)
	_ application.HistoryReader = (*Store)(nil)
)

// Store keeps the rates snapshot and the history log as JSON files. Every
// write goes to a temporary file in the target directory which then replaces
// the target with a rename, so readers see either the old or the new file.
type Store struct {
	RatesPath   string
	HistoryPath string
	Log         *zap.Logger

	mu sync.Mutex // serializes history read-modify-write
}

func New(dir, ratesFile, historyFile string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create data dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		RatesPath:   filepath.Join(dir, ratesFile),
		HistoryPath: filepath.Join(dir, historyFile),
		Log:         log,
	}, nil
}

func (s *Store) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Store) SaveSnapshot(ctx context.Context, snap domain.RatesSnapshot) error {
	if snap.Pairs == nil {
		snap.Pairs = map[domain.PairKey]domain.PairRate{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode snapshot: %w", err)
	}
	if err := s.writeAtomic(ctx, s.RatesPath, data); err != nil {
		s.log().Error("filestore.snapshot_write_failed", zap.String("path", s.RatesPath), zap.Error(err))
		return err
	}
	s.log().Info("filestore.snapshot_saved", zap.String("path", s.RatesPath), zap.Int("pairs", len(snap.Pairs)))
	return nil
}

// ReadSnapshot returns an empty snapshot when the file is missing or cannot
// be parsed.
func (s *Store) ReadSnapshot(ctx context.Context) (domain.RatesSnapshot, error) {
	empty := domain.RatesSnapshot{Pairs: map[domain.PairKey]domain.PairRate{}}
	if err := ctx.Err(); err != nil {
		return empty, err
	}
	data, err := os.ReadFile(s.RatesPath)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		s.log().Warn("filestore.snapshot_read_failed", zap.String("path", s.RatesPath), zap.Error(err))
		return empty, nil
	}
	var snap domain.RatesSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log().Warn("filestore.snapshot_malformed", zap.String("path", s.RatesPath), zap.Error(err))
		return empty, nil
	}
	if snap.Pairs == nil {
		snap.Pairs = map[domain.PairKey]domain.PairRate{}
	}
	return snap, nil
}

func (s *Store) AppendHistory(ctx context.Context, rec domain.HistoricalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.readHistory()
	if err != nil {
		return err
	}
	recs = append(recs, rec)
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode history: %w", err)
	}
	if err := s.writeAtomic(ctx, s.HistoryPath, data); err != nil {
		s.log().Error("filestore.history_write_failed", zap.String("id", rec.ID), zap.Error(err))
		return err
	}
	return nil
}

// ReadHistory returns every record in append order.
func (s *Store) ReadHistory(ctx context.Context) ([]domain.HistoricalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readHistory()
}

func (s *Store) ListHistory(ctx context.Context, from, to string, limit int) ([]domain.HistoricalRecord, error) {
	all, err := s.ReadHistory(ctx)
	if err != nil {
		return nil, err
	}
	from, to = domain.NormalizeCode(from), domain.NormalizeCode(to)
	out := []domain.HistoricalRecord{}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].FromCurrency != from || all[i].ToCurrency != to {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// readHistory refuses to treat a corrupt history file as empty so an append
// never overwrites existing records.
func (s *Store) readHistory() ([]domain.HistoricalRecord, error) {
	data, err := os.ReadFile(s.HistoryPath)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.HistoricalRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read history: %w", err)
	}
	var recs []domain.HistoricalRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("filestore: parse history: %w", err)
		}
	}
	if recs == nil {
		recs = []domain.HistoricalRecord{}
	}
	return recs, nil
}

func (s *Store) writeAtomic(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("filestore: create temp for %s: %w", filepath.Base(path), err)
	}
	defer pf.Cleanup()

	if _, err := pf.Write(data); err != nil {
		return fmt.Errorf("filestore: write %s: %w", filepath.Base(path), err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("filestore: replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
