package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileDocument is the on-disk JSON schema for a period ledger.
type fileDocument struct {
	Date              string             `json:"date"`
	TotalCost         float64            `json:"total_cost"`
	Services          map[string]float64 `json:"services"`
	Operations        map[string]int64   `json:"operations"`
	AlertsTriggered   []fileAlert        `json:"alerts_triggered"`
	EmergencyMode     bool               `json:"emergency_mode"`
	ShutdownTriggered bool               `json:"shutdown_triggered"`
	ReducedFrequency  bool               `json:"reduced_frequency"`
}

type fileAlert struct {
	Level string `json:"level"`
	At    string `json:"at"`
}

// FileStore persists the active ledger as a single JSON file.
//
// Writes go to a temporary file in the same directory followed by an
// atomic rename, so a crash mid-write leaves the previous document valid.
// Every write is bounded by WriteTimeout; on timeout the whole write is
// treated as failed and surfaced as ErrPersistence.
type FileStore struct {
	path    string
	timeout time.Duration
}

// FileStoreConfig configures the file store.
type FileStoreConfig struct {
	// Path is the location of the ledger JSON file.
	Path string

	// WriteTimeout bounds each persistence write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// NewFileStore creates a file store, creating the parent directory if
// needed.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: ledger path cannot be empty", ErrPersistence)
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create ledger directory: %v", ErrPersistence, err)
		}
	}
	return &FileStore{path: cfg.Path, timeout: cfg.WriteTimeout}, nil
}

// Path returns the ledger file location.
func (fs *FileStore) Path() string {
	return fs.path
}

// Save writes snap to disk atomically. The write is bounded by the
// configured timeout and by ctx; on failure the previous file content is
// untouched.
func (fs *FileStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(toDocument(snap), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal ledger: %v", ErrPersistence, err)
	}

	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fs.writeAtomic(ctx, data)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return nil
	case <-ctx.Done():
		// The abandoned goroutine re-checks the context before its
		// rename, so a write that outlives the deadline cannot land
		// after the caller has already rolled back.
		return fmt.Errorf("%w: write timed out: %v", ErrPersistence, ctx.Err())
	}
}

// writeAtomic writes data to a temp file and renames it over the target.
// The rename is skipped once ctx is done: the caller has treated the
// write as failed by then, and the previous document must stay in place.
func (fs *FileStore) writeAtomic(ctx context.Context, data []byte) error {
	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %v", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %v", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("abandon timed-out write: %v", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %v", err)
	}
	return nil
}

// Load reads the persisted snapshot. The second return value is false if
// no ledger file exists yet.
func (fs *FileStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: read ledger file: %v", ErrPersistence, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: parse ledger file %q: %v", ErrPersistence, fs.path, err)
	}

	snap, err := fromDocument(doc)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func toDocument(snap Snapshot) fileDocument {
	doc := fileDocument{
		Date:              snap.PeriodID,
		TotalCost:         snap.TotalCost,
		Services:          make(map[string]float64, len(snap.ServiceCosts)),
		Operations:        make(map[string]int64, len(snap.OperationCounts)),
		AlertsTriggered:   make([]fileAlert, 0, len(snap.Alerts)),
		EmergencyMode:     snap.EmergencyMode,
		ShutdownTriggered: snap.ShutdownTriggered,
		ReducedFrequency:  snap.ReducedFrequency,
	}
	for s, v := range snap.ServiceCosts {
		doc.Services[string(s)] = v
	}
	for k, v := range snap.OperationCounts {
		doc.Operations[string(k)] = v
	}
	for _, a := range snap.Alerts {
		doc.AlertsTriggered = append(doc.AlertsTriggered, fileAlert{
			Level: a.Level,
			At:    a.At.UTC().Format(time.RFC3339),
		})
	}
	return doc
}

func fromDocument(doc fileDocument) (Snapshot, error) {
	snap := Snapshot{
		PeriodID:          doc.Date,
		TotalCost:         doc.TotalCost,
		ServiceCosts:      make(map[Service]float64, len(Services())),
		OperationCounts:   make(map[OperationKind]int64, len(OperationKinds())),
		Alerts:            make([]Alert, 0, len(doc.AlertsTriggered)),
		EmergencyMode:     doc.EmergencyMode,
		ShutdownTriggered: doc.ShutdownTriggered,
		ReducedFrequency:  doc.ReducedFrequency,
	}

	for _, s := range Services() {
		snap.ServiceCosts[s] = doc.Services[string(s)]
	}
	for name := range doc.Services {
		if !ValidService(Service(name)) {
			return Snapshot{}, UnknownServiceError(Service(name))
		}
	}

	for _, k := range OperationKinds() {
		snap.OperationCounts[k] = doc.Operations[string(k)]
	}
	for name := range doc.Operations {
		if !ValidOperationKind(OperationKind(name)) {
			return Snapshot{}, UnknownOperationError(OperationKind(name))
		}
	}

	for _, a := range doc.AlertsTriggered {
		at, err := time.Parse(time.RFC3339, a.At)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: parse alert timestamp %q: %v", ErrPersistence, a.At, err)
		}
		snap.Alerts = append(snap.Alerts, Alert{Level: a.Level, At: at})
	}
	return snap, nil
}
