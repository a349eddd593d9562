package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"khata/internal/core"
)

var (
	// ErrInvalidBackupFormat marks a restore document that is not a
	// backup: unparseable JSON or a document missing the persons or
	// transactions array. The store is never touched in that case.
	ErrInvalidBackupFormat = errors.New("invalid backup file format")

	// ErrRestoreTransition is returned for state-machine misuse, such
	// as running a restore that was never confirmed.
	ErrRestoreTransition = errors.New("invalid restore transition")
)

const backupMimeType = "application/json"

// Sharer hands a backup file to the platform's share mechanism. The
// returned status is platform-defined ("shared", "dismissed", ...).
type Sharer interface {
	Share(ctx context.Context, path, mimeType string) (string, error)
}

// NopSharer satisfies Sharer without doing anything; used where no
// share target exists (tests, plain CLI runs).
type NopSharer struct{}

func (NopSharer) Share(ctx context.Context, path, mimeType string) (string, error) {
	slog.InfoContext(ctx, "Backup ready to share", "path", path, "mime_type", mimeType)
	return "shared", nil
}

// BackupInfo summarizes the current store for the backup screen.
type BackupInfo struct {
	PersonCount      int
	TransactionCount int
	LastExport       string
	Version          string
}

// BackupService produces portable JSON snapshots of the ledger and
// restores them, destructively, behind an explicit confirmation.
type BackupService struct {
	ledger *LedgerService
	sharer Sharer
	dir    string
}

// NewBackupService writes backups into dir and shares them through
// sharer. A nil sharer falls back to NopSharer.
func NewBackupService(ledger *LedgerService, sharer Sharer, dir string) *BackupService {
	if sharer == nil {
		sharer = NopSharer{}
	}
	return &BackupService{ledger: ledger, sharer: sharer, dir: dir}
}

// CreateBackup exports the full snapshot and writes it to a timestamped
// JSON file in the backup directory. Returns the file path.
func (b *BackupService) CreateBackup(ctx context.Context) (string, core.Snapshot, error) {
	snap, err := b.ledger.ExportSnapshot(ctx)
	if err != nil {
		return "", core.Snapshot{}, fmt.Errorf("export snapshot: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", core.Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return "", core.Snapshot{}, fmt.Errorf("create backup directory: %w", err)
	}
	path := filepath.Join(b.dir, fmt.Sprintf("khata_backup_%d.json", time.Now().UnixMilli()))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", core.Snapshot{}, fmt.Errorf("write backup file: %w", err)
	}

	slog.InfoContext(ctx, "Backup created",
		"path", path, "persons", len(snap.Persons), "transactions", len(snap.Transactions))
	return path, snap, nil
}

// ShareBackup creates a backup and hands it to the share target.
func (b *BackupService) ShareBackup(ctx context.Context) (string, error) {
	path, _, err := b.CreateBackup(ctx)
	if err != nil {
		return "", err
	}
	status, err := b.sharer.Share(ctx, path, backupMimeType)
	if err != nil {
		return "", fmt.Errorf("share backup: %w", err)
	}
	return status, nil
}

// RestoreFromFile reads and validates a backup document, then replaces
// the store contents with it. Validation failures leave the store
// untouched.
func (b *BackupService) RestoreFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup file: %w", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackupFormat, err)
	}
	// Both arrays must be present; an empty array is valid, a missing
	// key is not.
	if snap.Persons == nil || snap.Transactions == nil {
		return fmt.Errorf("%w: missing persons or transactions", ErrInvalidBackupFormat)
	}

	if err := b.ledger.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Backup restored",
		"path", path, "persons", len(snap.Persons), "transactions", len(snap.Transactions))
	return nil
}

// GetBackupInfo summarizes the store, initializing it on demand. On
// failure it degrades to an empty summary instead of erroring, so the
// backup screen can always render.
func (b *BackupService) GetBackupInfo(ctx context.Context) BackupInfo {
	snap, err := b.ledger.ExportSnapshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Backup info degraded", "error", err)
		return BackupInfo{
			LastExport: core.Now().Format(core.TimeLayout),
			Version:    core.SnapshotVersion,
		}
	}
	return BackupInfo{
		PersonCount:      len(snap.Persons),
		TransactionCount: len(snap.Transactions),
		LastExport:       snap.ExportDate,
		Version:          snap.Version,
	}
}

// RestoreState names a position in the restore flow.
type RestoreState string

const (
	RestoreIdle         RestoreState = "idle"
	RestoreFileSelected RestoreState = "file_selected"
	RestoreConfirmed    RestoreState = "confirmed"
	RestoreImporting    RestoreState = "importing"
	RestoreSucceeded    RestoreState = "succeeded"
	RestoreFailed       RestoreState = "failed"
)

// RestoreFlow is the user-gated state machine around RestoreFromFile:
//
//	Idle -> FileSelected -> Confirmed -> Importing -> Succeeded | Failed
//
// Confirm is a separate transition because importing unconditionally
// discards all existing data. After a terminal state a new file can be
// selected to start over.
type RestoreFlow struct {
	backup *BackupService

	mu    sync.Mutex
	state RestoreState
	path  string
	err   error
}

// NewRestore starts a restore flow in the Idle state.
func (b *BackupService) NewRestore() *RestoreFlow {
	return &RestoreFlow{backup: b, state: RestoreIdle}
}

// State reports the current position in the flow.
func (f *RestoreFlow) State() RestoreState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the failure of the last run, if any.
func (f *RestoreFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// SelectFile records the chosen backup file. Valid from Idle, from a
// previous selection, and from either terminal state.
func (f *RestoreFlow) SelectFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case RestoreIdle, RestoreFileSelected, RestoreSucceeded, RestoreFailed:
		f.state = RestoreFileSelected
		f.path = path
		f.err = nil
		return nil
	}
	return fmt.Errorf("%w: cannot select a file while %s", ErrRestoreTransition, f.state)
}

// Confirm acknowledges that the import will discard all current data.
func (f *RestoreFlow) Confirm() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != RestoreFileSelected {
		return fmt.Errorf("%w: cannot confirm while %s", ErrRestoreTransition, f.state)
	}
	f.state = RestoreConfirmed
	return nil
}

// Run performs the confirmed import and moves the flow to a terminal
// state. The returned error is also retained in Err.
func (f *RestoreFlow) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.state != RestoreConfirmed {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: cannot run while %s", ErrRestoreTransition, state)
	}
	f.state = RestoreImporting
	path := f.path
	f.mu.Unlock()

	err := f.backup.RestoreFromFile(ctx, path)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = RestoreFailed
		f.err = err
		return err
	}
	f.state = RestoreSucceeded
	f.err = nil
	return nil
}
