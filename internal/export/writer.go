package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bomizzel/helpdesk/internal/clock"
	"github.com/bomizzel/helpdesk/internal/config"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

const (
	snapshotFileName = "snapshot.json"
	archiveFileName  = "archive.zip"
)

var (
	ErrArtifactNotFound = errors.New("artifact_not_found")
	ErrArtifactExpired  = errors.New("artifact_expired")
)

// Artifact describes a packaged, downloadable snapshot.
type Artifact struct {
	ExportID      string    `json:"export_id"`
	FileName      string    `json:"file_name"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	DownloadPath  string    `json:"download_path"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Writer packages snapshot documents under an export-id-scoped directory.
// Each export owns its directory exclusively, so concurrent exports never
// race and cleanup can remove a whole export atomically.
type Writer struct {
	root  string
	ttl   time.Duration
	clock clock.Clock
	log   *zap.Logger
}

// NewWriter builds an artifact writer from the app config.
func NewWriter(cfg config.Config, clk clock.Clock, log *zap.Logger) *Writer {
	ttl := cfg.ExportTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Writer{
		root:  cfg.ExportRoot,
		ttl:   ttl,
		clock: clk,
		log:   log.Named("export.writer"),
	}
}

// Write persists the document and compresses it into the downloadable
// artifact. On any failure the export directory is removed best-effort and
// no artifact is advertised.
func (w *Writer) Write(doc *Document) (Artifact, error) {
	exportID := doc.Header.ExportID
	dir := filepath.Join(w.root, exportID)

	artifact, err := w.write(doc, exportID, dir)
	if err != nil {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			w.log.Warn("failed export cleanup", zap.String("export_id", exportID), zap.Error(removeErr))
		}
		return Artifact{}, err
	}
	return artifact, nil
}

func (w *Writer) write(doc *Document, exportID, dir string) (Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create export dir: %w", err)
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("encode snapshot: %w", err)
	}
	snapshotPath := filepath.Join(dir, snapshotFileName)
	if err := os.WriteFile(snapshotPath, payload, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write snapshot: %w", err)
	}

	archivePath := filepath.Join(dir, archiveFileName)
	if err := writeZip(archivePath, snapshotFileName, payload); err != nil {
		return Artifact{}, fmt.Errorf("compress snapshot: %w", err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat archive: %w", err)
	}

	return Artifact{
		ExportID:      exportID,
		FileName:      archiveFileName,
		FileSizeBytes: info.Size(),
		DownloadPath:  archivePath,
		ExpiresAt:     w.clock.Now().Add(w.ttl),
	}, nil
}

// Resolve returns the on-disk path of a downloadable artifact, refusing
// traversal outside the export root and expired artifacts.
func (w *Writer) Resolve(exportID, fileName string) (string, error) {
	if strings.ContainsAny(exportID, `/\`) || strings.ContainsAny(fileName, `/\`) {
		return "", ErrArtifactNotFound
	}
	path := filepath.Join(w.root, exportID, fileName)

	info, err := os.Stat(path)
	if err != nil {
		return "", ErrArtifactNotFound
	}
	if w.clock.Now().After(info.ModTime().Add(w.ttl)) {
		return "", ErrArtifactExpired
	}
	return path, nil
}

// Cleanup deletes export directories older than the given age and returns
// how many were removed. Races with in-flight downloads resolve in favor
// of deletion: already-gone files are not an error.
func (w *Writer) Cleanup(olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = w.ttl
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := w.clock.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.root, entry.Name())); err != nil {
			w.log.Warn("expired export removal failed", zap.String("export_id", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// TTL exposes the configured artifact lifetime.
func (w *Writer) TTL() time.Duration { return w.ttl }

func writeZip(archivePath, name string, payload []byte) error {
	file, err := os.Create(archivePath)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(file)
	entry, err := zw.Create(name)
	if err == nil {
		_, err = entry.Write(payload)
	}
	if closeErr := zw.Close(); err == nil {
		err = closeErr
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}
