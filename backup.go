// Compressed backups of the log.
//
// Backup streams the committed log through a Zstd encoder. Only [0, end)
// is copied, so a backup taken while a write is failing never contains a
// partial batch. The checksum of the uncompressed bytes is returned so the
// backup can be verified on restore.
//
// Restore writes into a temporary file next to the destination and renames
// it into place only after the data is synced and the checksum matches. A
// crash at any point leaves at worst an orphaned .tmp file, never a half
// written database.
package taildb

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Backup writes a Zstd-compressed copy of the committed log to w and
// returns its checksum. Writers are blocked for the duration.
func (db *DB) Backup(w io.Writer) (string, error) {
	if err := db.blockRead(); err != nil {
		return "", err
	}
	defer db.mu.RUnlock()

	h, err := newHash(db.config.Checksum)
	if err != nil {
		return "", err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}

	src := io.TeeReader(io.NewSectionReader(db.file, 0, db.index.end), h)
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return "", fmt.Errorf("backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Restore decompresses a backup into a new database file at path and opens
// it. If checksum is non-empty it must match the restored bytes under
// config.Checksum. Restore refuses to overwrite an existing file.
func Restore(r io.Reader, path, checksum string, config Config) (*DB, error) {
	if config.Checksum == 0 {
		config.Checksum = AlgXXHash3
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("restore: %s: %w", path, os.ErrExist)
	}

	if err := restore(r, path, checksum, config.Checksum); err != nil {
		return nil, err
	}
	return Open(path, config)
}

func restore(r io.Reader, path, checksum string, alg int) error {
	h, err := newHash(alg)
	if err != nil {
		return err
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	defer dec.Close()

	tmpPath := path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("restore: create temp: %w", err)
	}
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := io.Copy(io.MultiWriter(tmp, h), dec); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); checksum != "" && sum != checksum {
		tmp.Close()
		return fmt.Errorf("%w: got %s, want %s", ErrChecksum, sum, checksum)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("restore: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("restore: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("restore: rename: %w", err)
	}
	return nil
}
