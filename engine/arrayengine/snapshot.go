// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package arrayengine

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"storj.io/yokan/backend"
	"storj.io/yokan/config"
	"storj.io/yokan/status"
)

// snapshotHandle is the migration.Handle returned by StartMigration: a
// single-file snapshot of every collection, written once to a temporary
// directory so the caller can copy it out at its own pace.
type snapshotHandle struct {
	dir  string
	file string
}

func newSnapshotHandle(data []byte) *snapshotHandle {
	dir, err := os.MkdirTemp("", "yokan-array-migration-*")
	if err != nil {
		return &snapshotHandle{}
	}
	path := filepath.Join(dir, "snapshot.bin")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return &snapshotHandle{dir: dir}
	}
	return &snapshotHandle{dir: dir, file: path}
}

// Root implements migration.Handle.
func (h *snapshotHandle) Root() string { return h.dir }

// Files implements migration.Handle.
func (h *snapshotHandle) Files() []string {
	if h.file == "" {
		return nil
	}
	return []string{h.file}
}

// Cancel implements migration.Handle.
func (h *snapshotHandle) Cancel() {
	_ = os.RemoveAll(h.dir)
}

// Close implements migration.Handle.
func (h *snapshotHandle) Close(ctx context.Context) error {
	if err := os.RemoveAll(h.dir); err != nil {
		return status.Newf(status.IOError, "array: cleaning up migration snapshot: %v", err)
	}
	return nil
}

// decodeSnapshot reverses StartMigration's encoding, rebuilding the
// collection set a recovered engine starts from.
func decodeSnapshot(data []byte) (map[string]*collection, error) {
	read8 := func() (uint64, error) {
		if len(data) < 8 {
			return 0, io.ErrUnexpectedEOF
		}
		v := binary.LittleEndian.Uint64(data[:8])
		data = data[8:]
		return v, nil
	}
	numColls, err := read8()
	if err != nil {
		return nil, err
	}
	colls := make(map[string]*collection, numColls)
	for i := uint64(0); i < numColls; i++ {
		nameLen, err := read8()
		if err != nil {
			return nil, err
		}
		if uint64(len(data)) < nameLen {
			return nil, io.ErrUnexpectedEOF
		}
		name := string(data[:nameLen])
		data = data[nameLen:]
		count, err := read8()
		if err != nil {
			return nil, err
		}
		c := newCollection()
		for id := uint64(0); id < count; id++ {
			sizeField, err := read8()
			if err != nil {
				return nil, err
			}
			if sizeField == status.KeyNotFound {
				c.offsets = append(c.offsets, status.KeyNotFound)
				c.sizes = append(c.sizes, status.KeyNotFound)
				continue
			}
			if uint64(len(data)) < sizeField {
				return nil, io.ErrUnexpectedEOF
			}
			off := uint64(len(c.buf))
			c.buf = append(c.buf, data[:sizeField]...)
			data = data[sizeField:]
			c.offsets = append(c.offsets, off)
			c.sizes = append(c.sizes, sizeField)
			c.liveCount++
		}
		colls[name] = c
	}
	return colls, nil
}

// recoverEngine implements backend.RecoverFunc: it rebuilds an in-memory
// engine from the single snapshot file StartMigration produced. An empty
// file list recovers to an empty engine, the state a fresh create would
// give.
func recoverEngine(ctx context.Context, raw, migrationConfig []byte, files []string) (eng backend.Engine, err error) {
	defer mon.Task()(&ctx)(&err)
	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &Engine{colls: make(map[string]*collection), log: zap.L().Named("yokan.array")}, nil
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		return nil, status.Newf(status.IOError, "array: reading migration snapshot %q: %v", files[0], err)
	}
	colls, err := decodeSnapshot(data)
	if err != nil {
		return nil, status.Newf(status.Corruption, "array: decoding migration snapshot: %v", err)
	}
	return &Engine{colls: colls, log: zap.L().Named("yokan.array")}, nil
}
