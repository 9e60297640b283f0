// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package logengine

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	mmap "github.com/edsrzf/mmap-go"

	"storj.io/yokan/status"
)

const (
	metaHeaderSize  = 24 // live_count, next_id, last_chunk_id
	metaEntrySize   = 24 // chunk, offset, size
	chunkHeaderSize = 8  // next-free-offset
	metaInitialCap  = 64 * 1024
)

type entry struct {
	chunk, offset, size uint64
}

// logCollection is one collection's metadata file plus its loaded chunk
// files, guarded by its own lock (§5: "each collection holds its own
// reader/writer lock").
type logCollection struct {
	dir       string
	chunkSize uint64

	mu       sync.RWMutex
	metaFile *os.File
	metaMM   mmap.MMap
	chunks   map[uint64]*chunkFile
}

type chunkFile struct {
	file *os.File
	mm   mmap.MMap
}

func openCollection(dir string, chunkSize uint64) (*logCollection, error) {
	metaPath := filepath.Join(dir, "metadata")
	f, err := os.OpenFile(metaPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, status.Newf(status.IOError, "log: opening %q: %v", metaPath, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, status.Newf(status.IOError, "log: stat %q: %v", metaPath, err)
	}
	if fi.Size() < metaHeaderSize {
		if err := f.Truncate(metaInitialCap); err != nil {
			_ = f.Close()
			return nil, status.Newf(status.IOError, "log: truncating %q: %v", metaPath, err)
		}
	}
	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		return nil, status.Newf(status.IOError, "log: mapping %q: %v", metaPath, err)
	}
	return &logCollection{
		dir:       dir,
		chunkSize: chunkSize,
		metaFile:  f,
		metaMM:    mm,
		chunks:    make(map[uint64]*chunkFile),
	}, nil
}

func (c *logCollection) close() error {
	for _, ch := range c.chunks {
		_ = ch.mm.Unmap()
		_ = ch.file.Close()
	}
	if err := c.metaMM.Unmap(); err != nil {
		return err
	}
	return c.metaFile.Close()
}

func readU64(b []byte, off uint64) uint64 { return binary.LittleEndian.Uint64(b[off : off+8]) }
func writeU64(b []byte, off uint64, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

func (c *logCollection) liveCount() uint64    { return readU64(c.metaMM, 0) }
func (c *logCollection) nextID() uint64       { return readU64(c.metaMM, 8) }
func (c *logCollection) lastChunkID() uint64  { return readU64(c.metaMM, 16) }

func (c *logCollection) setHeader(live, next, lastChunk uint64) error {
	writeU64(c.metaMM, 0, live)
	writeU64(c.metaMM, 8, next)
	writeU64(c.metaMM, 16, lastChunk)
	return c.metaMM.Flush()
}

func (c *logCollection) ensureMetaCapacity(id uint64) error {
	needed := metaHeaderSize + (id+1)*metaEntrySize
	if needed <= uint64(len(c.metaMM)) {
		return nil
	}
	newSize := uint64(len(c.metaMM))
	if newSize == 0 {
		newSize = metaInitialCap
	}
	for needed > newSize {
		newSize *= 2
	}
	if err := c.metaMM.Unmap(); err != nil {
		return err
	}
	if err := c.metaFile.Truncate(int64(newSize)); err != nil {
		return err
	}
	mm, err := mmap.Map(c.metaFile, mmap.RDWR, 0)
	if err != nil {
		return err
	}
	c.metaMM = mm
	return nil
}

func (c *logCollection) entry(id uint64) (entry, bool) {
	if id >= c.nextID() {
		return entry{}, false
	}
	off := metaHeaderSize + id*metaEntrySize
	return entry{
		chunk:  readU64(c.metaMM, off),
		offset: readU64(c.metaMM, off+8),
		size:   readU64(c.metaMM, off+16),
	}, true
}

func (c *logCollection) setEntry(id uint64, e entry) error {
	if err := c.ensureMetaCapacity(id); err != nil {
		return err
	}
	off := metaHeaderSize + id*metaEntrySize
	writeU64(c.metaMM, off, e.chunk)
	writeU64(c.metaMM, off+8, e.offset)
	writeU64(c.metaMM, off+16, e.size)
	return c.metaMM.Flush()
}

func (c *logCollection) openChunk(id uint64) (*chunkFile, error) {
	if ch, ok := c.chunks[id]; ok {
		return ch, nil
	}
	path := filepath.Join(c.dir, chunkFileName(id))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, status.Newf(status.IOError, "log: opening %q: %v", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, status.Newf(status.IOError, "log: stat %q: %v", path, err)
	}
	initial := int64(chunkHeaderSize + c.chunkSize)
	if fi.Size() < int64(chunkHeaderSize) {
		if err := f.Truncate(initial); err != nil {
			_ = f.Close()
			return nil, status.Newf(status.IOError, "log: truncating %q: %v", path, err)
		}
	}
	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		_ = f.Close()
		return nil, status.Newf(status.IOError, "log: mapping %q: %v", path, err)
	}
	if readU64(mm, 0) == 0 {
		writeU64(mm, 0, chunkHeaderSize)
		_ = mm.Flush()
	}
	ch := &chunkFile{file: f, mm: mm}
	c.chunks[id] = ch
	return ch, nil
}

func chunkFileName(id uint64) string {
	return "chunk-" + itoa(id) + ".log"
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func (ch *chunkFile) ensureCapacity(extra uint64) error {
	needed := readU64(ch.mm, 0) + extra
	if needed <= uint64(len(ch.mm)) {
		return nil
	}
	newSize := uint64(len(ch.mm))
	if newSize == 0 {
		newSize = chunkHeaderSize
	}
	for needed > newSize {
		newSize *= 2
	}
	if err := ch.mm.Unmap(); err != nil {
		return err
	}
	if err := ch.file.Truncate(int64(newSize)); err != nil {
		return err
	}
	mm, err := mmap.Map(ch.file, mmap.RDWR, 0)
	if err != nil {
		return err
	}
	ch.mm = mm
	return nil
}

// store appends payload to the collection's current chunk (opening a new
// one if it doesn't fit), then commits chunk header, metadata entry, and
// metadata header in that order (§4.7).
func (c *logCollection) store(payload []byte) (uint64, error) {
	if uint64(len(payload)) > c.chunkSize {
		return 0, status.Newf(status.SizeError, "log: payload of %d bytes exceeds chunk size %d", len(payload), c.chunkSize)
	}
	chunkID := c.lastChunkID()
	ch, err := c.openChunk(chunkID)
	if err != nil {
		return 0, err
	}
	nextFree := readU64(ch.mm, 0)
	remaining := c.chunkSize - (nextFree - chunkHeaderSize)
	if uint64(len(payload)) > remaining {
		chunkID++
		ch, err = c.openChunk(chunkID)
		if err != nil {
			return 0, err
		}
		nextFree = readU64(ch.mm, 0)
	}
	if err := ch.ensureCapacity(uint64(len(payload))); err != nil {
		return 0, err
	}
	offset := nextFree
	copy(ch.mm[offset:], payload)
	if err := ch.mm.Flush(); err != nil {
		return 0, err
	}
	writeU64(ch.mm, 0, offset+uint64(len(payload)))
	if err := ch.mm.Flush(); err != nil {
		return 0, err
	}

	id := c.nextID()
	if err := c.setEntry(id, entry{chunk: chunkID, offset: offset, size: uint64(len(payload))}); err != nil {
		return 0, err
	}
	if err := c.setHeader(c.liveCount()+1, id+1, chunkID); err != nil {
		return 0, err
	}
	return id, nil
}

// update rewrites id's payload at the end of the current chunk, per §4.7:
// "docUpdate writes a fresh copy... space occupied by the previous copy is
// not reclaimed."
func (c *logCollection) update(id uint64, payload []byte) error {
	if uint64(len(payload)) > c.chunkSize {
		return status.Newf(status.SizeError, "log: payload of %d bytes exceeds chunk size %d", len(payload), c.chunkSize)
	}
	wasLive := false
	if e, ok := c.entry(id); ok && e.size != status.KeyNotFound {
		wasLive = true
	}
	chunkID := c.lastChunkID()
	ch, err := c.openChunk(chunkID)
	if err != nil {
		return err
	}
	nextFree := readU64(ch.mm, 0)
	remaining := c.chunkSize - (nextFree - chunkHeaderSize)
	if uint64(len(payload)) > remaining {
		chunkID++
		ch, err = c.openChunk(chunkID)
		if err != nil {
			return err
		}
		nextFree = readU64(ch.mm, 0)
	}
	if err := ch.ensureCapacity(uint64(len(payload))); err != nil {
		return err
	}
	offset := nextFree
	copy(ch.mm[offset:], payload)
	if err := ch.mm.Flush(); err != nil {
		return err
	}
	writeU64(ch.mm, 0, offset+uint64(len(payload)))
	if err := ch.mm.Flush(); err != nil {
		return err
	}
	if err := c.setEntry(id, entry{chunk: chunkID, offset: offset, size: uint64(len(payload))}); err != nil {
		return err
	}
	if chunkID != c.lastChunkID() {
		if err := c.setHeader(c.liveCount(), c.nextID(), chunkID); err != nil {
			return err
		}
	}
	if !wasLive {
		if err := c.setHeader(c.liveCount()+1, c.nextID(), c.lastChunkID()); err != nil {
			return err
		}
	}
	return nil
}

func (c *logCollection) load(id uint64) ([]byte, bool) {
	e, ok := c.entry(id)
	if !ok || e.size == status.KeyNotFound {
		return nil, false
	}
	ch, err := c.openChunk(e.chunk)
	if err != nil {
		return nil, false
	}
	return ch.mm[e.offset : e.offset+e.size], true
}

func (c *logCollection) erase(id uint64) {
	e, ok := c.entry(id)
	if !ok || e.size == status.KeyNotFound {
		return
	}
	_ = c.setEntry(id, entry{chunk: status.KeyNotFound, offset: status.KeyNotFound, size: status.KeyNotFound})
	_ = c.setHeader(c.liveCount()-1, c.nextID(), c.lastChunkID())
}
