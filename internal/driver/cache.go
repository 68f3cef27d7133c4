package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"speclower/internal/diag"
	"speclower/internal/layout"
	"speclower/internal/specconst"
)

// cacheSchemaVersion is bumped whenever CachePayload changes shape.
const cacheSchemaVersion uint16 = 2

// Digest is a SHA-256 cache key.
type Digest [32]byte

// Cache stores lowered units by the digest of their input and settings.
// Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// CachePayload is everything needed to reproduce a unit's outputs without
// running the pass again.
type CachePayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Input  string
	Mode   string
	Target string

	// Lowered module in irfile encoding
	Module []byte

	Modified  bool
	CallSites int
	Assigned  map[string][]uint32
	Symbols   []string

	Metadata specconst.Metadata
	Found    bool

	Diagnostics []diag.Diagnostic
}

// OpenCache opens the cache at the standard per-user location.
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewCache(filepath.Join(base, app))
}

// NewCache opens a cache rooted at dir.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// CacheKey digests the input bytes together with every setting that changes
// the output.
func CacheKey(input []byte, mode specconst.Mode, target layout.Target) Digest {
	h := sha256.New()
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], cacheSchemaVersion)
	_, _ = h.Write(hdr[:])
	_, _ = h.Write([]byte(mode.String()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(target.Triple))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(input)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (c *Cache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "units", hexKey[:2], hexKey+".mp")
}

// Put stores payload under key, replacing any previous entry atomically.
func (c *Cache) Put(key Digest, payload *CachePayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	payload.Schema = cacheSchemaVersion
	return writeAtomic(c.pathFor(key), func(w io.Writer) error {
		return msgpack.NewEncoder(w).Encode(payload)
	})
}

// Get reads a payload. Entries written with another schema count as misses.
func (c *Cache) Get(key Digest, out *CachePayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()
	var payload CachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return false, fmt.Errorf("cache entry %x: %w", key[:4], err)
	}
	if payload.Schema != cacheSchemaVersion {
		return false, nil
	}
	*out = payload
	return true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
