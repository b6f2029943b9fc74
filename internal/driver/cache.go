package driver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"mx/internal/comptime"
	"mx/internal/config"
	"mx/internal/mxir"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// Digest identifies a unit build: its document, the configuration and the
// digests of its imports.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DiskCache хранит пониженные юниты на диске по Digest.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is one cached unit. Only units that built without errors are
// stored, so a hit never has diagnostics to replay.
type DiskPayload struct {
	Schema uint16

	Name string
	Path string

	// Module is the lowered unit in MXIR wire form.
	Module []byte
	// Exports holds the unit's exported constants as a consts-only module
	// sharing Module's type table layout.
	Exports []byte
}

// OpenDiskCache opens the cache at dir, or at $XDG_CACHE_HOME/app
// (~/.cache/app) when dir is empty.
func OpenDiskCache(dir, app string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	// подкаталог "units", чтобы кэш было удобно чистить
	return filepath.Join(c.dir, "units", key.String()+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads a payload. A missing entry or one written by another schema
// is a miss.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, err
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
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

// configFingerprint is the part of the configuration that changes what a
// unit lowers to. Jobs and the cache location do not.
type configFingerprint struct {
	Entry      string
	DefaultInt string
	MaxDepth   int
	MaxSteps   int
	Ints       map[string]config.IntConfig
	Library    bool
}

// unitDigest hashes everything a unit's lowering depends on. deps are the
// digests of the imported units in import order.
func unitDigest(data []byte, cfg *config.Config, library bool, deps []Digest) (Digest, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	fp := configFingerprint{
		Entry:      cfg.Entry,
		DefaultInt: cfg.DefaultInt,
		MaxDepth:   cfg.Comptime.MaxDepth,
		MaxSteps:   cfg.Comptime.MaxSteps,
		Ints:       cfg.Ints,
		Library:    library,
	}
	if err := enc.Encode(fp); err != nil {
		return Digest{}, fmt.Errorf("fingerprint: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "mx-unit/%d\n", diskCacheSchemaVersion)
	h.Write(buf.Bytes())
	h.Write(data)
	for _, d := range deps {
		h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}

// encodePayload packs a lowered unit. The exported constants travel as a
// module of their own so they keep their untyped kinds.
func encodePayload(name, path string, m *mxir.Module, exports *comptime.Env) (*DiskPayload, error) {
	mod, err := mxir.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("module: %w", err)
	}
	em := mxir.NewModule(name, m.Types)
	for _, b := range exports.Bindings() {
		if b.Runtime {
			continue
		}
		em.Consts = append(em.Consts, mxir.Const{Name: b.Name, Value: comptime.ToNode(m.Types, b.Value)})
	}
	exp, err := mxir.Marshal(em)
	if err != nil {
		return nil, fmt.Errorf("exports: %w", err)
	}
	return &DiskPayload{Schema: diskCacheSchemaVersion, Name: name, Path: path, Module: mod, Exports: exp}, nil
}

// decodePayload restores the module and its exports. Exported values are
// typed in the returned module's interner.
func decodePayload(p *DiskPayload) (*mxir.Module, *comptime.Env, error) {
	m, err := mxir.Unmarshal(p.Module)
	if err != nil {
		return nil, nil, fmt.Errorf("module: %w", err)
	}
	em, err := mxir.Unmarshal(p.Exports)
	if err != nil {
		return nil, nil, fmt.Errorf("exports: %w", err)
	}
	var env *comptime.Env
	for _, c := range em.Consts {
		v, ok := comptime.FromNode(c.Value)
		if !ok {
			return nil, nil, fmt.Errorf("exports: constant %s has no literal form", c.Name)
		}
		env = env.With(c.Name, v)
	}
	return m, env, nil
}
