package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"ffigen/internal/diag"
	"ffigen/internal/project"
	"ffigen/internal/source"
)

// Bump when the payload format changes; older entries are ignored.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores finished run outputs keyed by input digest.
// Thread-safe for concurrent runs.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// diskPayload is the serialized form of one cached run. Diagnostics are
// cached too: a cache hit must report the same findings as the run that
// produced it.
type diskPayload struct {
	Schema      uint16
	Version     string
	Files       map[string]string
	Diagnostics []diag.Diagnostic
	HadErrors   bool
}

// OpenDiskCache initializes a disk cache under the standard location
// (XDG_CACHE_HOME or ~/.cache).
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt opens a cache rooted at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "gen", hex.EncodeToString(key[:])+".mp")
}

// cacheKey digests everything that can change the output: tool version,
// target table, render options, and every input file's content hash in
// input order.
func cacheKey(opts Options, fs *source.FileSet, files []source.FileID) project.Digest {
	parts := []project.Digest{
		project.HashString(opts.Version),
		project.HashString(opts.Target.Fingerprint()),
		project.HashString(opts.Package),
		project.HashString(opts.Library),
	}
	for _, p := range opts.Match {
		parts = append(parts, project.HashString("match:"+p))
	}
	for _, p := range opts.Naming.TrimPrefixes {
		parts = append(parts, project.HashString("trim:"+p))
	}
	parts = append(parts, project.HashString(
		strconv.Itoa(int(opts.Naming.Convention))+":"+boolTag(opts.AllowUnknownTypes)))
	for _, id := range files {
		parts = append(parts, project.Digest(fs.Get(id).Hash))
	}
	return project.Combine(project.HashString("ffigen-run"), parts...)
}

func boolTag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// lookup deserializes a cached run into a Result. Misses and unreadable
// entries both report !ok; the cache never fails a run.
func (c *DiskCache) lookup(key project.Digest, fs *source.FileSet) (*Result, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var payload diskPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false
	}
	if payload.Schema != diskCacheSchemaVersion {
		return nil, false
	}

	bag := diag.NewBag(max(len(payload.Diagnostics), 1))
	for _, d := range payload.Diagnostics {
		bag.Add(d)
	}
	return &Result{Files: payload.Files, Bag: bag, FileSet: fs, FromCache: true}, true
}

// store writes a finished run atomically: temp file then rename.
func (c *DiskCache) store(key project.Digest, res *Result) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	payload := diskPayload{
		Schema:      diskCacheSchemaVersion,
		Files:       res.Files,
		Diagnostics: res.Bag.Items(),
		HadErrors:   res.Bag.HasErrors(),
	}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// DropAll wipes the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.RemoveAll(filepath.Join(c.dir, "gen"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
