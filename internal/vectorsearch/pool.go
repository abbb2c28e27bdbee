package vectorsearch

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okets/folder-mcp-core/internal/amerrors"
	"github.com/okets/folder-mcp-core/internal/config"
	"github.com/okets/folder-mcp-core/internal/folderdb"
)

// Pool answers similarity queries across many folders while keeping at
// most cfg.MaxOpenDatabases *folderdb.DB open at once (spec.md §4.8).
type Pool struct {
	cfg config.SearchPoolConfig

	mu       sync.Mutex
	folders  map[string]config.FolderConfig
	open     *lru.Cache[string, *folderdb.DB]
}

// New builds a Pool with no registered folders; Register/Unregister
// adjust the set afterward as the caller's folder list changes.
func New(cfg config.SearchPoolConfig) *Pool {
	p := &Pool{cfg: cfg, folders: make(map[string]config.FolderConfig)}
	onEvict := func(_ string, db *folderdb.DB) {
		_ = db.Close()
	}
	cache, err := lru.NewWithEvict[string, *folderdb.DB](maxInt(cfg.MaxOpenDatabases, 1), onEvict)
	if err != nil {
		// lru.NewWithEvict only errors on size <= 0, which maxInt above rules out.
		panic(fmt.Sprintf("vectorsearch: building LRU pool: %v", err))
	}
	p.open = cache
	return p
}

// Register makes folderPath eligible for SearchInFolder and SearchAll.
func (p *Pool) Register(folderPath string, cfg config.FolderConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.folders[folderPath] = cfg
}

// Unregister drops folderPath from the known set and evicts its open DB,
// if any.
func (p *Pool) Unregister(folderPath string) {
	p.mu.Lock()
	delete(p.folders, folderPath)
	p.mu.Unlock()
	p.open.Remove(folderPath)
}

// SearchInFolder runs a brute-force cosine-similarity query against one
// registered folder's database.
func (p *Pool) SearchInFolder(queryVector []float32, folderPath string, topK int, threshold float64) ([]SearchResult, error) {
	topK, threshold = p.clamp(topK, threshold)

	db, err := p.get(folderPath)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	modelID := p.folders[folderPath].Model
	p.mu.Unlock()
	return scoreDocuments(db, queryVector, topK, threshold, modelID)
}

// SearchAll fans the query out across every registered folder and merges
// results by descending score.
func (p *Pool) SearchAll(queryVector []float32, topK int, threshold float64) ([]SearchResult, error) {
	topK, threshold = p.clamp(topK, threshold)

	p.mu.Lock()
	paths := make([]string, 0, len(p.folders))
	models := make(map[string]string, len(p.folders))
	for path, cfg := range p.folders {
		paths = append(paths, path)
		models[path] = cfg.Model
	}
	p.mu.Unlock()

	var merged []SearchResult
	for _, path := range paths {
		db, err := p.get(path)
		if err != nil {
			// One folder's database being unavailable doesn't fail the
			// whole fan-out (spec.md §4.9 ContinueOnError semantics apply
			// equally to read paths).
			continue
		}
		results, err := scoreDocuments(db, queryVector, topK, threshold, models[path])
		if err != nil {
			continue
		}
		merged = append(merged, results...)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// Shutdown closes every open database.
func (p *Pool) Shutdown() {
	p.open.Purge()
}

func (p *Pool) clamp(topK int, threshold float64) (int, float64) {
	if topK <= 0 {
		topK = p.cfg.DefaultTopK
	}
	if topK > p.cfg.MaxResultsLimit {
		topK = p.cfg.MaxResultsLimit
	}
	if threshold < 0 {
		threshold = p.cfg.DefaultThreshold
	}
	if threshold < p.cfg.MinThreshold {
		threshold = p.cfg.MinThreshold
	}
	if threshold > p.cfg.MaxThreshold {
		threshold = p.cfg.MaxThreshold
	}
	return topK, threshold
}

func (p *Pool) get(folderPath string) (*folderdb.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if db, ok := p.open.Get(folderPath); ok {
		return db, nil
	}

	cfg, ok := p.folders[folderPath]
	if !ok {
		return nil, amerrors.New(amerrors.ErrCodeOpenFailed, fmt.Sprintf("vectorsearch: folder %q is not registered", folderPath), nil)
	}

	db, err := folderdb.Open(folderPath, cfg.Model, cfg.ModelDimension, cfg.MaxBackups)
	if err != nil {
		return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, err)
	}
	p.open.Add(folderPath, db)
	return db, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
