package codeintel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/quarry-ai/quarry/internal/logging"
)

// ErrParserUnavailable is returned by callers whose entire purpose is AST
// work when a file cannot be parsed (unsupported language, unreadable file).
var ErrParserUnavailable = errors.New("no parser available for this file")

type parseEntry struct {
	mtime  time.Time
	tree   *sitter.Tree
	source []byte
}

// Parser manages tree-sitter parsers and a per-file AST cache.
//
// Parsed trees are cached by absolute path and invalidated when the file's
// modification time changes. Parse failures degrade to nil rather than
// erroring; most callers treat an unparseable file as "no results".
type Parser struct {
	mu      sync.Mutex
	parsers map[string]*sitter.Parser
	cache   map[string]parseEntry
}

// NewParser creates a parser with empty caches.
func NewParser() *Parser {
	return &Parser{
		parsers: make(map[string]*sitter.Parser),
		cache:   make(map[string]parseEntry),
	}
}

func (p *Parser) parserFor(language string) *sitter.Parser {
	if sp, ok := p.parsers[language]; ok {
		return sp
	}
	cfg, ok := Languages[language]
	if !ok || cfg.Grammar == nil {
		return nil
	}
	sp := sitter.NewParser()
	sp.SetLanguage(cfg.Grammar())
	p.parsers[language] = sp
	return sp
}

// ParseFile parses a file and returns its AST along with the source bytes
// the tree was built from. Results are cached; a cache hit requires exact
// mtime equality. Returns (nil, nil) for unsupported or unreadable files.
func (p *Parser) ParseFile(ctx context.Context, path string) (*sitter.Tree, []byte) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil
	}

	language := LanguageForFile(abs)
	if language == "" {
		return nil, nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil
	}
	mtime := info.ModTime()

	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.cache[abs]; ok && entry.mtime.Equal(mtime) {
		return entry.tree, entry.source
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil
	}

	sp := p.parserFor(language)
	if sp == nil {
		return nil, nil
	}

	tree, err := sp.ParseCtx(ctx, nil, content)
	if err != nil {
		logging.Debug().Err(err).Str("path", abs).Msg("parse failed")
		return nil, nil
	}

	if old, ok := p.cache[abs]; ok && old.tree != nil {
		old.tree.Close()
	}
	p.cache[abs] = parseEntry{mtime: mtime, tree: tree, source: content}
	return tree, content
}

// ParseBytes parses source held in memory. The result is not cached.
func (p *Parser) ParseBytes(ctx context.Context, content []byte, language string) *sitter.Tree {
	p.mu.Lock()
	sp := p.parserFor(language)
	if sp == nil {
		p.mu.Unlock()
		return nil
	}
	tree, err := sp.ParseCtx(ctx, nil, content)
	p.mu.Unlock()
	if err != nil {
		return nil
	}
	return tree
}

// Invalidate drops the cached AST for a file. Writers call this after
// modifying the file.
func (p *Parser) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	p.mu.Lock()
	if entry, ok := p.cache[abs]; ok {
		if entry.tree != nil {
			entry.tree.Close()
		}
		delete(p.cache, abs)
	}
	p.mu.Unlock()
}

// ClearCache drops every cached AST.
func (p *Parser) ClearCache() {
	p.mu.Lock()
	for path, entry := range p.cache {
		if entry.tree != nil {
			entry.tree.Close()
		}
		delete(p.cache, path)
	}
	p.mu.Unlock()
}

// NodeText extracts a node's text from source bytes.
func NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(source)
}

var (
	defaultParser     *Parser
	defaultParserOnce sync.Once
)

// DefaultParser returns the process-wide shared parser.
func DefaultParser() *Parser {
	defaultParserOnce.Do(func() {
		defaultParser = NewParser()
	})
	return defaultParser
}
