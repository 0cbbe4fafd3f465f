package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/mvp-joe/symdex/internal/analyzer"
	"github.com/mvp-joe/symdex/internal/config"
	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/discovery"
	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/storage"
)

// ErrNoUnits is returned when discovery finds no source files.
var ErrNoUnits = errors.New("no Rust source files found")

// options are the persistent flags every command sees.
type options struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	JSON       bool
	FromDB     bool
}

// project is a crate root with its loaded configuration.
type project struct {
	root  string
	cfg   *config.Config
	disc  *discovery.Discovery
	cache *analyzer.Cache
}

// loadProject resolves dir and loads its configuration. configFile, when set,
// replaces <dir>/.symdex/config.yml.
func loadProject(dir, configFile string) (*project, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	var loader config.Loader
	if configFile != "" {
		loader = config.NewFileLoader(configFile)
	} else {
		loader = config.NewLoader(root)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	disc, err := discovery.New(root, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return nil, err
	}

	p := &project{root: root, cfg: cfg, disc: disc}
	if cfg.Analysis.CacheSize > 0 {
		if p.cache, err = analyzer.NewCache(cfg.Analysis.CacheSize); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// close releases the analysis cache.
func (p *project) close() {
	if p.cache != nil {
		p.cache.Close()
	}
}

func (p *project) analyzer(progress func(done, total int)) *analyzer.Analyzer {
	opts := []analyzer.Option{
		analyzer.WithWorkers(p.cfg.Analysis.Workers),
		analyzer.WithMaxDiagnostics(p.cfg.Analysis.MaxDiagnostics),
		analyzer.WithReportSuperseded(p.cfg.Analysis.ReportSupersededDocs),
		analyzer.WithSearch(p.cfg.Search.Enabled),
	}
	if p.cache != nil {
		opts = append(opts, analyzer.WithCache(p.cache))
	}
	if progress != nil {
		opts = append(opts, analyzer.WithProgress(progress))
	}
	return analyzer.New(opts...)
}

// discover reads the crate's units.
func (p *project) discover() ([]analyzer.Unit, error) {
	units, err := p.disc.Discover()
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoUnits, p.root)
	}
	return units, nil
}

// build analyses the crate from source.
func (p *project) build(ctx context.Context, progress func(done, total int)) (*query.Index, []diag.Diagnostic, error) {
	units, err := p.discover()
	if err != nil {
		return nil, nil, err
	}
	return p.analyzer(progress).Run(ctx, units)
}

// openIndex returns the index query commands answer from: the newest stored
// snapshot with fromDB, a fresh analysis otherwise.
func (p *project) openIndex(ctx context.Context, fromDB bool) (*query.Index, error) {
	if !fromDB {
		idx, _, err := p.build(ctx, nil)
		return idx, err
	}

	store, err := storage.Open(p.cfg.DBPath(p.root))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var opts []query.Option
	if p.cfg.Search.Enabled {
		opts = append(opts, query.WithSearch())
	}
	return store.LoadLatest(ctx, opts...)
}

// save persists idx as a new snapshot.
func (p *project) save(ctx context.Context, idx *query.Index) (string, error) {
	store, err := storage.Open(p.cfg.DBPath(p.root))
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.SaveSnapshot(ctx, idx)
}

// prune drops all but the newest keep snapshots.
func (p *project) prune(ctx context.Context, keep int) error {
	store, err := storage.Open(p.cfg.DBPath(p.root))
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.Prune(ctx, keep)
	return err
}

// withIndex loads the project and index for a query command.
func withIndex(ctx context.Context, dir string, opts options, fn func(*project, *query.Index) error) error {
	p, err := loadProject(dir, opts.ConfigFile)
	if err != nil {
		return err
	}
	defer p.close()

	start := time.Now()
	idx, err := p.openIndex(ctx, opts.FromDB)
	if err != nil {
		return err
	}
	defer idx.Close()
	if opts.Verbose {
		log.Printf("[TIMING] Index ready in %v (%d symbols)", time.Since(start), idx.Stats().Symbols)
	}
	return fn(p, idx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatNumber formats n with thousands separators.
func formatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	sign := ""
	if str[0] == '-' {
		sign, str = "-", str[1:]
	}
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return sign + result
}
