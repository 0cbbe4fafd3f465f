package cli

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/query"
)

// progressReporter renders indexing progress. All output is suppressed when
// quiet is set.
type progressReporter struct {
	quiet     bool
	out       io.Writer
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	reported  int
	startTime time.Time
}

func newProgressReporter(out io.Writer, quiet bool) *progressReporter {
	return &progressReporter{
		quiet:     quiet,
		out:       out,
		startTime: time.Now(),
	}
}

func (r *progressReporter) OnDiscoveryComplete(units int) {
	if r.quiet {
		return
	}
	log.Printf("Analysing %s source files", formatNumber(units))
}

// OnUnitAnalysed fits analyzer.WithProgress. It is called from worker
// goroutines.
func (r *progressReporter) OnUnitAnalysed(done, total int) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription("Analysing units"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(r.out)
			}),
		)
	}
	if delta := done - r.reported; delta > 0 {
		r.bar.Add(delta)
		r.reported = done
	}
}

func (r *progressReporter) OnComplete(stats query.Stats, diags []diag.Diagnostic) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
	r.mu.Unlock()

	var errs, warns, infos int
	for _, d := range diags {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		default:
			infos++
		}
	}

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "✓ Indexing complete: %s symbols from %s files in %.1fs\n",
		formatNumber(stats.Symbols), formatNumber(stats.Units), time.Since(r.startTime).Seconds())
	fmt.Fprintf(r.out, "  Re-exports:  %s (%d dangling, %d cyclic)\n",
		formatNumber(stats.ReExports), stats.Dangling, stats.Cyclic)
	fmt.Fprintf(r.out, "  Diagnostics: %d errors, %d warnings, %d info\n", errs, warns, infos)
}
