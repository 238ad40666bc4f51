package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapdecide/internal/state"
	"github.com/leapstack-labs/leapdecide/pkg/decide"
)

// stdinPath names policy source read from standard input.
const stdinPath = "-"

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 100 * time.Millisecond

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "compile [file...]",
		Short: "Compile policy files to SQL",
		Long: `Compile one or more policy files into a single SELECT per file.

Each file is compiled for the configured dialect and entry point. With no
file arguments, or with "-", the policy is read from standard input.

Use --canonicalize to validate the generated query against an in-memory
schema before printing it, and --record to keep it in the history store.`,
		Example: `  # Compile for PostgreSQL (the default dialect)
  leapdecide compile policies/hl7_routing.policy

  # Compile for BigQuery with a 7 day window
  leapdecide compile --dialect bigquery --window-days 7 policies/*.policy

  # Validate through DuckDB and emit JSON
  leapdecide compile --canonicalize -o json policies/hl7_routing.policy

  # Recompile whenever the file changes
  leapdecide compile --watch policies/hl7_routing.policy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), NewCommandContext(cmd), cmd.InOrStdin(), args, watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Recompile files when they change")

	return cmd
}

type policyFile struct {
	Path   string
	Source string
}

// fileResult is one compiled file. Exactly one of Result and Err is set.
type fileResult struct {
	Path   string
	Source string
	Result *decide.Result
	ID     string
	Err    error
}

// fileOutput is the JSON shape of a fileResult.
type fileOutput struct {
	File          string `json:"file"`
	Model         string `json:"model,omitempty"`
	Dialect       string `json:"dialect,omitempty"`
	WindowDays    int    `json:"window_days,omitempty"`
	Canonicalized bool   `json:"canonicalized,omitempty"`
	SQL           string `json:"sql,omitempty"`
	ID            string `json:"id,omitempty"`
	Error         string `json:"error,omitempty"`
	Kind          string `json:"kind,omitempty"`
}

func readPolicies(stdin io.Reader, args []string) ([]policyFile, error) {
	if len(args) == 0 {
		args = []string{stdinPath}
	}
	files := make([]policyFile, 0, len(args))
	for _, path := range args {
		var (
			data []byte
			err  error
		)
		if path == stdinPath {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, policyFile{Path: path, Source: string(data)})
	}
	return files, nil
}

func runCompile(ctx context.Context, cc *CommandContext, stdin io.Reader, args []string, watch bool) error {
	files, err := readPolicies(stdin, args)
	if err != nil {
		return err
	}

	compiler, cleanup, err := cc.Compiler(ctx, cc.Cfg.Canonicalize.Enabled)
	if err != nil {
		return err
	}
	defer cleanup()

	var store state.Store
	if cc.Cfg.RecordHistory {
		s, err := cc.OpenStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	c := &compileRun{cc: cc, compiler: compiler, store: store}
	results := c.compileAll(ctx, files)
	if err := c.print(results); err != nil {
		return err
	}
	failed := failures(results)

	if !watch {
		return failed
	}
	for _, f := range files {
		if f.Path == stdinPath {
			return errors.New("--watch cannot be used with standard input")
		}
	}
	return c.watch(ctx, files)
}

type compileRun struct {
	cc       *CommandContext
	compiler *decide.Compiler
	store    state.Store
	mu       sync.Mutex // serializes output
}

// compileAll compiles files concurrently, keeping argument order.
func (c *compileRun) compileAll(ctx context.Context, files []policyFile) []fileResult {
	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range files {
		g.Go(func() error {
			results[i] = c.compileOne(gctx, f)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *compileRun) compileOne(ctx context.Context, f policyFile) fileResult {
	cfg := c.cc.Cfg
	res, err := c.compiler.CompileResult(ctx, f.Source, cfg.EntryPoint, cfg.Dialect, c.cc.Options())
	out := fileResult{Path: f.Path, Source: f.Source, Result: res, Err: err}
	if err != nil {
		c.cc.Logger.Debug("compile failed", "file", f.Path, "error", err)
		return out
	}

	if c.store != nil {
		rec := &state.Compilation{
			ModelName:     res.Model.Name(),
			EntryPoint:    cfg.EntryPoint,
			Dialect:       res.Dialect,
			WindowDays:    res.WindowDays,
			SourceHash:    state.HashSource(f.Source),
			SQL:           res.SQL,
			Canonicalized: res.Canonicalized,
		}
		if err := c.store.Record(ctx, rec); err != nil {
			c.cc.Logger.Error("failed to record compilation", "file", f.Path, "error", err)
		} else {
			out.ID = rec.ID
		}
	}
	return out
}

func (c *compileRun) print(results []fileResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cc.JSON() {
		outs := make([]fileOutput, len(results))
		for i, r := range results {
			outs[i] = toOutput(r)
		}
		return renderJSON(c.cc.Out, outs)
	}

	for i, r := range results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(c.cc.Err, "error: %s: %v\n", r.Path, r.Err)
			continue
		}
		if len(results) > 1 {
			if i > 0 {
				_, _ = fmt.Fprintln(c.cc.Out)
			}
			_, _ = fmt.Fprintf(c.cc.Out, "-- %s\n", r.Path)
		}
		_, _ = fmt.Fprintln(c.cc.Out, r.Result.SQL)
	}
	return nil
}

func toOutput(r fileResult) fileOutput {
	if r.Err != nil {
		return fileOutput{File: r.Path, Error: r.Err.Error(), Kind: string(decide.KindOf(r.Err))}
	}
	return fileOutput{
		File:          r.Path,
		Model:         r.Result.Model.Name(),
		Dialect:       r.Result.Dialect,
		WindowDays:    r.Result.WindowDays,
		Canonicalized: r.Result.Canonicalized,
		SQL:           r.Result.SQL,
		ID:            r.ID,
	}
}

// failures joins the per-file errors, each prefixed with its path.
func failures(results []fileResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Path, r.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("%d of %d files failed to compile: %w", len(errs), len(results), errors.Join(errs...))
}

// watch recompiles a file each time it is written until ctx is cancelled.
func (c *compileRun) watch(ctx context.Context, files []policyFile) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace files on save, so watch the parent directories.
	watched := make(map[string]string)
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			return err
		}
		watched[abs] = f.Path
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}
	c.cc.Logger.Info("watching for changes", "files", len(watched))

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path, ok := watched[filepath.Clean(event.Name)]
			if !ok {
				continue
			}

			if t := timers[path]; t != nil {
				t.Stop()
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				c.recompile(ctx, path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.cc.Logger.Error("watcher error", "error", err)
		}
	}
}

func (c *compileRun) recompile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.cc.Logger.Error("failed to read changed file", "file", path, "error", err)
		return
	}
	c.cc.Logger.Debug("file changed, recompiling", "file", path)
	res := c.compileOne(ctx, policyFile{Path: path, Source: string(data)})
	if err := c.print([]fileResult{res}); err != nil {
		c.cc.Logger.Error("failed to print result", "error", err)
	}
}
