// Package builder drives the per-project builds: it validates the requested
// project set, orders the installer last, resolves each project's build
// entry point, and runs it in the right execution context, collecting
// pass/fail results as it goes.
package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/winpv/winbuild/internal/config"
	"github.com/winpv/winbuild/internal/envdisc"
	"github.com/winpv/winbuild/internal/installer"
	"github.com/winpv/winbuild/internal/logfields"
	"github.com/winpv/winbuild/internal/runner"
)

// directProject runs as a plain command in the current shell context rather
// than inside the activated build environment.
const directProject = "win-xenguestagent"

// Build variant arguments passed to every project's entry point.
const (
	VariantChecked = "checked"
	VariantFree    = "free"
)

// InstallerBuilder runs the final installer assembly step.
type InstallerBuilder interface {
	Build(ctx context.Context) error
}

// Builder orchestrates one build run over the configured projects.
type Builder struct {
	cfg       *config.Config
	bindings  *envdisc.Bindings
	dir       string // working directory holding the project checkouts
	run       runner.Func
	installer InstallerBuilder
	stdout    io.Writer
}

// New creates a Builder over the project checkouts in dir.
func New(cfg *config.Config, bindings *envdisc.Bindings, dir string) *Builder {
	return &Builder{
		cfg:       cfg,
		bindings:  bindings,
		dir:       dir,
		run:       runner.Run,
		installer: installer.New(cfg, bindings, dir),
		stdout:    os.Stdout,
	}
}

// WithRunFunc replaces the command runner (for testing).
func (b *Builder) WithRunFunc(run runner.Func) *Builder { b.run = run; return b }

// WithInstaller replaces the installer step (for testing).
func (b *Builder) WithInstaller(i InstallerBuilder) *Builder { b.installer = i; return b }

// WithStdout redirects the per-iteration summary output (for testing).
func (b *Builder) WithStdout(w io.Writer) *Builder { b.stdout = w; return b }

// Build runs every configured project (or only those requested, when the
// list is non-empty) in the checked or free variant, the installer always
// last. Unknown requested names and missing source directories are fatal;
// an individual project's build failure is recorded and the run continues.
func (b *Builder) Build(ctx context.Context, requested []string, checked bool) (*Results, error) {
	valid := b.cfg.Projects()
	if err := checkProjects(requested, valid); err != nil {
		return nil, err
	}

	installerName := b.cfg.InstallerProject()
	ordered := installerLast(valid, installerName)

	variant := VariantFree
	if checked {
		variant = VariantChecked
	}

	results := &Results{}
	for _, name := range ordered {
		if name == installerName {
			// Handled by the dedicated final step below.
			continue
		}

		src := filepath.Join(b.dir, name)
		if _, err := os.Stat(src); err != nil {
			return results, fmt.Errorf("Source directory %s does not exist, has '%s fetch' been executed?", name, prog())
		}

		if len(requested) > 0 && !contains(requested, name) {
			continue
		}

		b.buildProject(ctx, name, src, variant, results)
		fmt.Fprintln(b.stdout, results.Summary())
	}

	if installerName != "" {
		if err := b.installer.Build(ctx); err != nil {
			return results, err
		}
	}
	return results, nil
}

// buildProject resolves and invokes one project's build entry point. Any
// failure is recorded against the project, never propagated.
func (b *Builder) buildProject(ctx context.Context, name, src, variant string, results *Results) {
	argv, err := resolveEntryPoint(src, variant)
	if err != nil {
		slog.Warn("No build entry point", logfields.Project(name), logfields.Error(err))
		results.Failed = append(results.Failed, name)
		return
	}

	slog.Info("Building project", logfields.Project(name), logfields.Variant(variant))
	opts := runner.Options{Dir: src, Env: b.bindings.Environ()}
	if _, err := b.run(ctx, b.context(name).Wrap(argv), opts); err != nil {
		slog.Error("Project build failed", logfields.Project(name), logfields.Error(err))
		results.Failed = append(results.Failed, name)
		return
	}
	results.Passed = append(results.Passed, name)
}

// context selects the execution context for a project: the guest agent runs
// in the plain shell, everything else inside the activated build
// environment.
func (b *Builder) context(name string) runner.Context {
	if name == directProject {
		return runner.Direct{}
	}
	return runner.Activated{Script: b.bindings.ActivationScript()}
}

// resolveEntryPoint locates a project's build entry point inside dir,
// preferring build.py over build.ps1.
func resolveEntryPoint(dir, variant string) ([]string, error) {
	if _, err := os.Stat(filepath.Join(dir, "build.py")); err == nil {
		return []string{"python", "build.py", variant}, nil
	}
	if _, err := os.Stat(filepath.Join(dir, "build.ps1")); err == nil {
		return []string{"powershell", "-file", "build.ps1", variant}, nil
	}
	return nil, fmt.Errorf("no build entry point (build.py or build.ps1) in %s", dir)
}

// installerLast stable-sorts the project list so the installer runs last,
// preserving the declared order of everything else.
func installerLast(projects []string, installerName string) []string {
	ordered := make([]string, len(projects))
	copy(ordered, projects)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i] != installerName && ordered[j] == installerName
	})
	return ordered
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func prog() string {
	return filepath.Base(os.Args[0])
}
