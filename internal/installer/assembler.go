// Package installer assembles the installer's dependency staging directory,
// delegates to the installer project's own build tool, and packages the
// final artifacts into the output bundle.
package installer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/winpv/winbuild/internal/config"
	"github.com/winpv/winbuild/internal/envdisc"
	"github.com/winpv/winbuild/internal/logfields"
	"github.com/winpv/winbuild/internal/runner"
)

// sourcePrefix is the source-control prefix stripped from project names when
// staging their build outputs.
const sourcePrefix = "win-"

// artifactNames are the installer outputs copied into the output directory.
var artifactNames = []string{"managementagentx64.msi", "managementagentx86.msi", "Setup.exe"}

// Assembler builds the installer from the projects' build outputs.
type Assembler struct {
	cfg      *config.Config
	bindings *envdisc.Bindings
	dir      string // working directory holding the project checkouts
	tempRoot string // parent for staging directories
	run      runner.Func
	stdout   io.Writer
	stderr   io.Writer
}

// New creates an Assembler over the project checkouts in dir.
func New(cfg *config.Config, bindings *envdisc.Bindings, dir string) *Assembler {
	return &Assembler{
		cfg:      cfg,
		bindings: bindings,
		dir:      dir,
		tempRoot: os.TempDir(),
		run:      runner.Run,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// WithRunFunc replaces the command runner (for testing).
func (a *Assembler) WithRunFunc(run runner.Func) *Assembler { a.run = run; return a }

// WithTempRoot relocates staging directories (for testing).
func (a *Assembler) WithTempRoot(root string) *Assembler { a.tempRoot = root; return a }

// WithOutput redirects the report streams (for testing).
func (a *Assembler) WithOutput(stdout, stderr io.Writer) *Assembler {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// Build stages the dependency directory, runs the installer's build tool
// with a test signing identity, collects the artifacts into the output
// directory, and bundles them into a zip archive. A missing installer source
// directory and any filesystem failure while staging, collecting, or
// archiving are fatal. A nonzero exit from the installer's build tool itself
// reports the generic failure line and leaves partial outputs in place.
func (a *Assembler) Build(ctx context.Context) error {
	name := a.cfg.InstallerProject()
	src := filepath.Join(a.dir, name)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("Source directory %s does not exist, has '%s fetch' been executed?", name, filepath.Base(os.Args[0]))
	}

	certName := a.cfg.Branding.Manufacturer + "(test)"

	depDir, err := a.stageDependencies(src)
	if err != nil {
		return err
	}

	argv := []string{"python", "build.py", "--local", depDir, "--sign", certName}
	opts := runner.Options{Dir: src, Env: a.bindings.Environ()}
	if _, err := a.run(ctx, argv, opts); err != nil {
		slog.Error("Installer build tool failed", logfields.Error(err))
		fmt.Fprintln(a.stderr, "ERROR: Building the installer failed")
		return nil
	}

	outDir, err := a.collectArtifacts(src)
	if err != nil {
		return err
	}

	zipPath, err := CreateZip(a.cfg.Output.Archive, outDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "SUCCESS: the installer may be found here: %s\n", outDir)
	fmt.Fprintln(a.stdout, "Certificate Used:", certName)
	fmt.Fprintln(a.stdout, "All output files bundled into file:", zipPath)
	return nil
}

// stageDependencies assembles the transient dependency directory handed to
// the installer's build tool: one subdirectory per project's build output,
// named with the source-control prefix stripped, plus the installer's
// vmcleaner helper tree. The directory is deliberately left behind so a
// failed installer build can be inspected against it.
func (a *Assembler) stageDependencies(installerSrc string) (string, error) {
	depDir := filepath.Join(a.tempRoot, "winbuild-deps-"+uuid.NewString())
	if err := os.MkdirAll(depDir, 0o750); err != nil {
		return "", fmt.Errorf("create dependency directory: %w", err)
	}
	fmt.Fprintf(a.stdout, "Installer dependency directory: %s\n", depDir)

	installerName := a.cfg.InstallerProject()
	for _, name := range a.cfg.Projects() {
		if name == installerName {
			continue
		}
		stripped := strings.TrimPrefix(name, sourcePrefix)
		from := filepath.Join(a.dir, name, stripped)
		to := filepath.Join(depDir, stripped)
		if err := copyTree(from, to); err != nil {
			return "", fmt.Errorf("stage %s: %w", name, err)
		}
	}

	from := filepath.Join(installerSrc, "src", "vmcleaner")
	if err := copyTree(from, filepath.Join(depDir, "vmcleaner")); err != nil {
		return "", fmt.Errorf("stage vmcleaner: %w", err)
	}

	logStagedTree(depDir)
	return depDir, nil
}

func logStagedTree(depDir string) {
	slog.Debug("Installer dependency directory contents:")
	_ = filepath.WalkDir(depDir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			slog.Debug("\t" + path)
		}
		return nil
	})
}

// collectArtifacts copies the fixed artifact set from the installer's build
// output into the persistent output directory, creating it if absent.
func (a *Assembler) collectArtifacts(installerSrc string) (string, error) {
	outDir, err := filepath.Abs(filepath.Join(a.dir, a.cfg.Output.Directory))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	for _, name := range artifactNames {
		from := filepath.Join(installerSrc, "installer", name)
		if err := copyFile(from, filepath.Join(outDir, name)); err != nil {
			return "", fmt.Errorf("copy artifact %s: %w", name, err)
		}
	}
	return outDir, nil
}
