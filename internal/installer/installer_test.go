package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/winpv/winbuild/internal/config"
	"github.com/winpv/winbuild/internal/envdisc"
	"github.com/winpv/winbuild/internal/runner"
)

func testConfig() *config.Config {
	return &config.Config{
		Repositories: []config.Repository{
			{URL: "https://example.com/win-xenvbd.git"},
			{URL: "https://example.com/win-installer.git"},
		},
		Branding: config.Branding{Manufacturer: "Example Corp"},
		Output:   config.Output{Directory: "output", Archive: "win-pv-drivers.zip"},
	}
}

func testBindings() *envdisc.Bindings {
	return &envdisc.Bindings{BuildEnv: "e", VS: "v", WIX: "w", Kit: "k"}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newWorkdir lays out project checkouts with build outputs in place.
func newWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "win-xenvbd", "xenvbd", "xenvbd.sys"), "driver")
	write(t, filepath.Join(dir, "win-installer", "src", "vmcleaner", "clean.ps1"), "cleaner")
	for _, name := range artifactNames {
		write(t, filepath.Join(dir, "win-installer", "installer", name), "artifact "+name)
	}
	return dir
}

func TestStageDependencies(t *testing.T) {
	dir := newWorkdir(t)
	a := New(testConfig(), testBindings(), dir).
		WithTempRoot(t.TempDir()).
		WithOutput(&bytes.Buffer{}, &bytes.Buffer{})

	depDir, err := a.stageDependencies(filepath.Join(dir, "win-installer"))
	require.NoError(t, err)

	// Project output staged under the prefix-stripped name.
	require.FileExists(t, filepath.Join(depDir, "xenvbd", "xenvbd.sys"))
	// Installer helper tree staged alongside.
	require.FileExists(t, filepath.Join(depDir, "vmcleaner", "clean.ps1"))
	// The installer project itself is not staged.
	require.NoDirExists(t, filepath.Join(depDir, "installer"))
}

func TestBuildSuccess(t *testing.T) {
	dir := newWorkdir(t)
	var stdout, stderr bytes.Buffer
	var invoked [][]string

	a := New(testConfig(), testBindings(), dir).
		WithTempRoot(t.TempDir()).
		WithOutput(&stdout, &stderr).
		WithRunFunc(func(_ context.Context, argv []string, opts runner.Options) (runner.Result, error) {
			invoked = append(invoked, argv)
			return runner.Result{}, nil
		})

	require.NoError(t, a.Build(context.Background()))

	// The installer's own build tool is invoked once, with staging dir and
	// signing identity.
	require.Len(t, invoked, 1)
	require.Equal(t, "python", invoked[0][0])
	require.Contains(t, invoked[0], "--local")
	require.Contains(t, invoked[0], "--sign")
	require.Contains(t, invoked[0], "Example Corp(test)")

	out := stdout.String()
	require.Contains(t, out, "SUCCESS: the installer may be found here:")
	require.Contains(t, out, "Certificate Used: Example Corp(test)")
	require.Contains(t, out, "All output files bundled into file:")
	require.Empty(t, stderr.String())

	outDir := filepath.Join(dir, "output")
	for _, name := range artifactNames {
		require.FileExists(t, filepath.Join(outDir, name))
	}
	require.FileExists(t, filepath.Join(outDir, "win-pv-drivers.zip"))
}

func TestBuildToolFailureReportsGenericLine(t *testing.T) {
	dir := newWorkdir(t)
	var stdout, stderr bytes.Buffer

	a := New(testConfig(), testBindings(), dir).
		WithTempRoot(t.TempDir()).
		WithOutput(&stdout, &stderr).
		WithRunFunc(func(_ context.Context, argv []string, _ runner.Options) (runner.Result, error) {
			return runner.Result{ExitCode: 1}, &exitError{}
		})

	require.NoError(t, a.Build(context.Background()))

	require.Contains(t, stderr.String(), "ERROR: Building the installer failed")
	require.NotContains(t, stdout.String(), "SUCCESS")
	require.NotContains(t, stdout.String(), "bundled into file")
	// No artifacts collected on failure.
	require.NoFileExists(t, filepath.Join(dir, "output", "Setup.exe"))
}

type exitError struct{}

func (*exitError) Error() string { return "command python exited with code 1" }

func TestBuildStagingFailureIsFatal(t *testing.T) {
	dir := newWorkdir(t)
	// win-xenvbd has no build output to stage.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "win-xenvbd", "xenvbd")))
	var stdout, stderr bytes.Buffer

	invoked := 0
	a := New(testConfig(), testBindings(), dir).
		WithTempRoot(t.TempDir()).
		WithOutput(&stdout, &stderr).
		WithRunFunc(func(_ context.Context, _ []string, _ runner.Options) (runner.Result, error) {
			invoked++
			return runner.Result{}, nil
		})

	err := a.Build(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "win-xenvbd")
	require.Zero(t, invoked, "the build tool must not run when staging fails")
	// The generic line is reserved for the build tool's own failure.
	require.NotContains(t, stderr.String(), "Building the installer failed")
}

func TestBuildArtifactCollectionFailureIsFatal(t *testing.T) {
	dir := newWorkdir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "win-installer", "installer", "Setup.exe")))
	var stdout, stderr bytes.Buffer

	a := New(testConfig(), testBindings(), dir).
		WithTempRoot(t.TempDir()).
		WithOutput(&stdout, &stderr).
		WithRunFunc(func(_ context.Context, _ []string, _ runner.Options) (runner.Result, error) {
			return runner.Result{}, nil
		})

	err := a.Build(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Setup.exe")
	require.NotContains(t, stderr.String(), "Building the installer failed")
	require.NotContains(t, stdout.String(), "SUCCESS")
}

func TestBuildMissingInstallerSourceIsFatal(t *testing.T) {
	a := New(testConfig(), testBindings(), t.TempDir()).
		WithOutput(&bytes.Buffer{}, &bytes.Buffer{})

	err := a.Build(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "win-installer")
	require.Contains(t, err.Error(), "fetch")
}

func TestCreateZipExcludesStaleArchive(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.msi"), "aaa")
	write(t, filepath.Join(dir, "b.exe"), "bbb")
	write(t, filepath.Join(dir, "win-pv-drivers.zip"), "stale archive bytes")

	zipPath, err := CreateZip("win-pv-drivers.zip", dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "win-pv-drivers.zip"), zipPath)

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{"a.msi", "b.exe"}, names)
}

func TestCreateZipContents(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "Setup.exe"), "setup-bytes")

	zipPath, err := CreateZip("bundle.zip", dir)
	require.NoError(t, err)

	r, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.File, 1)
	rc, err := r.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "setup-bytes", string(data))
}
