// Package envdisc discovers and validates the external tool locations the
// build depends on: the EWDK-style build environment, the compiler toolset,
// the installer toolkit, and the driver kit.
//
// Resolution is two-phase by design: Resolve fills bindings best effort
// (silent on a miss), then Validate fails hard listing every binding still
// absent. Resolved bindings live on an explicit struct threaded through the
// build rather than in ambient process state; Environ exports them to child
// processes.
package envdisc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/winpv/winbuild/internal/logfields"
)

// Binding names, also the environment variable names read and exported.
const (
	VarBuildEnv = "BUILD_ENV"
	VarVS       = "VS"
	VarWIX      = "WIX"
	VarKit      = "KIT"
)

// activationScript is the entry point of the build environment.
const activationScript = "SetupBuildEnv.cmd"

// Required returns the binding names every build needs, in report order.
func Required() []string {
	return []string{VarBuildEnv, VarKit, VarVS, VarWIX}
}

// Bindings holds the resolved tool locations for one run.
type Bindings struct {
	BuildEnv string
	VS       string
	WIX      string
	Kit      string
}

// DefaultStrategies returns the host-convention discovery strategies for
// each binding.
func DefaultStrategies() map[string]Strategy {
	systemDir := filepath.Join("C:", string(filepath.Separator), "Program Files (x86)")
	return map[string]Strategy{
		VarBuildEnv: DriveProbe{Subdir: "BuildEnv", Marker: activationScript},
		VarVS: FixedPath{
			Root:    filepath.Join(systemDir, "Microsoft Visual Studio 11.0"),
			Markers: []string{filepath.Join("VC", "vcvarsall.bat")},
		},
		VarWIX: FixedPath{Root: filepath.Join(systemDir, "WiX Toolset v3.6")},
		VarKit: FixedPath{
			Root: filepath.Join(systemDir, "Windows Kits", "8.0"),
			Markers: []string{
				filepath.Join("bin", "x64", "makecert.exe"),
				filepath.Join("bin", "x64", "certmgr.exe"),
			},
		},
	}
}

// Resolve fills the bindings from the process environment first, then from
// the discovery strategies. A strategy miss leaves the binding empty.
func Resolve(strategies map[string]Strategy) *Bindings {
	b := &Bindings{}
	for _, name := range Required() {
		if value := os.Getenv(name); value != "" {
			b.set(name, value)
			slog.Debug("Binding preset from environment", logfields.Binding(name), logfields.Path(value))
			continue
		}
		strategy, ok := strategies[name]
		if !ok {
			continue
		}
		if path, found := strategy.Discover(); found {
			b.set(name, filepath.Clean(path))
			slog.Debug("Binding discovered", logfields.Binding(name), logfields.Path(path))
		} else {
			slog.Debug("Binding not found", logfields.Binding(name))
		}
	}
	return b
}

// MissingBindingsError reports every required binding absent at validation.
type MissingBindingsError struct {
	Names []string
}

func (e *MissingBindingsError) Error() string {
	return "Please set the following environment variables: " + strings.Join(e.Names, ", ")
}

// Validate returns a MissingBindingsError naming every absent binding, or
// nil after logging each resolved value. It must pass before any build
// sub-invocation runs.
func (b *Bindings) Validate() error {
	var missing []string
	for _, name := range Required() {
		if b.get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingBindingsError{Names: missing}
	}

	slog.Info("All environment variables found.")
	for _, name := range Required() {
		slog.Info(fmt.Sprintf("%s = %s", name, b.get(name)))
	}
	return nil
}

// ActivationScript returns the path to the build-environment setup script.
func (b *Bindings) ActivationScript() string {
	return filepath.Join(b.BuildEnv, activationScript)
}

// MakeCert returns the path to the certificate-creation tool inside the kit.
func (b *Bindings) MakeCert() string {
	return filepath.Join(b.Kit, "bin", "x64", "makecert.exe")
}

// Environ returns the process environment with the resolved bindings merged
// in, for child processes to inherit.
func (b *Bindings) Environ() []string {
	env := os.Environ()
	for _, name := range Required() {
		if value := b.get(name); value != "" {
			env = append(env, name+"="+value)
		}
	}
	return env
}

func (b *Bindings) get(name string) string {
	switch name {
	case VarBuildEnv:
		return b.BuildEnv
	case VarVS:
		return b.VS
	case VarWIX:
		return b.WIX
	case VarKit:
		return b.Kit
	}
	return ""
}

func (b *Bindings) set(name, value string) {
	switch name {
	case VarBuildEnv:
		b.BuildEnv = value
	case VarVS:
		b.VS = value
	case VarWIX:
		b.WIX = value
	case VarKit:
		b.Kit = value
	}
}
