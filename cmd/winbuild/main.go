package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/winpv/winbuild/internal/builder"
	"github.com/winpv/winbuild/internal/config"
	"github.com/winpv/winbuild/internal/envdisc"
	"github.com/winpv/winbuild/internal/fetch"
	"github.com/winpv/winbuild/internal/history"
	"github.com/winpv/winbuild/internal/signing"
)

var CLI struct {
	Config   string `short:"c" help:"Configuration file path" default:"winbuild.yaml"`
	Loglevel string `help:"Logging level" enum:"DEBUG,INFO,ERROR" default:"INFO"`

	Fetch struct{} `cmd:"" help:"Clone the configured driver repositories into the working directory"`

	Build struct {
		Projects []string `arg:"" optional:"" help:"Projects to build (default: all)"`
		Debug    bool     `short:"d" help:"Build the checked (debug) variant"`
	} `cmd:"" help:"Build the driver projects and assemble the installer"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	PrepareCert struct {
		File string `arg:"" help:"Output certificate file" default:"test.cer"`
		Name string `help:"Certificate common name (default: '<manufacturer>(test)')"`
	} `cmd:"" name:"prepare-cert" help:"Create and install a self-signed test-signing certificate"`

	Verify struct {
		Cert string `arg:"" help:"Certificate file"`
		File string `arg:"" help:"Signed file to check"`
	} `cmd:"" help:"Verify that a file was signed by the given certificate"`

	History struct {
		Limit int `help:"Maximum number of results to show" default:"20"`
	} `cmd:"" help:"Show recent build results"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("winbuild"),
		kong.Description("The Windows PV drivers builder."),
	)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(CLI.Loglevel),
	})))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		die(err)
	}

	ctx := context.Background()

	switch kctx.Command() {
	case "fetch":
		fetch.All(cfg, ".")
	case "build", "build <projects>":
		runBuild(ctx, cfg)
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			die(err)
		}
		fmt.Printf("Configuration written to %s\n", CLI.Config)
	case "prepare-cert", "prepare-cert <file>":
		runPrepareCert(ctx, cfg)
	case "verify <cert> <file>":
		tool := signing.New(nil)
		if err := tool.ValidateAuthenticode(ctx, CLI.Verify.Cert, CLI.Verify.File); err != nil {
			die(err)
		}
	case "history":
		runHistory(ctx, cfg)
	}
}

func runBuild(ctx context.Context, cfg *config.Config) {
	bindings := envdisc.Resolve(envdisc.DefaultStrategies())
	if err := bindings.Validate(); err != nil {
		die(err)
	}

	started := time.Now()
	variant := builder.VariantFree
	if CLI.Build.Debug {
		variant = builder.VariantChecked
	}

	results, err := builder.New(cfg, bindings, ".").Build(ctx, CLI.Build.Projects, CLI.Build.Debug)
	if err != nil {
		die(err)
	}

	recordRun(ctx, cfg, history.Run{
		ID:      uuid.NewString(),
		Started: started,
		Variant: variant,
		Passed:  results.Passed,
		Failed:  results.Failed,
	})
}

func runPrepareCert(ctx context.Context, cfg *config.Config) {
	bindings := envdisc.Resolve(envdisc.DefaultStrategies())
	if bindings.Kit == "" {
		die(&envdisc.MissingBindingsError{Names: []string{envdisc.VarKit}})
	}

	certName := CLI.PrepareCert.Name
	if certName == "" {
		certName = cfg.Branding.Manufacturer + "(test)"
	}

	tool := signing.New(bindings)
	if err := tool.PrepareCert(ctx, CLI.PrepareCert.File, certName); err != nil {
		die(err)
	}
	fmt.Printf("Certificate %q written to %s\n", certName, CLI.PrepareCert.File)
}

func runHistory(ctx context.Context, cfg *config.Config) {
	store, err := history.Open(filepath.Join(cfg.Output.Directory, "history.db"))
	if err != nil {
		die(err)
	}
	defer store.Close()

	entries, err := store.Recent(ctx, CLI.History.Limit)
	if err != nil {
		die(err)
	}
	if len(entries) == 0 {
		fmt.Println("No build results recorded yet.")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-20s %-8s %s\n",
			e.Started.Format("2006-01-02 15:04:05"), e.Project, e.Variant, e.Outcome)
	}
}

// recordRun persists the run outcome. Storage failures are warnings only, a
// build never fails because the history database is unavailable.
func recordRun(ctx context.Context, cfg *config.Config, run history.Run) {
	if err := os.MkdirAll(cfg.Output.Directory, 0o750); err != nil {
		slog.Warn("Failed to create output directory for history", "error", err)
		return
	}
	store, err := history.Open(filepath.Join(cfg.Output.Directory, "history.db"))
	if err != nil {
		slog.Warn("Failed to open history database", "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, run); err != nil {
		slog.Warn("Failed to record build results", "error", err)
	}
}

func die(err error) {
	fmt.Fprintln(os.Stderr, "ERROR: "+err.Error())
	os.Exit(1)
}
