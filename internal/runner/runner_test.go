package runner

import (
	"context"
	"os/exec"
	"testing"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunEmptyCommand(t *testing.T) {
	if _, err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	requireShell(t)
	res, err := Run(context.Background(), []string{"sh", "-c", "printf hello"}, Options{Capture: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Stdout) != "hello" {
		t.Errorf("expected captured stdout 'hello', got %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
}

func TestRunNonzeroExitIsError(t *testing.T) {
	requireShell(t)
	res, err := Run(context.Background(), []string{"sh", "-c", "exit 3"}, Options{})
	if err == nil {
		t.Fatal("expected error for nonzero exit")
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
}

func TestRunNoCheckToleratesNonzeroExit(t *testing.T) {
	requireShell(t)
	res, err := Run(context.Background(), []string{"sh", "-c", "exit 3"}, Options{NoCheck: true})
	if err != nil {
		t.Fatalf("NoCheck must tolerate nonzero exit, got %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
}

func TestRunStartFailureIsErrorEvenWithNoCheck(t *testing.T) {
	if _, err := Run(context.Background(), []string{"definitely-not-a-real-binary-xyz"}, Options{NoCheck: true}); err == nil {
		t.Fatal("expected error when the command cannot start")
	}
}

func TestDirectWrapIsIdentity(t *testing.T) {
	argv := []string{"python", "build.py", "free"}
	got := Direct{}.Wrap(argv)
	if len(got) != 3 || got[0] != "python" || got[2] != "free" {
		t.Errorf("Direct.Wrap changed argv: %v", got)
	}
}

func TestActivatedWrapChainsActivationScript(t *testing.T) {
	a := Activated{Script: `E:\BuildEnv\SetupBuildEnv.cmd`}
	got := a.Wrap([]string{"python", "build.py", "checked"})
	want := []string{"cmd.exe", "/C", `call E:\BuildEnv\SetupBuildEnv.cmd && python build.py checked`}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
