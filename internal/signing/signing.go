// Package signing wraps the external certificate tools: test-certificate
// creation via makecert and thumbprint queries via powershell. Thumbprint
// comparison confirms a produced artifact was signed by the expected
// certificate.
package signing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/winpv/winbuild/internal/envdisc"
	"github.com/winpv/winbuild/internal/runner"
)

// codeSigningEKU is the extended-key-usage OID for code signing.
const codeSigningEKU = "1.3.6.1.5.5.7.3.3"

// Tool invokes the certificate utilities.
type Tool struct {
	bindings *envdisc.Bindings
	run      runner.Func
	stdout   io.Writer
}

// New creates a Tool. bindings may be nil for thumbprint queries, which only
// need powershell on the path.
func New(bindings *envdisc.Bindings) *Tool {
	return &Tool{bindings: bindings, run: runner.Run, stdout: os.Stdout}
}

// WithRunFunc replaces the command runner (for testing).
func (t *Tool) WithRunFunc(run runner.Func) *Tool { t.run = run; return t }

// WithStdout redirects the comparison report (for testing).
func (t *Tool) WithStdout(w io.Writer) *Tool { t.stdout = w; return t }

// PrepareCert creates a self-signed test-signing certificate with an
// exportable private key, installs it into the personal store (required by
// the installer build), and writes it to file.
func (t *Tool) PrepareCert(ctx context.Context, file, certName string) error {
	argv := []string{
		t.bindings.MakeCert(),
		"-r",
		"-pe",
		"-ss", "my",
		"-n", "CN=" + certName,
		"-eku", codeSigningEKU,
		file,
	}
	_, err := t.run(ctx, argv, runner.Options{Env: t.bindings.Environ()})
	return err
}

// AuthenticodeThumbprint returns the thumbprint of the certificate that
// signed an Authenticode file (for example a .exe or .msi).
func (t *Tool) AuthenticodeThumbprint(ctx context.Context, file string) (string, error) {
	argv := []string{
		"powershell.exe",
		fmt.Sprintf("(Get-AuthenticodeSignature -FilePath %s).SignerCertificate.Thumbprint", file),
	}
	return t.query(ctx, argv)
}

// CertificateThumbprint returns the thumbprint of an x509 certificate file.
func (t *Tool) CertificateThumbprint(ctx context.Context, cert string) (string, error) {
	abs, err := filepath.Abs(cert)
	if err != nil {
		return "", err
	}
	argv := []string{
		"powershell.exe",
		fmt.Sprintf("(New-Object System.Security.Cryptography.X509Certificates.X509Certificate2 '%s').Thumbprint", abs),
	}
	return t.query(ctx, argv)
}

func (t *Tool) query(ctx context.Context, argv []string) (string, error) {
	res, err := t.run(ctx, argv, runner.Options{Capture: true})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// ValidateAuthenticode confirms the Authenticode file was signed by the
// given certificate. A thumbprint mismatch is an error naming both paths
// and both thumbprints.
func (t *Tool) ValidateAuthenticode(ctx context.Context, cert, file string) error {
	authThumb, err := t.AuthenticodeThumbprint(ctx, file)
	if err != nil {
		return err
	}
	certThumb, err := t.CertificateThumbprint(ctx, cert)
	if err != nil {
		return err
	}

	fmt.Fprintf(t.stdout, "Comparing thumbprints %s (%s) and %s (%s)\n", cert, certThumb, file, authThumb)
	if authThumb != certThumb {
		return fmt.Errorf("%s's thumbprint (%s) does not match %s's thumbprint (%s)",
			cert, certThumb, file, authThumb)
	}
	return nil
}
