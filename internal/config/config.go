// Package config holds the static build configuration: the repository list,
// product branding, and output layout. A compiled-in default configuration
// covers the stock driver set so every command runs without a config file.
package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Repository identifies a clonable source tree.
type Repository struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
}

// Branding carries the product identity used for certificate names.
type Branding struct {
	Manufacturer string `yaml:"manufacturer"`
	Product      string `yaml:"product"`
}

// Output describes where final installer artifacts land.
type Output struct {
	Directory string `yaml:"directory"`
	Archive   string `yaml:"archive"`
}

// Config represents the application configuration.
type Config struct {
	Repositories []Repository `yaml:"repositories"`
	Branding     Branding     `yaml:"branding"`
	Output       Output       `yaml:"output"`
}

// Default returns the stock configuration for the Windows PV driver set.
func Default() *Config {
	repos := []string{
		"https://github.com/xcp-ng/win-xenbus.git",
		"https://github.com/xcp-ng/win-xeniface.git",
		"https://github.com/xcp-ng/win-xenvif.git",
		"https://github.com/xcp-ng/win-xennet.git",
		"https://github.com/xcp-ng/win-xenvbd.git",
		"https://github.com/xcp-ng/win-xenguestagent.git",
		"https://github.com/xcp-ng/win-installer.git",
	}
	cfg := &Config{
		Branding: Branding{
			Manufacturer: "XCP-ng",
			Product:      "Windows PV Drivers",
		},
		Output: Output{
			Directory: "output",
			Archive:   "win-pv-drivers.zip",
		},
	}
	for _, url := range repos {
		cfg.Repositories = append(cfg.Repositories, Repository{URL: url, Branch: "master"})
	}
	return cfg
}

// Load loads configuration from the specified file, falling back to the
// built-in defaults when the file does not exist. Environment variables from
// .env/.env.local are loaded first (process environment wins), and the YAML
// content is environment-expanded before parsing.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if len(cfg.Repositories) == 0 {
		cfg.Repositories = def.Repositories
	}
	if cfg.Branding.Manufacturer == "" {
		cfg.Branding.Manufacturer = def.Branding.Manufacturer
	}
	if cfg.Branding.Product == "" {
		cfg.Branding.Product = def.Branding.Product
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = def.Output.Directory
	}
	if cfg.Output.Archive == "" {
		cfg.Output.Archive = def.Output.Archive
	}
}

// Init creates a new configuration file with the default content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// loadEnvFiles loads environment variables from the first .env file found.
// Missing files are not an error; existing process variables are never
// overwritten by godotenv.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return
		}
	}
}

// RepoName reduces a repository URL to the project name, stripping any .git
// extension. "https://github.com/xcp-ng/win-xenvbd.git" becomes "win-xenvbd".
func RepoName(url string) string {
	base := path.Base(strings.ReplaceAll(url, "\\", "/"))
	if i := strings.Index(base, ".git"); i >= 0 {
		base = base[:i]
	}
	return base
}

// Projects returns the project names in declared repository order.
func (c *Config) Projects() []string {
	names := make([]string, 0, len(c.Repositories))
	for _, repo := range c.Repositories {
		names = append(names, RepoName(repo.URL))
	}
	return names
}

// InstallerProject returns the name of the installer project, or empty when
// no repository name contains "installer".
func (c *Config) InstallerProject() string {
	for _, name := range c.Projects() {
		if strings.Contains(name, "installer") {
			return name
		}
	}
	return ""
}
