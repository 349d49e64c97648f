// cmd/remedian/main.go

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/windowsadmins/remedian/pkg/config"
	"github.com/windowsadmins/remedian/pkg/download"
	"github.com/windowsadmins/remedian/pkg/logging"
	"github.com/windowsadmins/remedian/pkg/platform"
	"github.com/windowsadmins/remedian/pkg/probe"
	"github.com/windowsadmins/remedian/pkg/remediate"
	"github.com/windowsadmins/remedian/pkg/report"
	"github.com/windowsadmins/remedian/pkg/verdict"
	"github.com/windowsadmins/remedian/pkg/version"
)

var logger *logging.Logger

func main() {
	showConfig := pflag.Bool("show-config", false, "Display the current configuration and exit.")
	checkOnly := pflag.Bool("check-only", false, "Probe and classify, but don't remediate.")
	configPath := pflag.String("config", "", "Path to an alternate configuration file.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (e.g. -v, -vv, -vvv)")
	pflag.Parse()

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Verbosity overrides the configured log level:
	// 0 => ERROR, 1 => WARN, 2 => INFO, 3+ => DEBUG
	switch verbosity {
	case 0:
		cfg.LogLevel = "ERROR"
	case 1:
		cfg.LogLevel = "WARN"
	case 2:
		cfg.LogLevel = "INFO"
	default:
		cfg.LogLevel = "DEBUG"
	}
	if *checkOnly {
		cfg.CheckOnly = true
	}

	logger = logging.New(verbosity > 0)
	if err := logging.Init(cfg); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	if *showConfig {
		if cfgYaml, err := yaml.Marshal(cfg); err == nil {
			logger.Printf("Current configuration:\n%s", string(cfgYaml))
		}
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// run performs one reconciliation pass and returns the process exit code.
func run(cfg *config.Configuration) int {
	logger.Printf("Checking %s (target %s)", cfg.DisplayName, displayTarget(cfg))

	// Privilege context is read once and never mutated.
	elevation, err := platform.CurrentElevation()
	if err != nil {
		logger.Warning("Unable to determine elevation, treating as not elevated: %v", err)
	}

	registry := platform.Registry{}
	runner := platform.CommandRunner{}

	detection := probe.RunChain(buildChain(cfg, registry, runner))
	v := verdict.Resolve(detection, verdict.Baseline{TargetVersion: cfg.TargetVersion})

	result := report.RunResult{
		Item:      cfg.DisplayName,
		Detection: detection,
		Verdict:   v,
	}

	if cfg.CheckOnly {
		logger.Info("Check-only mode: skipping remediation")
		report.Render(logger, result)
		return report.ExitCode(result)
	}

	pipeline := &remediate.Pipeline{
		IsElevated:    elevation.IsElevated,
		ItemName:      cfg.ItemName,
		TargetVersion: cfg.TargetVersion,
		Registry:      registry,
		Policy: remediate.PolicyTarget{
			KeyPath:      cfg.PolicyKeyPath,
			ValueName:    cfg.PolicyValueName,
			DesiredValue: cfg.PolicyDesiredValue,
		},
		Acquirer: &download.Acquirer{
			Fetcher:        platform.HTTPFetcher{Timeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second},
			ShareURL:       cfg.ShareURL,
			ReleasePattern: cfg.ReleasePattern,
			TargetVersion:  cfg.TargetVersion,
			ArtifactName:   cfg.ArtifactName,
			ExpectedSHA256: cfg.ExpectedSHA256,
			TempParent:     cfg.CachePath,
		},
		Runner:            runner,
		BlockingProcesses: cfg.BlockingProcesses,
	}

	result.Outcome = pipeline.Remediate(v)
	report.Render(logger, result)
	return report.ExitCode(result)
}

// buildChain assembles the probes in priority order: the policy
// restriction gate first, then version sources from most to least
// authoritative, then service state when the item is tracked by service
// rather than version.
func buildChain(cfg *config.Configuration, registry platform.Registry, runner platform.CommandRunner) []probe.Probe {
	var probes []probe.Probe

	if cfg.PolicyKeyPath != "" && cfg.PolicyValueName != "" {
		probes = append(probes, probe.PolicyProbe{
			KeyPath:      cfg.PolicyKeyPath,
			ValueName:    cfg.PolicyValueName,
			DesiredValue: cfg.PolicyDesiredValue,
			Registry:     registry,
		})
	}

	probes = append(probes,
		probe.ManagedKeyProbe{ItemName: cfg.ItemName, Registry: registry},
		probe.UninstallKeyProbe{ItemName: cfg.ItemName},
	)
	if cfg.ProductCode != "" {
		probes = append(probes, probe.ProductCodeProbe{ProductCode: cfg.ProductCode, Registry: registry})
	}
	if cfg.BinaryPath != "" {
		probes = append(probes, probe.FileVersionProbe{Path: cfg.BinaryPath})
	}
	if cfg.PackagePattern != "" {
		probes = append(probes, probe.PackageQueryProbe{Pattern: cfg.PackagePattern})
	}
	if cfg.BinaryPath != "" {
		probes = append(probes, probe.CommandProbe{
			Path:   cfg.BinaryPath,
			Args:   cfg.VersionArgs,
			Runner: runner,
		})
	}
	if cfg.ServiceName != "" && cfg.TargetVersion == "" {
		probes = append(probes, probe.ServiceProbe{ServiceName: cfg.ServiceName})
	}
	return probes
}

func loadConfiguration(path string) (*config.Configuration, error) {
	if path != "" {
		return config.LoadConfigFile(path)
	}
	return config.LoadConfig()
}

func displayTarget(cfg *config.Configuration) string {
	if cfg.TargetVersion != "" {
		return cfg.TargetVersion
	}
	return "presence"
}
