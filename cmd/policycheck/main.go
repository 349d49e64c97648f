// cmd/policycheck/main.go - single-probe policy checker.
//
// Reads one policy registry value, classifies it, and (under elevation)
// repairs a restricting value in place. The same probe/verdict/remediate
// pattern as remedian, with a one-element chain.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/windowsadmins/remedian/pkg/config"
	"github.com/windowsadmins/remedian/pkg/logging"
	"github.com/windowsadmins/remedian/pkg/platform"
	"github.com/windowsadmins/remedian/pkg/probe"
	"github.com/windowsadmins/remedian/pkg/remediate"
	"github.com/windowsadmins/remedian/pkg/report"
	"github.com/windowsadmins/remedian/pkg/verdict"
	"github.com/windowsadmins/remedian/pkg/version"
)

func main() {
	keyPath := pflag.String("key", "", "Registry key path under HKLM holding the policy value.")
	valueName := pflag.String("value", "", "Policy value name.")
	desired := pflag.Uint32("desired", 0, "Value that unrestricts the policy.")
	checkOnly := pflag.Bool("check-only", false, "Report the policy state without repairing it.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity")
	pflag.Parse()

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	if *keyPath == "" || *valueName == "" {
		fmt.Fprintln(os.Stderr, "policycheck requires --key and --value")
		pflag.Usage()
		os.Exit(1)
	}

	logger := logging.New(verbosity > 0)

	cfg := config.GetDefaultConfig()
	cfg.ItemName = *valueName
	if err := logging.Init(cfg); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	registry := platform.Registry{}

	detection := probe.RunChain([]probe.Probe{
		probe.PolicyProbe{
			KeyPath:         *keyPath,
			ValueName:       *valueName,
			DesiredValue:    *desired,
			ReportCompliant: true,
			Registry:        registry,
		},
	})
	v := verdict.Resolve(detection, verdict.Baseline{})

	result := report.RunResult{
		Item:      *keyPath + `\` + *valueName,
		Detection: detection,
		Verdict:   v,
	}

	if !*checkOnly && v.Kind == verdict.Restricted {
		elevation, err := platform.CurrentElevation()
		if err != nil {
			logger.Warning("Unable to determine elevation: %v", err)
		}
		pipeline := &remediate.Pipeline{
			IsElevated: elevation.IsElevated,
			ItemName:   *valueName,
			Registry:   registry,
			Policy: remediate.PolicyTarget{
				KeyPath:      *keyPath,
				ValueName:    *valueName,
				DesiredValue: *desired,
			},
		}
		result.Outcome = pipeline.Remediate(v)
	}

	report.Render(logger, result)
	os.Exit(report.ExitCode(result))
}
