// cmd/servicecheck/main.go - single-probe service status report.
//
// Detection and verdict only; no remediation path for services.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/windowsadmins/remedian/pkg/config"
	"github.com/windowsadmins/remedian/pkg/logging"
	"github.com/windowsadmins/remedian/pkg/platform"
	"github.com/windowsadmins/remedian/pkg/probe"
	"github.com/windowsadmins/remedian/pkg/report"
	"github.com/windowsadmins/remedian/pkg/verdict"
	"github.com/windowsadmins/remedian/pkg/version"
)

func main() {
	serviceName := pflag.String("service", "", "Name of the Windows service to check.")
	versionFlag := pflag.Bool("version", false, "Print the version and exit.")

	var verbosity int
	pflag.CountVarP(&verbosity, "verbose", "v", "Increase verbosity")
	pflag.Parse()

	if *versionFlag {
		version.Print()
		os.Exit(0)
	}

	if *serviceName == "" {
		fmt.Fprintln(os.Stderr, "servicecheck requires --service")
		pflag.Usage()
		os.Exit(1)
	}

	logger := logging.New(verbosity > 0)

	cfg := config.GetDefaultConfig()
	cfg.ItemName = *serviceName
	if err := logging.Init(cfg); err != nil {
		logger.Fatal("Error initializing logger: %v", err)
	}
	defer logging.CloseLogger()

	if info, err := platform.QuerySystemInfo(); err == nil {
		logger.Printf("System: %s (version %s, build %s)", info.Caption, info.Version, info.BuildNumber)
	}

	detection := probe.RunChain([]probe.Probe{
		probe.ServiceProbe{ServiceName: *serviceName},
	})
	v := verdict.Resolve(detection, verdict.Baseline{})

	result := report.RunResult{
		Item:      *serviceName,
		Detection: detection,
		Verdict:   v,
	}
	report.Render(logger, result)
	os.Exit(report.ExitCode(result))
}
