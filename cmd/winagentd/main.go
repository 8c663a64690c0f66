package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/stone-age-io/winsvc"
	"github.com/stone-age-io/winsvc/internal/agent"
	"go.uber.org/zap"
)

// version is set at build time:
//
//	go build -ldflags "-X main.version=1.2.3" ./cmd/winagentd
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default: platform config dir)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	a, err := agent.New(*configPath, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "winagentd: %v\n", err)
		os.Exit(1)
	}

	// Try the service control manager first; fall back to the console when
	// the process was started interactively
	err = agent.RunService(a)
	if errors.Is(err, winsvc.ErrNotService) {
		err = a.Run()
	}
	if err != nil {
		a.Logger().Error("Agent exited with error", zap.Error(err))
		os.Exit(1)
	}
}
