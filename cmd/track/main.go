package main

import (
	"os"

	"github.com/srodi/track/pkg/supervisor"
)

// Version information, set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// The re-executed child must stamp the clock before anything else runs.
	if supervisor.IsChild(os.Args) {
		os.Exit(supervisor.RunChild(supervisor.ChildArgv(os.Args)))
	}

	SetVersion(version, commit, date)
	os.Exit(Execute(os.Args[1:], os.Stdout, os.Stderr))
}
