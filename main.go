package main

import (
	"log"
	"runtime"

	"github.com/EasterCompany/dex-assistant-service/app"
	"github.com/EasterCompany/dex-assistant-service/utils"
)

// Populated at link time via -ldflags.
var (
	version   = "dev"
	branch    = "unknown"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	utils.SetVersion(version, branch, commit, buildDate, runtime.GOARCH)

	a, err := app.NewApp()
	if err != nil {
		log.Fatalf("Fatal error during startup: %v", err)
	}
	a.Run()
}
