// main is the entrypoint for the kpiscore CLI.
package main

import (
	"github.com/huangsam/kpiscore/cmd"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()

	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseCaching()

	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
