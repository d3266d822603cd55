package main

import (
	"fmt"
	"os"

	"github.com/phacogen-next/internal/cache"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/opsctl"
)

func main() {
	err := opsctl.NewRootCmd(opsctl.LoadEnv).Execute()
	_ = cache.Close()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
