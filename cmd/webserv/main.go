// Command webserv runs the HTTP/1.1 origin server described by a
// declarative config file.
package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/KimMachineGun/automemlimit/memlimit"

	"github.com/vallucodes/webserver-sub000/wslog"
)

func main() {
	logger := wslog.Log()

	undo, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof))
	defer undo()
	if err != nil {
		logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}
	if _, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
	); err != nil {
		logger.Debug("memlimit not adjusted", zap.Error(err))
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
