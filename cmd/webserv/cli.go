package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vallucodes/webserver-sub000/config"
	"github.com/vallucodes/webserver-sub000/wslog"
)

// version is set via -ldflags at release build time; "dev" otherwise.
var version = "dev"

func rootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "webserv [config_path]",
		Short: "Run the HTTP/1.1 origin server described by a config file",
		Long: `webserv is a single-threaded, event-loop HTTP/1.1 origin server
configured entirely by a declarative text file: virtual servers, location
routing, static file serving, CGI, and file uploads.

Bare invocation with a config path is shorthand for 'webserv run':

	$ webserv site.conf

is equivalent to:

	$ webserv run site.conf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runServer(args[0], debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug-level console logging")

	root.AddCommand(runCmd(&debug), validateCmd(), versionCmd())
	return root
}

func runCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run <config_path>",
		Short: "Run the server in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(args[0], *debug)
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config_path>",
		Short: "Validate a config file without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadCluster(args[0]); err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the webserv version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("webserv " + version)
			return nil
		},
	}
}

func runServer(configPath string, debug bool) error {
	wslog.Configure(debug)
	logger := wslog.Log()

	cluster, err := config.LoadCluster(configPath)
	if err != nil {
		logger.Error("startup: invalid config", zap.Error(err))
		return err
	}

	srv, err := newServer(cluster, logger)
	if err != nil {
		logger.Error("startup: failed to bind listeners", zap.Error(err))
		return err
	}

	if addr := os.Getenv("WEBSERV_ADMIN_ADDR"); addr != "" {
		go srv.serveMetrics(addr)
	}

	stop := make(chan struct{})
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		for i := 0; ; i++ {
			<-shutdown
			if i > 0 {
				logger.Warn("second interrupt: force exit")
				os.Exit(1)
			}
			logger.Info("shutting down")
			close(stop)
		}
	}()

	if err := srv.run(stop); err != nil {
		logger.Error("event loop exited with error", zap.Error(err))
		return err
	}
	return nil
}
