// SPDX-License-Identifier: MIT
//
// Captive portal - bring up WiFi, or serve an access point with a captive
// DNS and a configuration page until credentials are given.
//

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"captiveportal/config"
	"captiveportal/log"
	"captiveportal/portal"
	"captiveportal/storage"
	"captiveportal/wifi"
	"captiveportal/wifi/sim"
)

// set by build flags
var (
	version string
	date    string
)

type options struct {
	logLevel  string
	configDir string
}

func main() {
	config.SetVersion(&config.VersionInfo{Version: version, Date: date})
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "captiveportal",
		Short:         "WiFi bring-up with a captive portal fallback",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevelString(opts.logLevel)
			log.Debugf("set log level to [%s]", opts.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortal(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info",
		"log level: debug/info/notice/warn/error")
	cmd.PersistentFlags().StringVarP(&opts.configDir, "config-dir", "c", ".",
		"directory of config.json and the storage file")

	cmd.AddCommand(
		newRunCmd(opts),
		newInitCmd(opts),
		newCredsCmd(opts),
		newProbeCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the portal (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortal(cmd.Context(), opts)
		},
	}
}

func runPortal(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := config.Load(opts.configDir); err != nil {
		return err
	}
	conf := config.Get()

	store, err := storage.Open(conf.StorageFile.Path())
	if err != nil {
		return err
	}
	drv, bus, err := sim.FromConfig(conf)
	if err != nil {
		return err
	}
	radio := wifi.NewRadio(drv, bus)

	m, err := portal.New(conf, radio, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Infof("captiveportal %s starting", config.GetVersion())
	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Infof("captiveportal stopped")
	return nil
}

func newInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config.json into the config directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Initialize(opts.configDir)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "captiveportal %s\n", config.GetVersion())
		},
	}
}
