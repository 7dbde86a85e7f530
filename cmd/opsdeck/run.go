package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/opsdeck"
	"pkt.systems/opsdeck/internal/appconfig"
	"pkt.systems/pslog"
)

func newRunCmd() *cobra.Command {
	var cfgPath string
	var headless bool
	var noSSH bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the opsdeck controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if noSSH {
				cfg.SSH.Enabled = false
			}

			var opts []opsdeck.Option
			if cfg.SSH.Enabled {
				opts = append(opts, opsdeck.WithSSH())
			}
			device, err := opsdeck.New(cfg, opsdeck.Deps{Logger: logger}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := device.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := device.Stop(stopCtx); err != nil {
					logger.Warn("device stop failed", "err", err)
				}
			}()

			if !headless && term.IsTerminal(int(os.Stdin.Fd())) {
				return runConsole(ctx, device.Controller(), device.Store(), device.Bus(), logger)
			}
			logger.Info("running headless", "ssh", cfg.SSH.Enabled, "addr", cfg.SSH.Addr)
			return device.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without the local terminal display")
	cmd.Flags().BoolVar(&noSSH, "no-ssh", false, "disable the SSH display mirror")
	return cmd
}
