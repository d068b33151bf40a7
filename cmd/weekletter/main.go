package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"weekletter/internal/app"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:     "weekletter",
		Short:   "Deliver the weekly letter to every configured channel, exactly once",
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(cfgPath)
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = a.Stop(stopCtx)
				stopCancel()
				return err
			}

			<-ctx.Done()

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			return a.Stop(stopCtx)
		},
	}
	root.Flags().StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
