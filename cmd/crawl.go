package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs one full
// catalog sweep and exits.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs a full catalog sweep",
		Long: `Discovers studios, crawls each studio's listing pages up to the
configured page cap, then runs one enrichment pass over videos that do
not yet have a resolved stream. SIGINT or SIGTERM requests a cooperative
stop; the in-flight page or video finishes and its results are saved.`,

		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	instance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := instance.Logger()
	orchestrator := instance.Orchestrator()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		logger.Info("stop requested, draining in-flight work", zap.String("signal", sig.String()))
		orchestrator.RequestStop()
	}()

	if err := orchestrator.RunFull(cmd.Context()); err != nil {
		return err
	}
	logger.Info("crawl finished", zap.Bool("stopped_early", orchestrator.Stopped()))
	return nil
}
