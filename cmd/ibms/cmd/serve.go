package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ibms-reporting-service/internal/server"
	"ibms-reporting-service/internal/store"
	"ibms-reporting-service/pkg/logger"
)

var (
	serveAddr          string
	serveDataDir       string
	serveFinancialYear string
)

// serveCmd runs the HTTP service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the IBMS HTTP service",
	Long: `Serve starts the upload and reporting HTTP service over an in-memory
reference store. Optionally preloads extracts from a data directory
before accepting requests.

Examples:
  ibms serve --addr :8080
  ibms serve --addr :8080 --data-dir ./extracts --financial-year 2024/25`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "directory of extract files to preload (optional)")
	serveCmd.Flags().StringVar(&serveFinancialYear, "financial-year", "", "financial year for preloaded extracts (YYYY/YY)")

	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("data-dir", serveCmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("financial-year", serveCmd.Flags().Lookup("financial-year"))
}

func runServe(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	serveAddr = viper.GetString("addr")
	serveDataDir = viper.GetString("data-dir")
	serveFinancialYear = viper.GetString("financial-year")

	log := logger.GetGlobalLogger().WithComponent("serve")
	st := store.New()

	if serveDataDir != "" {
		if err := loadExtracts(cmd.Context(), st, serveDataDir, serveFinancialYear); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}

	srv := &http.Server{
		Addr:         serveAddr,
		Handler:      server.New(st, nil).Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", serveAddr).Info("Listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			os.Exit(handler.HandleError(err))
		}
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}
	return nil
}
