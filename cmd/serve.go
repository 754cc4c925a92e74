package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coal/siterisk/internal/audit"
	"github.com/coal/siterisk/internal/dashboard"
	"github.com/coal/siterisk/internal/pipeline"
	"github.com/coal/siterisk/internal/provider"
)

var (
	serveFindings   string
	servePolicyFile string
	listenAddr      string
	auditFile       string
	scanInterval    time.Duration
	serveJSONOut    string
	serveCSVDir     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the site risk dashboard",
	Long:  "Serve the real-time dashboard, run a scan at startup, and optionally rescan on an interval or on demand.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFindings, "findings", "", "Path to a findings snapshot file or bundle directory")
	serveCmd.Flags().StringVar(&servePolicyFile, "policy", "", "Path to policy YAML file (default: built-in policy)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	serveCmd.Flags().StringVar(&auditFile, "audit-log", "", "Path to audit log file (default: stderr)")
	serveCmd.Flags().DurationVar(&scanInterval, "interval", 0, "Rescan interval (0 disables periodic scans)")
	serveCmd.Flags().StringVar(&serveJSONOut, "json", "", "Write each result as JSON to this file")
	serveCmd.Flags().StringVar(&serveCSVDir, "csv-dir", "", "Write CSV reports for each scan into this directory")
	serveCmd.MarkFlagRequired("findings")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	pol, err := loadPolicy(servePolicyFile)
	if err != nil {
		return err
	}
	logger.Info().
		Str("policy", pol.PolicyName).
		Str("version", pol.Version).
		Int("alert_rules", len(pol.AlertRules)).
		Msg("policy loaded")

	src, err := provider.Open(serveFindings)
	if err != nil {
		return err
	}

	// Set up audit logger
	var auditLogger *audit.Logger
	if auditFile != "" {
		auditLogger, err = audit.NewFileLogger(auditFile)
		if err != nil {
			return fmt.Errorf("creating audit logger: %w", err)
		}
		defer auditLogger.Close()
		logger.Info().Str("path", auditFile).Msg("audit log enabled")
	} else {
		auditLogger = audit.NewStderrLogger()
	}

	out, err := buildSinks(pol, serveJSONOut, serveCSVDir, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if out != nil {
		defer out.Close(context.Background())
	}

	pipe := pipeline.New(pol, src, out, auditLogger, logger)
	hub := dashboard.NewHub(pol, logger)
	pipe.AddObserver(hub.OnEvent)
	dashboard.Run(ctx, hub)

	go func() {
		if _, err := pipe.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("initial scan failed")
		}
		if scanInterval <= 0 {
			return
		}
		ticker := time.NewTicker(scanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := pipe.Run(ctx); err != nil {
					logger.Error().Err(err).Msg("scheduled scan failed")
				}
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle(dashboard.Prefix, dashboard.Handler(hub, pipe))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, dashboard.Prefix, http.StatusFound)
	})

	fmt.Fprintf(os.Stderr, "\n  siterisk v%s\n", Version)
	fmt.Fprintf(os.Stderr, "  Policy:    %s (%s)\n", pol.PolicyName, pol.Version)
	fmt.Fprintf(os.Stderr, "  Findings:  %s\n", serveFindings)
	dashAddr := listenAddr
	if strings.HasPrefix(dashAddr, ":") {
		dashAddr = "localhost" + dashAddr
	}
	fmt.Fprintf(os.Stderr, "  Dashboard: http://%s%s\n\n", dashAddr, dashboard.Prefix)

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("listen", listenAddr).Msg("starting dashboard")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
