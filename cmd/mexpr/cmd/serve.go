package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msto63/mExpr/internal/server"
	"github.com/msto63/mExpr/pkg/core/version"
)

var (
	serveHost      string
	servePort      int
	serveGRPCPort  int
	serveNoHistory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the websocket expression service",
	Long: `Starts the expression service.

Endpoints:
  /healthz  - health report (JSON)
  /ws       - websocket, one session per connection

With --grpc-port (or server.grpc_port) a gRPC listener serves
  mexpr.v1.ExprService  - Parse and Eval, JSON encoded (application/grpc+json)
  grpc.health.v1.Health - Check and List, one entry per health check

Messages are JSON objects:
  {"id":"1","type":"parse","payload":{"input":"1 + 2"}}
  {"id":"2","type":"eval","payload":{"input":"x = 3 * 4"}}
  {"id":"3","type":"vars"}   {"type":"reset"}   {"type":"ping"}

Examples:
  mexpr serve
  mexpr serve --port 9500
  mexpr serve --grpc-port 9481`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().IntVar(&serveGRPCPort, "grpc-port", 0, "gRPC listen port (default from config, 0 disables)")
	serveCmd.Flags().BoolVar(&serveNoHistory, "no-history", false, "do not record messages in the history store")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig()
	cfg.Host = a.cfg.Server.Host
	cfg.Port = a.cfg.Server.Port
	cfg.ReadTimeout = a.cfg.Server.ReadTimeout.Duration
	cfg.WriteTimeout = a.cfg.Server.WriteTimeout.Duration
	cfg.MaxSessions = a.cfg.Server.MaxSessions
	cfg.GRPCPort = a.cfg.Server.GRPCPort
	cfg.ParseCacheSize = max(a.cfg.Server.ParseCacheSize, 0)
	cfg.ParseCacheTTL = a.cfg.Server.ParseCacheTTL.Duration
	cfg.Version = version.Server
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveGRPCPort != 0 {
		cfg.GRPCPort = serveGRPCPort
	}

	opts := server.Options{
		Engine: a.engine,
		Logger: a.logger,
	}

	if *a.cfg.History.Enabled && !serveNoHistory {
		history, err := openHistory(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer history.Close()
		opts.History = history
	}

	srv, err := server.New(cfg, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "mExpr expression service v%s listening on %s\n", version.Server, srv.Address())
	if addr := srv.GRPCAddress(); addr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "gRPC services on %s\n", addr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return srv.Serve(ctx)
}
