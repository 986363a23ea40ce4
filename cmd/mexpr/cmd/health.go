package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	coregrpc "github.com/msto63/mExpr/pkg/core/grpc"
)

var (
	healthAddr    string
	healthTimeout time.Duration
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query the health of a running expression service over gRPC",
	Long: `Lists the gRPC health status of a running "mexpr serve". The service
must have been started with a gRPC port. The command fails when the
service reports NOT_SERVING.

Examples:
  mexpr health --addr 127.0.0.1:9481`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().StringVar(&healthAddr, "addr", "", "gRPC address (default server.host and server.grpc_port from config)")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "request timeout")
}

func runHealth(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	addr := healthAddr
	if addr == "" {
		if a.cfg.Server.GRPCPort == 0 {
			return errors.New("no gRPC address: pass --addr or set server.grpc_port")
		}
		addr = fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.GRPCPort)
	}

	clientCfg := coregrpc.DefaultClientConfig(addr)
	clientCfg.Logger = a.logger
	conn, err := coregrpc.Dial(clientCfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).List(ctx, &healthpb.HealthListRequest{})
	if err != nil {
		return fmt.Errorf("health request to %s failed: %w", addr, err)
	}

	statuses := resp.GetStatuses()
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	serving := true
	for _, name := range names {
		status := statuses[name].GetStatus()
		fmt.Fprintf(out, "%-20s %s\n", name, status)
		if status == healthpb.HealthCheckResponse_NOT_SERVING {
			serving = false
		}
	}
	if !serving {
		return errors.New("service is not serving")
	}
	return nil
}
