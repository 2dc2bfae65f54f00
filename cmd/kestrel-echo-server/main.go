// Command kestrel-echo-server listens for kestrel peers, runs the
// Initialize handshake with each, then echoes ping requests back to that
// peer until it completes a graceful shutdown. The process itself runs
// until SIGINT or SIGTERM.
package main

// file: cmd/kestrel-echo-server/main.go

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrelrpc/kestrel/connection"
	"github.com/kestrelrpc/kestrel/internal/echoproto"
	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/rpctypes"
	"github.com/kestrelrpc/kestrel/server"
	"github.com/kestrelrpc/kestrel/wire"
	"github.com/spf13/cobra"
)

const shutdownGrace = 30 * time.Second

var (
	listenAddr string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "kestrel-echo-server",
	Short: "Run the kestrel echo protocol server",
	RunE:  runServer,
}

func init() {
	rootCmd.Flags().StringVar(&listenAddr, "addr", "127.0.0.1:4569", "address to listen on")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewZapLogger(logLevel, false)
	if err != nil {
		return err
	}

	srv := server.New(handleConnection(logger), logger)
	if err := srv.Listen("tcp", listenAddr); err != nil {
		return err
	}
	logger.Info("listening", "addr", srv.Addr().String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.ShutdownAndJoinAll(ctx)
}

func handleConnection(logger logging.Logger) server.Handler {
	return func(ctx context.Context, peerID string, conn *connection.Connection) {
		peerLogger := logger.WithField("peer_id", peerID)

		req, err := connection.ServerInitialize[echoproto.InitResponse, echoproto.InitRequest](
			ctx, conn, echoproto.InitResponse{
				ServerName:      "kestrel-echo-server",
				ProtocolVersion: wire.ProtocolVersion,
			},
		)
		if err != nil {
			peerLogger.Error("initialize failed", "error", err)
			return
		}
		peerLogger.Info("peer initialized", "client_name", req.ClientName)

		shutdownState, err := connection.NewShutdownState(peerLogger)
		if err != nil {
			peerLogger.Error("failed to build shutdown state", "error", err)
			return
		}

		wrapper := rpctypes.NewReqWrapper(
			rpctypes.RequestDecoderFor[echoproto.PongResponse, echoproto.PingRequest](),
			rpctypes.RequestDecoderFor[echoproto.PongResponse, echoproto.TriggerErrorRequest](),
		)

		for msg := range conn.Receive() {
			consumed, err := shutdownState.HandleShutdown(ctx, conn, msg)
			if err != nil {
				peerLogger.Error("shutdown handshake failed", "error", err)
				return
			}
			if consumed {
				if shutdownState.Current() == connection.StateTerminated {
					peerLogger.Info("shutdown complete")
					return
				}
				continue
			}

			if msg.Req == nil {
				continue
			}
			dispatchRequest(peerLogger, conn, wrapper, *msg.Req)
		}
	}
}

func dispatchRequest(logger logging.Logger, conn *connection.Connection, wrapper rpctypes.ReqWrapper, raw wire.Request) {
	value, err := wrapper.Decode(raw)
	if err != nil {
		logger.Warn("unrecognized request", "method", raw.Method, "error", err)
		return
	}

	switch req := value.(type) {
	case echoproto.PingRequest:
		res, err := rpctypes.EncodeResponse(raw.ID, echoproto.PongResponse{Text: req.Text})
		if err != nil {
			logger.Error("failed to encode pong", "error", err)
			return
		}
		conn.Send(wire.ResMessage(res))
	case echoproto.TriggerErrorRequest:
		conn.Send(wire.ResMessage(wire.NewErrorResponse(
			raw.ID, rpcerr.CodeInternalError, "triggered error on request", nil,
		)))
	}
}
