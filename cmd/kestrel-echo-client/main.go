// Command kestrel-echo-client dials a kestrel-echo-server, runs the
// Initialize handshake, then reads commands from stdin: "ping TEXT"
// round-trips TEXT through the server, "err" triggers an application
// error, and "shutdown" runs the graceful Shutdown/Exit handshake.
package main

// file: cmd/kestrel-echo-client/main.go

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/kestrelrpc/kestrel/connection"
	"github.com/kestrelrpc/kestrel/internal/echoproto"
	"github.com/kestrelrpc/kestrel/internal/logging"
	"github.com/kestrelrpc/kestrel/rpctypes"
	"github.com/kestrelrpc/kestrel/wire"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "kestrel-echo-client",
	Short: "Dial a kestrel echo protocol server and exchange a few messages",
	RunE:  runClient,
}

func init() {
	rootCmd.Flags().StringVar(&serverAddr, "addr", "127.0.0.1:4569", "server address to dial")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewZapLogger(logLevel, false)
	if err != nil {
		return err
	}

	conn, err := connection.Connect("tcp", serverAddr, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := context.Background()
	initRes, err := connection.ClientInitialize[echoproto.InitResponse, echoproto.InitRequest](
		ctx, conn, echoproto.InitRequest{ClientName: "kestrel-echo-client"},
	)
	if err != nil {
		return err
	}
	logger.Info("connected", "server_name", initRes.ServerName, "protocol_version", initRes.ProtocolVersion)

	shutdownState, err := connection.NewShutdownState(logger)
	if err != nil {
		return err
	}

	fmt.Println(`connected. commands: "ping TEXT", "err", "shutdown", "quit"`)
	return clientLoop(ctx, logger, conn, shutdownState)
}

func clientLoop(ctx context.Context, logger logging.Logger, conn *connection.Connection, shutdownState *connection.ShutdownState) error {
	var nextID atomic.Uint64
	pong := rpctypes.NewResWrapper(rpctypes.ResponseDecoderFor[echoproto.PongResponse]())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case msg, ok := <-conn.Receive():
			if !ok {
				logger.Info("server disconnected")
				return nil
			}
			consumed, err := shutdownState.HandleShutdown(ctx, conn, msg)
			if err != nil {
				return err
			}
			if consumed {
				if shutdownState.Current() == connection.StateExiting || shutdownState.Current() == connection.StateTerminated {
					logger.Info("shutdown handshake complete")
					return nil
				}
				continue
			}
			if msg.Res != nil {
				handleResponse(logger, pong, *msg.Res)
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if done := handleCommand(conn, &nextID, strings.TrimSpace(line)); done {
				return nil
			}
		}
	}
}

func handleResponse(logger logging.Logger, pong rpctypes.ResWrapper, raw wire.Response) {
	if raw.Error != nil {
		logger.Warn("server returned an error", "code", raw.Error.Code, "message", raw.Error.Message)
		return
	}
	value, err := pong.Decode(raw)
	if err != nil {
		logger.Warn("failed to decode response", "error", err)
		return
	}
	if res, ok := value.(echoproto.PongResponse); ok {
		fmt.Printf("pong: %s\n", res.Text)
	}
}

func handleCommand(conn *connection.Connection, nextID *atomic.Uint64, line string) (quit bool) {
	switch {
	case line == "":
		return false
	case line == "quit":
		return true
	case line == "shutdown":
		id := strconv.FormatUint(nextID.Add(1), 10)
		conn.Send(wire.ShutdownRequestMessage(id))
		return false
	case line == "err":
		sendRequest[echoproto.PongResponse](conn, nextID, echoproto.TriggerErrorRequest{})
		return false
	case strings.HasPrefix(line, "ping "):
		text := strings.TrimPrefix(line, "ping ")
		sendRequest[echoproto.PongResponse](conn, nextID, echoproto.PingRequest{Text: text})
		return false
	default:
		fmt.Println(`unrecognized command, try "ping TEXT", "err", "shutdown", or "quit"`)
		return false
	}
}

func sendRequest[Res any, Req rpctypes.RpcRequest[Res]](conn *connection.Connection, nextID *atomic.Uint64, req Req) {
	id := strconv.FormatUint(nextID.Add(1), 10)
	wireReq, err := rpctypes.EncodeRequest[Res](id, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to encode request:", err)
		return
	}
	conn.Send(wire.ReqMessage(wireReq))
}
