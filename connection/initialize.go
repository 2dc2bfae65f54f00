package connection

// file: connection/initialize.go

import (
	"context"
	"time"

	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/rpctypes"
	"github.com/kestrelrpc/kestrel/wire"
)

// receiveTimeout bounds each polling attempt ServerInitializeStart makes on the
// inbound queue, so a canceled ctx is noticed promptly rather than after
// an unbounded blocking receive.
const receiveTimeout = time.Second

// ClientInitialize sends the Initialize handshake request and blocks
// until the matching response arrives, ctx is canceled, or the peer
// disconnects. Any message other than a Response carrying Req's
// Initialize id is a protocol error.
func ClientInitialize[Res any, Req rpctypes.InitRequest[Res]](ctx context.Context, conn *Connection, req Req) (Res, error) {
	var zero Res

	wireReq, err := rpctypes.EncodeInitRequest[Res](req)
	if err != nil {
		return zero, err
	}
	conn.Send(wire.ReqMessage(wireReq))

	select {
	case <-ctx.Done():
		return zero, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(ctx.Err(), "initialize canceled"),
			rpcerr.CategoryProtocol, rpcerr.CodeServerErrorStart, nil,
		)
	case msg, ok := <-conn.Receive():
		if !ok {
			return zero, rpcerr.ErrorWithDetails(
				rpcerr.New("connection closed awaiting initialize response"),
				rpcerr.CategoryLocal, rpcerr.CodeDisconnect, nil,
			)
		}
		if msg.Res == nil {
			return zero, rpcerr.ErrorWithDetails(
				rpcerr.Newf("expected initialize response, got message kind %d", msg.Kind),
				rpcerr.CategoryProtocol, rpcerr.CodeServerErrorStart, nil,
			)
		}
		res, matched, err := rpctypes.DecodeInitResponse[Res](*msg.Res)
		if err != nil {
			return zero, err
		}
		if !matched {
			return zero, rpcerr.ErrorWithDetails(
				rpcerr.New("response did not carry the initialize id"),
				rpcerr.CategoryProtocol, rpcerr.CodeServerErrorStart, nil,
			)
		}
		return res, nil
	}
}

// ServerInitializeStart loops on the inbound queue, polling at
// receiveTimeout intervals so ctx cancellation is noticed promptly.
// Requests that are not Req's Initialize request (Req's namespace and
// method, carrying rpctypes.InitID as id) are answered with an
// Uninitialized-style error and the loop continues; a Response is
// ignored and the loop continues; the matching initialize Request is
// captured and returned.
func ServerInitializeStart[Res any, Req rpctypes.InitRequest[Res]](ctx context.Context, conn *Connection) (Req, error) {
	var zero Req
	ticker := time.NewTicker(receiveTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return zero, rpcerr.ErrorWithDetails(
				rpcerr.Wrap(ctx.Err(), "initialization has been aborted"),
				rpcerr.CategoryProtocol, rpcerr.CodeServerErrorStart, nil,
			)
		case msg, ok := <-conn.Receive():
			if !ok {
				return zero, rpcerr.ErrorWithDetails(
					rpcerr.New("connection closed awaiting initialize request"),
					rpcerr.CategoryLocal, rpcerr.CodeDisconnect, nil,
				)
			}
			if msg.Req == nil {
				// A Response (or pseudo-message) arriving before init completes
				// is tolerated and ignored; only requests get a reply.
				continue
			}
			req, matched, err := rpctypes.DecodeInitRequest[Res, Req](*msg.Req)
			if err != nil {
				return zero, err
			}
			if matched {
				return req, nil
			}
			conn.Send(wire.ResMessage(wire.NewErrorResponse(
				msg.Req.ID, rpcerr.CodeServerErrorStart,
				rpcerr.MessageUninitialized,
				msg.Req,
			)))
		case <-ticker.C:
			continue
		}
	}
}

// ServerInitializeFinish sends the Initialize response to the peer that
// completed ServerInitializeStart.
func ServerInitializeFinish[Res any](conn *Connection, res Res) error {
	wireRes, err := rpctypes.EncodeInitResponse(res)
	if err != nil {
		return err
	}
	conn.Send(wire.ResMessage(wireRes))
	return nil
}

// ServerInitialize combines ServerInitializeStart and
// ServerInitializeFinish: it waits for the client's initialize request,
// sends the supplied response, and returns the captured request.
func ServerInitialize[Res any, Req rpctypes.InitRequest[Res]](ctx context.Context, conn *Connection, res Res) (Req, error) {
	req, err := ServerInitializeStart[Res, Req](ctx, conn)
	if err != nil {
		return req, err
	}
	if err := ServerInitializeFinish(conn, res); err != nil {
		return req, err
	}
	return req, nil
}
