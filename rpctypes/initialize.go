package rpctypes

// file: rpctypes/initialize.go

import (
	"encoding/json"

	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/wire"
)

// InitID is the fixed wire id every Initialize handshake request and its
// matching response carry. Using a constant id rather than a counter
// value lets either side recognize the handshake pair without having
// negotiated an id scheme yet.
const InitID = "initialize"

// InitRequest marks Req/Res as the one RpcRequest/response pair a
// Connection exchanges during its Initialize handshake.
type InitRequest[Res any] interface {
	RpcRequest[Res]
}

// EncodeInitRequest builds the wire.Request for the Initialize handshake.
func EncodeInitRequest[Res any, Req InitRequest[Res]](req Req) (wire.Request, error) {
	return EncodeRequest[Res, Req](InitID, req)
}

// MatchesInitRequest reports whether raw is the Initialize handshake
// request for Req, without attempting to decode its params.
func MatchesInitRequest[Res any, Req InitRequest[Res]](raw wire.Request) bool {
	var zero Req
	namespace, name, ok := splitMethod(raw.Method)
	return raw.ID == InitID && ok && namespace == zero.Namespace() && name == zero.Method()
}

// DecodeInitRequest decodes raw as the Initialize handshake request for
// Req, reporting ok=false when raw isn't that request at all.
func DecodeInitRequest[Res any, Req InitRequest[Res]](raw wire.Request) (Req, bool, error) {
	var zero Req
	if raw.ID != InitID {
		return zero, false, nil
	}
	return DecodeRequest[Res, Req](raw)
}

// EncodeInitResponse builds the successful wire.Response for the
// Initialize handshake, carrying the fixed InitID.
func EncodeInitResponse(res interface{}) (wire.Response, error) {
	return wire.NewResultResponse(InitID, res)
}

// DecodeInitResponse unmarshals raw's result into Res, reporting
// ok=false when raw doesn't carry the Initialize handshake's id at all.
func DecodeInitResponse[Res any](raw wire.Response) (Res, bool, error) {
	var zero Res
	if raw.ID != InitID {
		return zero, false, nil
	}
	if raw.Error != nil {
		return zero, true, rpcerr.ErrorWithDetails(
			rpcerr.Newf("peer rejected initialize: %s", raw.Error.Message),
			rpcerr.CategoryProtocol, rpcerr.Code(raw.Error.Code), nil,
		)
	}
	var out Res
	if err := json.Unmarshal(raw.Result, &out); err != nil {
		return zero, true, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to unmarshal initialize response"),
			rpcerr.CategoryDecoding, rpcerr.CodeInvalidParams, nil,
		)
	}
	return out, true, nil
}
