package rpctypes

// file: rpctypes/wrapper.go

import (
	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/wire"
)

// RequestDecoder attempts to classify and decode a wire.Request as one
// concrete request type, reporting ok=false (with a nil error) when the
// request simply belongs to a different type.
type RequestDecoder func(raw wire.Request) (value interface{}, ok bool, err error)

// RequestDecoderFor adapts DecodeRequest for a concrete Req/Res pair into
// a RequestDecoder usable with NewReqWrapper. This is the Go analogue of
// the per-variant arm a generated wrapper enum produces for each type
// named in its candidate list.
func RequestDecoderFor[Res any, Req RpcRequest[Res]]() RequestDecoder {
	return func(raw wire.Request) (interface{}, bool, error) {
		v, ok, err := DecodeRequest[Res, Req](raw)
		if err != nil || !ok {
			return nil, ok, err
		}
		return v, true, nil
	}
}

// ReqWrapper walks a fixed, ordered list of typed request decoders,
// mirroring a generated wrapper enum: each candidate type gets a turn, in
// registration order, until one claims the request by namespace and
// method.
type ReqWrapper struct {
	decoders []RequestDecoder
}

// NewReqWrapper builds a ReqWrapper trying decoders in the given order.
func NewReqWrapper(decoders ...RequestDecoder) ReqWrapper {
	return ReqWrapper{decoders: decoders}
}

// Decode returns the first registered type that claims raw, or a
// MethodNotFound error if none does.
func (w ReqWrapper) Decode(raw wire.Request) (interface{}, error) {
	for _, decode := range w.decoders {
		v, ok, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}
	return nil, rpcerr.ErrorWithDetails(
		rpcerr.Newf("no registered request type claims method %q", raw.Method),
		rpcerr.CategoryProtocol, rpcerr.CodeMethodNotFound,
		map[string]interface{}{"method": raw.Method},
	)
}

// ResponseDecoder attempts to unmarshal a wire.Response's result into one
// concrete response type.
type ResponseDecoder func(raw wire.Response) (value interface{}, err error)

// ResponseDecoderFor adapts DecodeResponse for a concrete Res into a
// ResponseDecoder usable with NewResWrapper.
func ResponseDecoderFor[Res any]() ResponseDecoder {
	return func(raw wire.Response) (interface{}, error) {
		return DecodeResponse[Res](raw)
	}
}

// ResWrapper decodes a wire.Response's result against one target type,
// selected by the caller based on which request it correlates to (a
// Response carries no method, so unlike ReqWrapper it cannot pick its own
// target by inspecting the wire payload alone).
type ResWrapper struct {
	decode ResponseDecoder
}

// NewResWrapper builds a ResWrapper that decodes into Res.
func NewResWrapper(decode ResponseDecoder) ResWrapper {
	return ResWrapper{decode: decode}
}

// Decode unmarshals raw via the wrapper's registered decoder.
func (w ResWrapper) Decode(raw wire.Response) (interface{}, error) {
	return w.decode(raw)
}
