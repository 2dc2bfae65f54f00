package rpctypes

// file: rpctypes/request.go

import (
	"encoding/json"
	"strings"

	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/wire"
)

// RpcRequest is implemented by every typed request payload this library
// dispatches by value (not by pointer): its zero value must report a
// stable Namespace/Method so DecodeRequest can classify a wire.Request
// before unmarshaling its params.
type RpcRequest[Res any] interface {
	Namespace() Namespace
	Method() string
}

// EncodeRequest marshals req into its wire.Request, joining namespace and
// method into the library's "namespace_method" convention.
func EncodeRequest[Res any, Req RpcRequest[Res]](id string, req Req) (wire.Request, error) {
	method := string(req.Namespace()) + NamespaceSeparator + req.Method()
	return wire.NewRequest(id, method, req)
}

// DecodeRequest reports whether raw's method belongs to Req's
// namespace/method pair, unmarshaling its params into a Req value when it
// does. ok is false (with a nil error) when raw simply addresses a
// different request type; err is non-nil only when raw claims to be this
// type but its params fail to decode.
func DecodeRequest[Res any, Req RpcRequest[Res]](raw wire.Request) (Req, bool, error) {
	var zero Req

	namespace, name, ok := splitMethod(raw.Method)
	if !ok || namespace != zero.Namespace() || name != zero.Method() {
		return zero, false, nil
	}

	var out Req
	if len(raw.Params) > 0 {
		if err := json.Unmarshal(raw.Params, &out); err != nil {
			return zero, true, rpcerr.ErrorWithDetails(
				rpcerr.Wrap(err, "failed to unmarshal request params"),
				rpcerr.CategoryDecoding, rpcerr.CodeInvalidParams,
				map[string]interface{}{"method": raw.Method},
			)
		}
	}
	return out, true, nil
}

func splitMethod(method string) (namespace Namespace, name string, ok bool) {
	idx := strings.Index(method, NamespaceSeparator)
	if idx < 0 {
		return "", "", false
	}
	return Namespace(method[:idx]), method[idx+1:], true
}
