package rpctypes

// file: rpctypes/response.go

import (
	"encoding/json"

	"github.com/kestrelrpc/kestrel/internal/rpcerr"
	"github.com/kestrelrpc/kestrel/wire"
)

// EncodeResponse marshals a typed response payload into a successful
// wire.Response carrying id.
func EncodeResponse(id string, res interface{}) (wire.Response, error) {
	return wire.NewResultResponse(id, res)
}

// DecodeResponse unmarshals raw's result into Res. If raw carries an
// error half instead, DecodeResponse returns a rpcerr built from the
// wire error's code and message rather than a zero Res.
func DecodeResponse[Res any](raw wire.Response) (Res, error) {
	var zero Res
	if raw.Error != nil {
		return zero, rpcerr.ErrorWithDetails(
			rpcerr.Newf("%s", raw.Error.Message),
			rpcerr.CategoryApplication, rpcerr.Code(raw.Error.Code),
			map[string]interface{}{"id": raw.ID},
		)
	}

	var out Res
	if len(raw.Result) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw.Result, &out); err != nil {
		return zero, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to unmarshal response result"),
			rpcerr.CategoryDecoding, rpcerr.CodeInvalidParams,
			map[string]interface{}{"id": raw.ID},
		)
	}
	return out, nil
}
