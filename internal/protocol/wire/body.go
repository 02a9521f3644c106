package wire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

// 确定性编码：相同的值总是产生相同的字节，签名依赖这一点
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.CoreDetEncOptions()
	encOpts.ByteArray = cbor.ByteArrayToByteSlice
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("wire: CBOR decoder initialization failed: " + err.Error())
	}
}

type requestBody struct {
	Since types.Timestamp `cbor:"since,omitempty"`
	After *types.Cursor   `cbor:"after,omitempty"`
	Limit uint32          `cbor:"limit,omitempty"`
}

type responseBody struct {
	Library    *types.LibraryInfo  `cbor:"library,omitempty"`
	Libraries  []types.LibraryInfo `cbor:"libraries,omitempty"`
	Operations []types.Operation   `cbor:"operations,omitempty"`
	Error      *types.ErrorInfo    `cbor:"error,omitempty"`
}
