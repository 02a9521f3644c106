package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testOperation() types.Operation {
	return types.Operation{
		ID:        types.NewOperationID(),
		Library:   types.NewLibraryID(),
		Actor:     types.NewActorID(),
		Timestamp: types.NewTimestamp(1_700_000_000_000, 3),
		Model:     "tag",
		Record:    []byte("rec-1"),
		Kind:      types.OpUpdate,
		Field:     "name",
		Value:     []byte(`"holiday"`),
		PublicKey: bytes.Repeat([]byte{7}, 32),
		Signature: bytes.Repeat([]byte{9}, 64),
	}
}

// ============================================================================
//                              往返
// ============================================================================

func TestRequest_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	lib := types.NewLibraryID()

	reqs := []types.Request{
		types.PingRequest(),
		types.GetLibraryRequest(lib),
		types.ListLibrariesRequest(),
		types.GetOperationsRequest(lib, types.NewTimestamp(42, 1), 100),
		types.GetOperationsAfterRequest(lib, types.Cursor{
			Timestamp: types.NewTimestamp(42, 1),
			Actor:     types.NewActorID(),
			ID:        types.NewOperationID(),
		}, 100),
	}
	for _, req := range reqs {
		t.Run(req.Kind.String(), func(t *testing.T) {
			raw, err := c.EncodeRequest(req)
			require.NoError(t, err)
			require.NotEmpty(t, raw)

			got, err := c.DecodeRequest(raw)
			require.NoError(t, err)
			assert.Equal(t, req, got)
		})
	}
}

func TestResponse_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	info := types.LibraryInfo{ID: types.NewLibraryID(), Name: "photos", Description: "family", InstanceCount: 3}

	resps := []types.Response{
		types.LibraryResponse(info),
		types.LibrariesResponse([]types.LibraryInfo{info, {ID: types.NewLibraryID(), Name: "docs"}}),
		types.OperationsResponse([]types.Operation{testOperation(), testOperation()}),
		types.ErrorResponse(types.ErrCodeNotFound, "no such library"),
	}
	for _, resp := range resps {
		t.Run(resp.Kind.String(), func(t *testing.T) {
			raw, err := c.EncodeResponse(resp)
			require.NoError(t, err)
			require.NotEmpty(t, raw)

			got, err := c.DecodeResponse(raw)
			require.NoError(t, err)
			assert.Equal(t, resp, got)
		})
	}
}

func TestResponseNone_IsEmptyPayload(t *testing.T) {
	c := newTestCodec(t)

	raw, err := c.EncodeResponse(types.NoneResponse())
	require.NoError(t, err)
	assert.NotNil(t, raw)
	assert.Len(t, raw, 0)

	got, err := c.DecodeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, types.NoneResponse(), got)
}

func TestOperation_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	op := testOperation()

	raw, err := c.EncodeOperation(op)
	require.NoError(t, err)

	got, err := c.DecodeOperation(raw)
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestOperation_Compressed(t *testing.T) {
	c := newTestCodec(t, WithCompressThreshold(64))
	op := testOperation()
	op.Value = bytes.Repeat([]byte("abcdefgh"), 1024)

	raw, err := c.EncodeOperation(op)
	require.NoError(t, err)
	assert.Less(t, len(raw), len(op.Value))

	got, err := c.DecodeOperation(raw)
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

// ============================================================================
//                              错误路径
// ============================================================================

func TestDecode_Empty(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.DecodeRequest(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.True(t, IsProtocolError(err))

	_, err = c.DecodeOperation([]byte{})
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestDecode_Garbage(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.DecodeRequest([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "request", de.Op)
}

func TestDecode_WrongKind(t *testing.T) {
	c := newTestCodec(t)

	raw, err := c.EncodeOperation(testOperation())
	require.NoError(t, err)

	_, err = c.DecodeRequest(raw)
	assert.ErrorIs(t, err, ErrUnexpectedKind)
}

func TestDecode_UnknownVariant(t *testing.T) {
	c := newTestCodec(t)

	raw := appendEnvelope(nil, &header{kind: KindRequest, variant: 99})
	_, err := c.DecodeRequest(raw)
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	c := newTestCodec(t)

	var raw []byte
	raw = protowire.AppendTag(raw, fieldVersion, protowire.VarintType)
	raw = protowire.AppendVarint(raw, 2)
	raw = protowire.AppendTag(raw, fieldKind, protowire.VarintType)
	raw = protowire.AppendVarint(raw, uint64(KindRequest))

	_, err := c.DecodeRequest(raw)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecode_UnknownKind(t *testing.T) {
	c := newTestCodec(t)

	raw := appendEnvelope(nil, &header{kind: Kind(42)})
	_, _, _, err := Peek(raw)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = c.DecodeResponse(raw)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDecode_SkipsUnknownFields(t *testing.T) {
	c := newTestCodec(t)

	raw, err := c.EncodeRequest(types.PingRequest())
	require.NoError(t, err)
	raw = protowire.AppendTag(raw, 15, protowire.BytesType)
	raw = protowire.AppendBytes(raw, []byte("future"))

	got, err := c.DecodeRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, types.RequestPing, got.Kind)
}

func TestDecode_LibraryMismatch(t *testing.T) {
	c := newTestCodec(t)
	op := testOperation()

	body, err := encMode.Marshal(op)
	require.NoError(t, err)
	raw := appendEnvelope(nil, &header{kind: KindOperation, library: types.NewLibraryID(), hasLibrary: true, body: body})

	_, err = c.DecodeOperation(raw)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecode_TooLarge(t *testing.T) {
	c := newTestCodec(t, WithMaxMessageSize(128), WithCompressThreshold(0))

	op := testOperation()
	op.Value = make([]byte, 512)
	_, err := c.EncodeOperation(op)
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	_, err = c.DecodeRequest(make([]byte, 256))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestDecode_ErrorResponseWithoutBody(t *testing.T) {
	c := newTestCodec(t)

	raw := appendEnvelope(nil, &header{kind: KindResponse, variant: uint64(types.ResponseError)})
	_, err := c.DecodeResponse(raw)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestEncode_InvalidVariant(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.EncodeRequest(types.Request{Kind: 0})
	assert.ErrorIs(t, err, ErrEncode)
	assert.False(t, IsProtocolError(err))
}

// ============================================================================
//                              头部与签名
// ============================================================================

func TestPeek(t *testing.T) {
	c := newTestCodec(t)
	op := testOperation()

	raw, err := c.EncodeOperation(op)
	require.NoError(t, err)

	kind, lib, ok, err := Peek(raw)
	require.NoError(t, err)
	assert.Equal(t, KindOperation, kind)
	assert.True(t, ok)
	assert.Equal(t, op.Library, lib)

	ping, err := c.EncodeRequest(types.PingRequest())
	require.NoError(t, err)
	rk, err := PeekRequestKind(ping)
	require.NoError(t, err)
	assert.Equal(t, types.RequestPing, rk)

	_, err = PeekRequestKind(raw)
	assert.ErrorIs(t, err, ErrUnexpectedKind)
}

func TestSigningBytes_ExcludesSignature(t *testing.T) {
	op := testOperation()

	a, err := SigningBytes(op)
	require.NoError(t, err)

	op.Signature = []byte("different")
	op.PublicKey = nil
	b, err := SigningBytes(op)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	op.Value = []byte("changed")
	c, err := SigningBytes(op)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
