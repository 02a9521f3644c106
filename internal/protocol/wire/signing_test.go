package wire

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

type testSigner struct {
	priv ed25519.PrivateKey
}

func newTestSigner(t *testing.T) *testSigner {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &testSigner{priv: priv}
}

func (s *testSigner) PeerID() types.PeerID { return types.PeerIDFromPublicKey(s.PublicKey()) }
func (s *testSigner) PublicKey() []byte    { return s.priv.Public().(ed25519.PublicKey) }
func (s *testSigner) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, data), nil
}

func TestSignVerifyOperation(t *testing.T) {
	signer := newTestSigner(t)
	op := testOperation()
	op.PublicKey, op.Signature = nil, nil

	require.NoError(t, SignOperation(signer, &op))

	from, err := VerifyOperation(&op)
	require.NoError(t, err)
	assert.Equal(t, signer.PeerID(), from)
}

func TestVerifyOperation_SurvivesCodec(t *testing.T) {
	c := newTestCodec(t)
	signer := newTestSigner(t)
	op := testOperation()
	require.NoError(t, SignOperation(signer, &op))

	raw, err := c.EncodeOperation(op)
	require.NoError(t, err)
	got, err := c.DecodeOperation(raw)
	require.NoError(t, err)

	from, err := VerifyOperation(&got)
	require.NoError(t, err)
	assert.Equal(t, signer.PeerID(), from)
}

func TestVerifyOperation_Tampered(t *testing.T) {
	signer := newTestSigner(t)
	op := testOperation()
	require.NoError(t, SignOperation(signer, &op))

	op.Value = []byte("forged")
	_, err := VerifyOperation(&op)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyOperation_Unsigned(t *testing.T) {
	op := testOperation()
	op.PublicKey, op.Signature = nil, nil

	_, err := VerifyOperation(&op)
	assert.ErrorIs(t, err, ErrUnsigned)

	op.PublicKey, op.Signature = []byte{1, 2}, []byte{3}
	_, err = VerifyOperation(&op)
	assert.ErrorIs(t, err, ErrBadSignature)
}
