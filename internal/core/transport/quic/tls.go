package quic

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	"github.com/dep2p/go-syncmesh/internal/core/identity"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// alpn 应用层协议标识
const alpn = "syncmesh/1"

// peerIDExtensionOID 证书扩展中存放节点 ID；仅用于一致性校验，身份以公钥派生为准
var peerIDExtensionOID = []int{1, 3, 6, 1, 4, 1, 53594, 1, 1}

// newTLSConfigs 由节点身份生成服务端与客户端 TLS 配置
func newTLSConfigs(id *identity.Identity) (server, client *tls.Config, err error) {
	cert, err := selfSignedCert(id)
	if err != nil {
		return nil, nil, err
	}

	server = &tls.Config{
		Certificates:          []tls.Certificate{cert},
		NextProtos:            []string{alpn},
		InsecureSkipVerify:    true,
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: verifyPeerCertificate,
		MinVersion:            tls.VersionTLS13,
	}
	client = server.Clone()
	client.ClientAuth = tls.NoClientCert
	return server, client, nil
}

func selfSignedCert(id *identity.Identity) (tls.Certificate, error) {
	priv := id.PrivateKey()
	peerID := id.PeerID()
	now := time.Now()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano()),
		Subject: pkix.Name{
			Organization: []string{"syncmesh"},
			CommonName:   peerID.ShortString(),
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(180 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		ExtraExtensions: []pkix.Extension{
			{Id: peerIDExtensionOID, Value: peerID.Bytes()},
		},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, priv.Public(), priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("quic: create certificate: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}

// verifyPeerCertificate 校验对端证书：Ed25519 公钥、扩展一致、在有效期内
func verifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("%w: no certificate", ErrInvalidCertificate)
	}
	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	derived, err := peerIDFromCert(cert)
	if err != nil {
		return err
	}
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(peerIDExtensionOID) && !bytes.Equal(ext.Value, derived.Bytes()) {
			return fmt.Errorf("%w: extension does not match public key", ErrInvalidCertificate)
		}
	}
	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return fmt.Errorf("%w: outside validity period", ErrInvalidCertificate)
	}
	return nil
}

func peerIDFromCert(cert *x509.Certificate) (types.PeerID, error) {
	pub, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return types.PeerID{}, fmt.Errorf("%w: key type %T", ErrInvalidCertificate, cert.PublicKey)
	}
	return types.PeerIDFromPublicKey(pub), nil
}

// remotePeerID 从握手结果提取对端节点 ID
func remotePeerID(state tls.ConnectionState) (types.PeerID, error) {
	if len(state.PeerCertificates) == 0 {
		return types.PeerID{}, fmt.Errorf("%w: no certificate", ErrInvalidCertificate)
	}
	return peerIDFromCert(state.PeerCertificates[0])
}
