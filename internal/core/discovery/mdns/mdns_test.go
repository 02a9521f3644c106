package mdns

import (
	"net"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

func testPeerID(b byte) types.PeerID {
	var id types.PeerID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestTXT_RoundTrip(t *testing.T) {
	id := testPeerID(3)
	os := types.OSLinux
	ver := "0.1.0"
	md := types.PeerMetadata{Name: "laptop", OS: &os, Version: &ver}

	txt := buildTXT(id, []string{"10.0.0.2:4001", "192.168.1.5:4001"}, md)
	for _, r := range txt {
		assert.LessOrEqual(t, len(r), maxTXTLen)
	}

	peer, err := parseTXT(txt)
	require.NoError(t, err)
	assert.Equal(t, id, peer.ID)
	assert.Equal(t, []string{"10.0.0.2:4001", "192.168.1.5:4001"}, peer.Addrs)
	assert.Equal(t, "laptop", peer.Metadata.Name)
	require.NotNil(t, peer.Metadata.OS)
	assert.Equal(t, types.OSLinux, *peer.Metadata.OS)
}

func TestTXT_SplitsLongAddrList(t *testing.T) {
	var addrs []string
	for i := 0; i < 40; i++ {
		addrs = append(addrs, net.JoinHostPort("192.168.100."+strings.Repeat("1", 1+i%3), "40001"))
	}
	txt := buildTXT(testPeerID(1), addrs, types.PeerMetadata{Name: "n"})

	chunks := 0
	for _, r := range txt {
		assert.LessOrEqual(t, len(r), maxTXTLen)
		if strings.HasPrefix(r, keyAddrs+"=") {
			chunks++
		}
	}
	assert.Greater(t, chunks, 1)

	peer, err := parseTXT(txt)
	require.NoError(t, err)
	assert.Len(t, peer.Addrs, 3)
}

func TestParseTXT_MissingID(t *testing.T) {
	_, err := parseTXT([]string{"name=x", "addrs=1.2.3.4:5"})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestDynamicZone_RegeneratesTXT(t *testing.T) {
	name := "first"
	zone := &dynamicZone{
		instance: "node",
		service:  "_syncmesh._udp",
		domain:   "local.",
		port:     4001,
		ips:      []net.IP{net.IPv4(10, 0, 0, 1)},
		txt: func() []string {
			return buildTXT(testPeerID(2), []string{"10.0.0.1:4001"}, types.PeerMetadata{Name: name})
		},
	}
	q := dns.Question{Name: "node._syncmesh._udp.local.", Qtype: dns.TypeTXT, Qclass: dns.ClassINET}

	txtOf := func() []string {
		for _, rr := range zone.Records(q) {
			if r, ok := rr.(*dns.TXT); ok {
				return r.Txt
			}
		}
		return nil
	}

	assert.Contains(t, txtOf(), "name=first")
	name = "second"
	assert.Contains(t, txtOf(), "name=second")
}

func TestAdvertisedAddrs(t *testing.T) {
	ips := []net.IP{net.IPv4(10, 0, 0, 1), net.IPv4(192, 168, 0, 2)}
	got := advertisedAddrs([]string{"0.0.0.0:4001", "10.0.0.9:5000"}, ips)
	assert.Equal(t, []string{"10.0.0.1:4001", "192.168.0.2:4001", "10.0.0.9:5000"}, got)
	assert.Equal(t, 4001, inferPort([]string{"bad", "0.0.0.0:4001"}))
	assert.Equal(t, 0, inferPort([]string{"0.0.0.0:0"}))
}
