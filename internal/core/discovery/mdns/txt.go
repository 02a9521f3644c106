package mdns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dep2p/go-syncmesh/pkg/types"
)

const (
	maxTXTLen = 255
	keyID     = "id"
	keyAddrs  = "addrs"
)

// buildTXT 构建 TXT 记录，单条不超过 255 字节
//
// 地址分片写入多条 addrs=，解析端聚合。
func buildTXT(id types.PeerID, addrs []string, md types.PeerMetadata) []string {
	txt := []string{keyID + "=" + id.String()}

	fields := md.ToTXT()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		entry := k + "=" + fields[k]
		if len(entry) > maxTXTLen {
			entry = entry[:maxTXTLen]
		}
		txt = append(txt, entry)
	}

	const prefix = keyAddrs + "="
	cur := prefix
	for _, a := range addrs {
		if a == "" || len(prefix)+len(a) > maxTXTLen {
			continue
		}
		next := a
		if cur != prefix {
			next = "," + a
		}
		if len(cur)+len(next) > maxTXTLen {
			txt = append(txt, cur)
			cur, next = prefix, a
		}
		cur += next
	}
	if cur != prefix {
		txt = append(txt, cur)
	}
	return txt
}

// parseTXT 解析 TXT 记录
func parseTXT(fields []string) (types.DiscoveredPeer, error) {
	var peer types.DiscoveredPeer
	kv := make(map[string]string, len(fields))
	seen := make(map[string]struct{})

	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch k {
		case keyID:
			id, err := types.ParsePeerID(v)
			if err != nil {
				return peer, fmt.Errorf("mdns: parse id: %w", err)
			}
			peer.ID = id
		case keyAddrs:
			for _, a := range strings.Split(v, ",") {
				if a == "" {
					continue
				}
				if _, dup := seen[a]; dup {
					continue
				}
				seen[a] = struct{}{}
				peer.Addrs = append(peer.Addrs, a)
			}
		default:
			kv[k] = v
		}
	}
	if peer.ID.IsEmpty() {
		return peer, ErrMissingID
	}
	if md, err := types.MetadataFromTXT(kv); err == nil {
		peer.Metadata = md
	}
	return peer, nil
}
