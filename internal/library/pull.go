package library

import (
	"context"
	"fmt"

	"github.com/dep2p/go-syncmesh/internal/protocol/wire"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

// Requester 向对端发送请求，由节点或分发器客户端提供
type Requester interface {
	Request(ctx context.Context, peer types.PeerID, req types.Request) (types.Response, error)
}

// Pull 从 peer 拉取本地缺失的操作并应用，返回新应用的操作数
//
// 每次从日志起点按 (时间戳, actor, id) 游标分页，已有操作由幂等应用跳过，
// 对端早于本地最新写入的操作同样能取到。
//
// 携带签名的操作逐条校验，签名无效时中止。未签名的操作是对端自己写入的记录，
// 由应答方担保，调用方只应向可信节点拉取。
func (s *Store) Pull(ctx context.Context, r Requester, peer types.PeerID, lib types.LibraryID) (int, error) {
	if !s.HasLibrary(lib) {
		return 0, types.ErrUnknownLibrary
	}

	var after types.Cursor
	total := 0
	for {
		resp, err := r.Request(ctx, peer, types.GetOperationsAfterRequest(lib, after, DefaultPageSize))
		if err != nil {
			return total, err
		}
		if err := resp.Err(); err != nil {
			return total, err
		}
		if resp.Kind != types.ResponseOperations {
			return total, fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Kind)
		}

		for _, op := range resp.Operations {
			if op.Library != lib {
				return total, fmt.Errorf("%w: operation for %s", ErrUnexpectedResponse, op.Library)
			}
			if !after.Less(op.Cursor()) {
				return total, fmt.Errorf("%w: operation %s out of order", ErrUnexpectedResponse, op.ID)
			}
			if op.IsSigned() {
				if _, err := wire.VerifyOperation(&op); err != nil {
					return total, fmt.Errorf("library: pull %s: %w", op.ID, err)
				}
			}
			fresh, err := s.ingest(op)
			if err != nil {
				return total, err
			}
			if fresh {
				total++
			}
			after = op.Cursor()
		}
		if len(resp.Operations) < DefaultPageSize {
			break
		}
	}

	log.Debug("拉取完成", "peer", peer.ShortString(), "library", lib, "ops", total)
	return total, nil
}
