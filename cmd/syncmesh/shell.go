package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dep2p/go-syncmesh"
	"github.com/dep2p/go-syncmesh/internal/library"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var (
	errUsage       = errors.New("用法错误")
	errUnknownPeer = errors.New("未知节点")
	errQuit        = errors.New("quit")
)

// peerNode shell 需要的节点能力，由 *syncmesh.Node 实现
type peerNode interface {
	library.Requester
	ID() types.PeerID
	Peers() []syncmesh.PeerRecord
	Members(lib types.LibraryID) []types.PeerID
}

// shell 交互命令解释器
type shell struct {
	store *library.Store
	node  peerNode
	out   io.Writer
}

func newShell(store *library.Store, node peerNode, out io.Writer) *shell {
	return &shell{store: store, node: node, out: out}
}

const helpText = `命令:
  id                                   显示本节点 ID
  peers                                列出已发现的节点
  libs                                 列出本地 library
  create <name> [description]          创建 library
  join <peer> <library>                从 peer 获取 library 信息并加入，随后拉取历史
  members <library>                    列出持有 library 的远端节点
  set <library> <model> <record> <field> <value>
  del <library> <model> <record>
  get <library> <model> <record> <field>
  show <library>                       显示全部字段
  pull <peer> <library>                从 peer 拉取缺失的操作
  ping <peer>
  quit
`

// Run 逐行执行命令，直到输入结束、quit 或 ctx 取消
func (s *shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	s.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := s.Exec(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(s.out, "错误: %v\n", err)
			}
			s.prompt()
		}
	}
}

func (s *shell) prompt() {
	fmt.Fprint(s.out, "> ")
}

// Exec 执行一条命令
func (s *shell) Exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprint(s.out, helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "id":
		fmt.Fprintln(s.out, s.node.ID())
		return nil
	case "peers":
		return s.peers()
	case "libs":
		return s.libs()
	case "create":
		if len(args) < 1 {
			return errUsage
		}
		info := s.store.Create(args[0], strings.Join(args[1:], " "))
		fmt.Fprintln(s.out, info.ID)
		return nil
	case "join":
		if len(args) != 2 {
			return errUsage
		}
		return s.join(ctx, args[0], args[1])
	case "members":
		if len(args) != 1 {
			return errUsage
		}
		return s.members(args[0])
	case "set":
		if len(args) < 5 {
			return errUsage
		}
		return s.set(ctx, args[0], args[1], args[2], args[3], strings.Join(args[4:], " "))
	case "del":
		if len(args) != 3 {
			return errUsage
		}
		return s.del(ctx, args[0], args[1], args[2])
	case "get":
		if len(args) != 4 {
			return errUsage
		}
		return s.get(args[0], args[1], args[2], args[3])
	case "show":
		if len(args) != 1 {
			return errUsage
		}
		return s.show(args[0])
	case "pull":
		if len(args) != 2 {
			return errUsage
		}
		return s.pull(ctx, args[0], args[1])
	case "ping":
		if len(args) != 1 {
			return errUsage
		}
		return s.ping(ctx, args[0])
	default:
		return fmt.Errorf("未知命令 %q，输入 help 查看帮助", cmd)
	}
}

// ============================================================================
//                              命令实现
// ============================================================================

func (s *shell) peers() error {
	for _, p := range s.node.Peers() {
		name := p.Metadata.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(s.out, "%s  %-12s %-16s %s\n", p.ID, p.State, name, strings.Join(p.Addrs, ","))
	}
	return nil
}

func (s *shell) libs() error {
	for _, info := range s.store.Libraries() {
		fmt.Fprintf(s.out, "%s  %s  %s\n", info.ID, info.Name, info.Description)
	}
	return nil
}

func (s *shell) join(ctx context.Context, peerArg, libArg string) error {
	peer, err := s.resolvePeer(peerArg)
	if err != nil {
		return err
	}
	lib, err := types.ParseLibraryID(libArg)
	if err != nil {
		return err
	}
	resp, err := s.node.Request(ctx, peer, types.GetLibraryRequest(lib))
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if resp.Library == nil {
		return fmt.Errorf("%w: %s", library.ErrUnexpectedResponse, resp.Kind)
	}
	if err := s.store.Join(*resp.Library); err != nil {
		return err
	}
	n, err := s.store.Pull(ctx, s.node, peer, lib)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "已加入 %s，拉取 %d 条操作\n", resp.Library.Name, n)
	return nil
}

func (s *shell) members(libArg string) error {
	lib, err := types.ParseLibraryID(libArg)
	if err != nil {
		return err
	}
	for _, p := range s.node.Members(lib) {
		fmt.Fprintln(s.out, p)
	}
	return nil
}

func (s *shell) set(ctx context.Context, libArg, model, record, field, value string) error {
	lib, err := types.ParseLibraryID(libArg)
	if err != nil {
		return err
	}
	_, err = s.store.Set(ctx, lib, model, []byte(record), field, []byte(value))
	return err
}

func (s *shell) del(ctx context.Context, libArg, model, record string) error {
	lib, err := types.ParseLibraryID(libArg)
	if err != nil {
		return err
	}
	_, err = s.store.Delete(ctx, lib, model, []byte(record))
	return err
}

func (s *shell) get(libArg, model, record, field string) error {
	lib, err := types.ParseLibraryID(libArg)
	if err != nil {
		return err
	}
	v, ok := s.store.Get(lib, model, []byte(record), field)
	if !ok {
		fmt.Fprintln(s.out, "(nil)")
		return nil
	}
	fmt.Fprintln(s.out, string(v))
	return nil
}

func (s *shell) show(libArg string) error {
	lib, err := types.ParseLibraryID(libArg)
	if err != nil {
		return err
	}
	snap := s.store.Snapshot(lib)
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(s.out, "%s = %s\n", k, snap[k])
	}
	return nil
}

func (s *shell) pull(ctx context.Context, peerArg, libArg string) error {
	peer, err := s.resolvePeer(peerArg)
	if err != nil {
		return err
	}
	lib, err := types.ParseLibraryID(libArg)
	if err != nil {
		return err
	}
	n, err := s.store.Pull(ctx, s.node, peer, lib)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "拉取 %d 条操作\n", n)
	return nil
}

func (s *shell) ping(ctx context.Context, peerArg string) error {
	peer, err := s.resolvePeer(peerArg)
	if err != nil {
		return err
	}
	if _, err := s.node.Request(ctx, peer, types.PingRequest()); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "pong")
	return nil
}

// resolvePeer 接受完整 ID 或已发现节点 ID 的唯一前缀
func (s *shell) resolvePeer(arg string) (types.PeerID, error) {
	if id, err := types.ParsePeerID(arg); err == nil {
		return id, nil
	}
	var match []types.PeerID
	for _, p := range s.node.Peers() {
		if strings.HasPrefix(p.ID.String(), arg) {
			match = append(match, p.ID)
		}
	}
	if len(match) != 1 {
		return types.PeerID{}, fmt.Errorf("%w: %s", errUnknownPeer, arg)
	}
	return match[0], nil
}
