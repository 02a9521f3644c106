package library

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dep2p/go-syncmesh/internal/util/logger"
	"github.com/dep2p/go-syncmesh/pkg/interfaces"
	"github.com/dep2p/go-syncmesh/pkg/types"
)

var log = logger.Logger("library")

// DefaultIngressBuffer Ingress 通道默认容量
const DefaultIngressBuffer = 1024

// DefaultPageSize GetOperations 未指定 limit 时的默认页大小
const DefaultPageSize = 256

// Option 存储选项
type Option func(*Store)

// WithActor 指定本地写入者
func WithActor(actor types.ActorID) Option {
	return func(s *Store) {
		s.actor = actor
	}
}

// WithNow 指定物理时钟
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.hlc = types.NewHLC(now)
	}
}

// WithIngressBuffer 设置 Ingress 通道容量，0 表示不产生出站操作
func WithIngressBuffer(n int) Option {
	return func(s *Store) {
		s.ingressSize = n
	}
}

// recordRef 记录键；用结构体而不是拼接字符串，各部分可以包含任意字节
type recordRef struct {
	model  string
	record string
}

// fieldRef 字段键
type fieldRef struct {
	recordRef
	field string
}

func refOf(op *types.Operation) fieldRef {
	return fieldRef{recordRef: recordRef{model: op.Model, record: string(op.Record)}, field: op.Field}
}

// String 以引号包裹各部分，不同字段不会得到相同的键
func (f fieldRef) String() string {
	return strconv.Quote(f.model) + "/" + strconv.Quote(f.record) + "/" + strconv.Quote(f.field)
}

// entry 字段值或记录墓碑
type entry struct {
	record recordRef
	value  []byte
	ts     types.Timestamp
	actor  types.ActorID
}

func (e *entry) loses(ts types.Timestamp, actor types.ActorID) bool {
	if ts != e.ts {
		return ts > e.ts
	}
	return bytes.Compare(actor[:], e.actor[:]) > 0
}

type library struct {
	info    types.LibraryInfo
	fields  map[fieldRef]*entry
	deleted map[recordRef]*entry
	applied map[types.OperationID]struct{}
	log     []types.Operation
}

// Store 内存 library 存储，并发安全
type Store struct {
	actor       types.ActorID
	hlc         *types.HLC
	ingressSize int
	ingress     chan types.Ingress

	mu   sync.RWMutex
	libs map[types.LibraryID]*library
}

var _ interfaces.SyncTarget = (*Store)(nil)

// New 创建存储
func New(opts ...Option) *Store {
	s := &Store{
		actor:       types.NewActorID(),
		hlc:         types.NewHLC(nil),
		ingressSize: DefaultIngressBuffer,
		libs:        make(map[types.LibraryID]*library),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ingressSize > 0 {
		s.ingress = make(chan types.Ingress, s.ingressSize)
	}
	return s
}

// Actor 本地写入者
func (s *Store) Actor() types.ActorID {
	return s.actor
}

// Ingress 本地产生的操作，未启用时为 nil
func (s *Store) Ingress() <-chan types.Ingress {
	if s.ingress == nil {
		return nil
	}
	return s.ingress
}

// ============================================================================
//                              library 管理
// ============================================================================

// Create 创建新 library
func (s *Store) Create(name, description string) types.LibraryInfo {
	info := types.LibraryInfo{
		ID:            types.NewLibraryID(),
		Name:          name,
		Description:   description,
		InstanceCount: 1,
	}
	s.mu.Lock()
	s.libs[info.ID] = newLibrary(info)
	s.mu.Unlock()

	log.Info("创建 library", "library", info.ID, "name", name)
	return info
}

// Join 加入已有 library
func (s *Store) Join(info types.LibraryInfo) error {
	if info.ID == types.NilLibraryID {
		return fmt.Errorf("%w: missing library id", types.ErrInvalidOperation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.libs[info.ID]; ok {
		return fmt.Errorf("%w: %s", ErrLibraryExists, info.ID)
	}
	info.InstanceCount++
	s.libs[info.ID] = newLibrary(info)
	log.Info("加入 library", "library", info.ID, "name", info.Name)
	return nil
}

func newLibrary(info types.LibraryInfo) *library {
	return &library{
		info:    info,
		fields:  make(map[fieldRef]*entry),
		deleted: make(map[recordRef]*entry),
		applied: make(map[types.OperationID]struct{}),
	}
}

// ============================================================================
//                              本地写入
// ============================================================================

// Set 写入字段，返回生成的操作
func (s *Store) Set(ctx context.Context, lib types.LibraryID, model string, record []byte, field string, value []byte) (types.Operation, error) {
	return s.write(ctx, lib, model, record, types.OpUpdate, field, value)
}

// Delete 删除记录，返回生成的操作
func (s *Store) Delete(ctx context.Context, lib types.LibraryID, model string, record []byte) (types.Operation, error) {
	return s.write(ctx, lib, model, record, types.OpDelete, "", nil)
}

func (s *Store) write(ctx context.Context, lib types.LibraryID, model string, record []byte, kind types.OpKind, field string, value []byte) (types.Operation, error) {
	op := types.Operation{
		ID:        types.NewOperationID(),
		Library:   lib,
		Actor:     s.actor,
		Timestamp: s.hlc.Now(),
		Model:     model,
		Record:    append([]byte(nil), record...),
		Kind:      kind,
		Field:     field,
		Value:     append([]byte(nil), value...),
	}
	if err := op.Validate(); err != nil {
		return types.Operation{}, err
	}
	if !s.HasLibrary(lib) {
		return types.Operation{}, fmt.Errorf("%w: %s", types.ErrUnknownLibrary, lib)
	}

	// 先入队再提交：返回错误时本地没有发生写入
	if s.ingress != nil {
		select {
		case s.ingress <- types.Ingress{Library: lib, Op: op}:
		case <-ctx.Done():
			return types.Operation{}, ctx.Err()
		}
	}
	if _, err := s.apply(op); err != nil {
		return types.Operation{}, err
	}
	return op, nil
}

// ============================================================================
//                              读取
// ============================================================================

// Get 读取字段
func (s *Store) Get(lib types.LibraryID, model string, record []byte, field string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.libs[lib]
	if !ok {
		return nil, false
	}
	e, ok := l.fields[fieldRef{recordRef: recordRef{model: model, record: string(record)}, field: field}]
	if !ok || l.hidden(e) {
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

// Snapshot library 当前可见的全部字段，键为 "model"/"record"/"field"
func (s *Store) Snapshot(lib types.LibraryID) map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.libs[lib]
	if !ok {
		return nil
	}
	out := make(map[string][]byte, len(l.fields))
	for k, e := range l.fields {
		if l.hidden(e) {
			continue
		}
		out[k.String()] = append([]byte(nil), e.value...)
	}
	return out
}

// Operations library 中时间戳大于 since 的操作，按 (时间戳, actor, id) 排序
func (s *Store) Operations(lib types.LibraryID, since types.Timestamp, limit int) ([]types.Operation, error) {
	return s.selectOps(lib, limit, func(op *types.Operation) bool {
		return op.Timestamp > since
	})
}

// OperationsAfter library 中严格位于 after 之后的操作，按 (时间戳, actor, id) 排序
//
// 游标包含 actor 与 id，同一时间戳上的操作跨页也不会遗漏。
func (s *Store) OperationsAfter(lib types.LibraryID, after types.Cursor, limit int) ([]types.Operation, error) {
	return s.selectOps(lib, limit, func(op *types.Operation) bool {
		return after.Less(op.Cursor())
	})
}

func (s *Store) selectOps(lib types.LibraryID, limit int, keep func(*types.Operation) bool) ([]types.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.libs[lib]
	if !ok {
		return nil, types.ErrUnknownLibrary
	}
	var out []types.Operation
	for i := range l.log {
		if keep(&l.log[i]) {
			out = append(out, l.log[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Cursor().Less(out[j].Cursor())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Latest library 中最大的操作时间戳
func (s *Store) Latest(lib types.LibraryID) types.Timestamp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ts types.Timestamp
	if l, ok := s.libs[lib]; ok {
		for _, op := range l.log {
			if op.Timestamp > ts {
				ts = op.Timestamp
			}
		}
	}
	return ts
}

// ============================================================================
//                              SyncTarget
// ============================================================================

// Handle 实现 SyncTarget
func (s *Store) Handle(_ context.Context, rc interfaces.RequestContext, req types.Request) (types.Response, error) {
	switch req.Kind {
	case types.RequestGetLibrary:
		s.mu.RLock()
		l, ok := s.libs[req.Library]
		s.mu.RUnlock()
		if !ok {
			return types.Response{}, types.ErrUnknownLibrary
		}
		return types.LibraryResponse(l.info), nil

	case types.RequestGetOperations:
		limit := int(req.Limit)
		if limit == 0 {
			limit = DefaultPageSize
		}
		var ops []types.Operation
		var err error
		if req.After.IsZero() {
			ops, err = s.Operations(req.Library, req.Since, limit)
		} else {
			ops, err = s.OperationsAfter(req.Library, req.After, limit)
		}
		if err != nil {
			return types.Response{}, err
		}
		log.Debug("应答操作拉取", "from", rc.From.ShortString(), "library", req.Library, "ops", len(ops))
		return types.OperationsResponse(ops), nil

	default:
		return types.Response{}, &types.ErrorInfo{
			Code:    types.ErrCodeBadRequest,
			Message: fmt.Sprintf("%v: %s", ErrUnsupportedRequest, req.Kind),
		}
	}
}

// ApplyOperation 实现 SyncTarget，重复应用同一操作是空操作
func (s *Store) ApplyOperation(_ context.Context, _ types.PeerID, op types.Operation) error {
	_, err := s.ingest(op)
	return err
}

func (s *Store) ingest(op types.Operation) (bool, error) {
	if err := op.Validate(); err != nil {
		return false, err
	}
	s.hlc.Observe(op.Timestamp)
	return s.apply(op)
}

// HasLibrary 实现 SyncTarget
func (s *Store) HasLibrary(lib types.LibraryID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.libs[lib]
	return ok
}

// Libraries 实现 SyncTarget，按名称排序
func (s *Store) Libraries() []types.LibraryInfo {
	s.mu.RLock()
	out := make([]types.LibraryInfo, 0, len(s.libs))
	for _, l := range s.libs {
		out = append(out, l.info)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// ============================================================================
//                              合并
// ============================================================================

// apply 合并一条操作，返回是否为首次应用
func (s *Store) apply(op types.Operation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.libs[op.Library]
	if !ok {
		return false, fmt.Errorf("%w: %s", types.ErrUnknownLibrary, op.Library)
	}
	if _, dup := l.applied[op.ID]; dup {
		return false, nil
	}

	ref := refOf(&op)
	switch op.Kind {
	case types.OpCreate, types.OpUpdate:
		if e, ok := l.fields[ref]; !ok || e.loses(op.Timestamp, op.Actor) {
			l.fields[ref] = &entry{
				record: ref.recordRef,
				value:  append([]byte(nil), op.Value...),
				ts:     op.Timestamp,
				actor:  op.Actor,
			}
		}
	case types.OpDelete:
		if e, ok := l.deleted[ref.recordRef]; !ok || e.loses(op.Timestamp, op.Actor) {
			l.deleted[ref.recordRef] = &entry{ts: op.Timestamp, actor: op.Actor}
		}
	}

	l.applied[op.ID] = struct{}{}
	l.log = append(l.log, op)
	return true, nil
}

// hidden 字段是否被更晚的记录删除遮盖
func (l *library) hidden(e *entry) bool {
	tomb, ok := l.deleted[e.record]
	return ok && !tomb.loses(e.ts, e.actor)
}
