package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luminatrade/gateway/internal/repository"
	"github.com/luminatrade/gateway/internal/types"
)

// seqIDs 递增 ID 生成器，便于断言
type seqIDs struct {
	prefix string
	n      int
}

func (s *seqIDs) NextID() string {
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

// insertedCommand 记录一次审计写入
type insertedCommand struct {
	cmd      *types.Command
	decision types.Decision
	reason   string
}

// mockCommandStore 命令审计写入桩
type mockCommandStore struct {
	inserted []insertedCommand
	err      error
}

func (m *mockCommandStore) InsertCommand(ctx context.Context, cmd *types.Command, decision types.Decision, reason string) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, insertedCommand{cmd: cmd, decision: decision, reason: reason})
	return nil
}

// mockPublisher 队列发布桩
type mockPublisher struct {
	published []*types.Command
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, cmd *types.Command) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, cmd)
	return nil
}

// memLedger 内存账本。合并语义复用 Merge* 纯函数，
// 与 Postgres 仓储的 ON CONFLICT 子句保持同一行为。
type memLedger struct {
	mu        sync.Mutex
	commands  map[string]*types.CommandRecord
	orders    map[string]*types.Order
	fills     map[string]*types.Fill // key 为 deal_id
	positions map[string]*types.Position
	now       time.Time
	err       error
}

func newMemLedger() *memLedger {
	return &memLedger{
		commands:  make(map[string]*types.CommandRecord),
		orders:    make(map[string]*types.Order),
		fills:     make(map[string]*types.Fill),
		positions: make(map[string]*types.Position),
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memLedger) seedCommand(id string) {
	m.commands[id] = &types.CommandRecord{ID: id, Decision: types.DecisionAccepted}
}

func (m *memLedger) UpdateDecision(ctx context.Context, patch *types.CommandPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec, ok := m.commands[patch.ID]
	if !ok {
		return repository.ErrCommandNotFound
	}
	if patch.Decision != nil {
		rec.Decision = *patch.Decision
	}
	rec.DecisionReason = ""
	if patch.DecisionReason != nil {
		rec.DecisionReason = *patch.DecisionReason
	}
	return nil
}

func (m *memLedger) FindOrderID(ctx context.Context, commandID, executorOrderID, clientOrderID *string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if id := m.findOrderBy(func(o *types.Order) *string { return o.CommandID }, commandID); id != "" {
		return id, nil
	}
	if id := m.findOrderBy(func(o *types.Order) *string { return o.ExecutorOrderID }, executorOrderID); id != "" {
		return id, nil
	}
	if id := m.findOrderBy(func(o *types.Order) *string { return o.ClientOrderID }, clientOrderID); id != "" {
		return id, nil
	}
	return "", nil
}

func (m *memLedger) findOrderBy(field func(*types.Order) *string, want *string) string {
	if want == nil || *want == "" {
		return ""
	}
	for id, o := range m.orders {
		if v := field(o); v != nil && *v == *want {
			return id
		}
	}
	return ""
}

func (m *memLedger) UpsertOrder(ctx context.Context, id string, p *types.OrderPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders[id] = MergeOrder(m.orders[id], id, p, m.now)
	return nil
}

func (m *memLedger) UpsertFill(ctx context.Context, id, orderID string, p *types.FillPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.fills[p.DealID] = MergeFill(m.fills[p.DealID], id, orderID, p, m.now)
	return nil
}

func (m *memLedger) FindPositionID(ctx context.Context, executorPositionID *string, orderID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if executorPositionID != nil && *executorPositionID != "" {
		for id, p := range m.positions {
			if p.ExecutorPositionID != nil && *p.ExecutorPositionID == *executorPositionID {
				return id, nil
			}
		}
	}
	for id, p := range m.positions {
		if p.OrderID == orderID {
			return id, nil
		}
	}
	return "", nil
}

func (m *memLedger) UpsertPosition(ctx context.Context, id, orderID string, p *types.PositionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.positions[id] = MergePosition(m.positions[id], id, orderID, p, m.now)
	return nil
}
