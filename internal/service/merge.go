package service

import (
	"time"

	"github.com/luminatrade/gateway/internal/types"
)

// 合并策略的纯函数形态。Postgres 仓储里的 ON CONFLICT ... COALESCE 子句
// 必须与这里逐字段一致；内存账本（测试用）直接调用这些函数。

// MergeOrder 订单合并。
//
// 外部标识（clientOrderId / executorOrderId / executorPositionId）、commandId
// 与 openedAt 由不同上游各赋值一次，入参缺失时保留既有值；其余字段反映
// 执行器当前真相，一律取入参。
func MergeOrder(existing *types.Order, id string, p *types.OrderPatch, now time.Time) *types.Order {
	merged := &types.Order{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		merged.ID = existing.ID
		merged.CreatedAt = existing.CreatedAt
	}

	merged.AccountID = p.AccountID
	merged.Symbol = p.Symbol
	merged.Side = p.Side
	merged.Size = p.Size
	merged.StopLoss = p.StopLoss
	merged.TakeProfit = p.TakeProfit
	merged.Status = p.Status
	merged.ClosedAt = p.ClosedAt
	merged.CloseReason = p.CloseReason

	merged.CommandID = coalesceString(p.CommandID, existingOrder(existing).CommandID)
	merged.ClientOrderID = coalesceString(p.ClientOrderID, existingOrder(existing).ClientOrderID)
	merged.ExecutorOrderID = coalesceString(p.ExecutorOrderID, existingOrder(existing).ExecutorOrderID)
	merged.ExecutorPositionID = coalesceString(p.ExecutorPositionID, existingOrder(existing).ExecutorPositionID)
	merged.OpenedAt = coalesceTime(p.OpenedAt, existingOrder(existing).OpenedAt)

	return merged
}

// MergeFill 成交合并：deal id 与行 ID 不变，其余字段取入参。
func MergeFill(existing *types.Fill, id, orderID string, p *types.FillPatch, now time.Time) *types.Fill {
	merged := &types.Fill{
		ID:        id,
		DealID:    p.DealID,
		CreatedAt: now,
	}
	if existing != nil {
		merged.ID = existing.ID
		merged.CreatedAt = existing.CreatedAt
	}

	merged.OrderID = orderID
	merged.Price = p.Price
	merged.Volume = p.Volume
	merged.FilledAt = p.FilledAt
	merged.Side = p.Side
	merged.Fee = p.Fee
	merged.Commission = p.Commission

	return merged
}

// MergePosition 持仓合并：既有 executorPositionId 在入参缺失时保留，
// sizeClosed 缺失按 0 计，其余字段取入参。
func MergePosition(existing *types.Position, id, orderID string, p *types.PositionPatch, now time.Time) *types.Position {
	merged := &types.Position{
		ID:        id,
		CreatedAt: now,
	}
	if existing != nil {
		merged.ID = existing.ID
		merged.CreatedAt = existing.CreatedAt
	}

	merged.AccountID = p.AccountID
	merged.OrderID = orderID
	merged.Symbol = p.Symbol
	merged.Side = p.Side
	merged.Status = p.Status
	merged.OpenedAt = p.OpenedAt
	merged.ClosedAt = p.ClosedAt
	merged.AvgEntryPrice = p.AvgEntryPrice
	merged.AvgExitPrice = p.AvgExitPrice
	merged.SizeOpened = p.SizeOpened
	merged.RealizedPnl = p.RealizedPnl
	merged.UpdatedAt = now

	merged.SizeClosed = 0
	if p.SizeClosed != nil {
		merged.SizeClosed = *p.SizeClosed
	}

	var existingExecID *string
	if existing != nil {
		existingExecID = existing.ExecutorPositionID
	}
	merged.ExecutorPositionID = coalesceString(p.ExecutorPositionID, existingExecID)

	return merged
}

var emptyOrder types.Order

func existingOrder(o *types.Order) *types.Order {
	if o == nil {
		return &emptyOrder
	}
	return o
}

func coalesceString(incoming, current *string) *string {
	if incoming != nil && *incoming != "" {
		return incoming
	}
	return current
}

func coalesceTime(incoming, current *time.Time) *time.Time {
	if incoming != nil {
		return incoming
	}
	return current
}
