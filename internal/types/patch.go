package types

import "time"

// CommandPatch 命令决策更新（只改既有命令，从不创建）
type CommandPatch struct {
	ID             string    `json:"id"`
	Decision       *Decision `json:"decision,omitempty"`
	DecisionReason *string   `json:"decisionReason,omitempty"`
}

// OrderPatch 订单生命周期补丁
//
// 三个外部标识与 openedAt 在合并时保留既有值（coalesce），
// 其余字段以本次上报为准。
type OrderPatch struct {
	ID                 *string     `json:"id,omitempty"`
	AccountID          string      `json:"accountId"`
	CommandID          *string     `json:"commandId,omitempty"`
	Symbol             string      `json:"symbol"`
	Side               Side        `json:"side"`
	Size               float64     `json:"size"`
	StopLoss           *float64    `json:"sl,omitempty"`
	TakeProfit         *float64    `json:"tp,omitempty"`
	Status             OrderStatus `json:"status"`
	ClientOrderID      *string     `json:"clientOrderId,omitempty"`
	ExecutorOrderID    *string     `json:"executorOrderId,omitempty"`
	ExecutorPositionID *string     `json:"executorPositionId,omitempty"`
	OpenedAt           *time.Time  `json:"openedAt,omitempty"`
	ClosedAt           *time.Time  `json:"closedAt,omitempty"`
	CloseReason        *string     `json:"closeReason,omitempty"`
}

// FillPatch 成交补丁，dealId 唯一
type FillPatch struct {
	ID         *string   `json:"id,omitempty"`
	DealID     string    `json:"dealId"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	FilledAt   time.Time `json:"filledAt"`
	Side       *Side     `json:"side,omitempty"`
	Fee        *float64  `json:"fee,omitempty"`
	Commission *float64  `json:"commission,omitempty"`
}

// PositionPatch 持仓补丁
type PositionPatch struct {
	ID                 *string        `json:"id,omitempty"`
	AccountID          string         `json:"accountId"`
	Symbol             string         `json:"symbol"`
	Side               Side           `json:"side"`
	Status             PositionStatus `json:"status"`
	ExecutorPositionID *string        `json:"executorPositionId,omitempty"`
	OpenedAt           time.Time      `json:"openedAt"`
	ClosedAt           *time.Time     `json:"closedAt,omitempty"`
	AvgEntryPrice      float64        `json:"avgEntryPrice"`
	AvgExitPrice       *float64       `json:"avgExitPrice,omitempty"`
	SizeOpened         float64        `json:"sizeOpened"`
	SizeClosed         *float64       `json:"sizeClosed,omitempty"`
	RealizedPnl        *float64       `json:"realizedPnl,omitempty"`
}

// LifecyclePatch 执行器上报的生命周期补丁，至少一个子部分非空
type LifecyclePatch struct {
	Command  *CommandPatch  `json:"command,omitempty"`
	Order    *OrderPatch    `json:"order,omitempty"`
	Fill     *FillPatch     `json:"fill,omitempty"`
	Position *PositionPatch `json:"position,omitempty"`
}

// IsEmpty 补丁是否为空
func (p *LifecyclePatch) IsEmpty() bool {
	return p == nil || (p.Command == nil && p.Order == nil && p.Fill == nil && p.Position == nil)
}
