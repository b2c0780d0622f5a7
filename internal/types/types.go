// Package types 网关共享领域类型
package types

import "time"

// CommandType 命令类型
type CommandType string

const (
	CommandStatus  CommandType = "status"
	CommandOpen    CommandType = "open"
	CommandClose   CommandType = "close"
	CommandSetRisk CommandType = "set-risk"
	CommandPause   CommandType = "pause"
	CommandResume  CommandType = "resume"
	CommandPanic   CommandType = "panic"
)

// KnownCommandType 判断命令类型是否合法
func KnownCommandType(t CommandType) bool {
	switch t {
	case CommandStatus, CommandOpen, CommandClose, CommandSetRisk,
		CommandPause, CommandResume, CommandPanic:
		return true
	default:
		return false
	}
}

// Side 订单方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Channel 命令来源渠道
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelDiscord  Channel = "discord"
	ChannelIMessage Channel = "imessage"
	ChannelSystem   Channel = "system"
)

// KnownChannel 判断渠道是否合法
func KnownChannel(c Channel) bool {
	switch c {
	case ChannelTelegram, ChannelDiscord, ChannelIMessage, ChannelSystem:
		return true
	default:
		return false
	}
}

// Decision 命令决策
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionBlocked  Decision = "blocked"
	DecisionExecuted Decision = "executed"
	DecisionFailed   Decision = "failed"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderSubmitted       OrderStatus = "submitted"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderRejected        OrderStatus = "rejected"
	OrderExpired         OrderStatus = "expired"
	OrderClosed          OrderStatus = "closed"
)

// KnownOrderStatus 判断订单状态是否合法
func KnownOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderSubmitted, OrderPartiallyFilled, OrderFilled,
		OrderCancelled, OrderRejected, OrderExpired, OrderClosed:
		return true
	default:
		return false
	}
}

// PositionStatus 持仓状态
type PositionStatus string

const (
	PositionOpen            PositionStatus = "open"
	PositionPartiallyClosed PositionStatus = "partially_closed"
	PositionClosed          PositionStatus = "closed"
)

// KnownPositionStatus 判断持仓状态是否合法
func KnownPositionStatus(s PositionStatus) bool {
	switch s {
	case PositionOpen, PositionPartiallyClosed, PositionClosed:
		return true
	default:
		return false
	}
}

// Validation 渠道解析结果记录
type Validation struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
	Source string   `json:"source,omitempty"`
}

// Requester 上游请求者身份（聊天渠道）
type Requester struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Audit 入口审计元数据
type Audit struct {
	Ingress    string     `json:"ingress"`
	ReceivedAt time.Time  `json:"receivedAt"`
	UpdateID   int64      `json:"updateId,omitempty"`
	MessageID  int64      `json:"messageId,omitempty"`
	ChatID     string     `json:"chatId,omitempty"`
	RawText    string     `json:"rawText,omitempty"`
	Requester  *Requester `json:"requester,omitempty"`
}

// Command 准入后的规范命令（入队即此 JSON 形态）
//
// 账户快照字段（余额、净值、当日交易数、持仓数）只供风控评估使用，
// 用指针区分“未提供”与零值。
type Command struct {
	ID                string      `json:"id"`
	Type              CommandType `json:"type"`
	AccountID         string      `json:"accountId,omitempty"`
	Symbol            string      `json:"symbol,omitempty"`
	Side              Side        `json:"side,omitempty"`
	Size              float64     `json:"size,omitempty"`
	StopLoss          float64     `json:"sl,omitempty"`
	TakeProfit        float64     `json:"tp,omitempty"`
	AccountBalanceUSD *float64    `json:"accountBalanceUsd,omitempty"`
	AccountEquityUSD  *float64    `json:"accountEquityUsd,omitempty"`
	TradesToday       *int        `json:"tradesToday,omitempty"`
	OpenPositions     *int        `json:"openPositions,omitempty"`
	Actor             string      `json:"actor"`
	Channel           Channel     `json:"channel"`
	Validation        *Validation `json:"validation,omitempty"`
	Audit             *Audit      `json:"audit,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// CommandDraft 渠道归一化后的命令草稿（未分配 ID 与时间戳）
type CommandDraft struct {
	Type              CommandType `json:"type"`
	AccountID         string      `json:"accountId,omitempty"`
	Symbol            string      `json:"symbol,omitempty"`
	Side              Side        `json:"side,omitempty"`
	Size              float64     `json:"size,omitempty"`
	StopLoss          float64     `json:"sl,omitempty"`
	TakeProfit        float64     `json:"tp,omitempty"`
	AccountBalanceUSD *float64    `json:"accountBalanceUsd,omitempty"`
	AccountEquityUSD  *float64    `json:"accountEquityUsd,omitempty"`
	TradesToday       *int        `json:"tradesToday,omitempty"`
	OpenPositions     *int        `json:"openPositions,omitempty"`
	Actor             string      `json:"actor"`
	Channel           Channel     `json:"channel"`
	Validation        *Validation `json:"validation,omitempty"`
	Audit             *Audit      `json:"audit,omitempty"`
}

// CommandRecord 审计表中的命令行
type CommandRecord struct {
	ID             string      `json:"id"`
	AccountID      string      `json:"accountId,omitempty"`
	Type           CommandType `json:"type"`
	Actor          string      `json:"actor"`
	Channel        Channel     `json:"channel"`
	Decision       Decision    `json:"decision"`
	DecisionReason string      `json:"decisionReason,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Order 执行单元
type Order struct {
	ID                 string      `json:"id"`
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
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// Fill 成交回报，deal_id 为幂等键
type Fill struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	DealID     string    `json:"dealId"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	FilledAt   time.Time `json:"filledAt"`
	Side       *Side     `json:"side,omitempty"`
	Fee        *float64  `json:"fee,omitempty"`
	Commission *float64  `json:"commission,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Position 持仓聚合
type Position struct {
	ID                 string         `json:"id"`
	AccountID          string         `json:"accountId"`
	OrderID            string         `json:"orderId"`
	Symbol             string         `json:"symbol"`
	Side               Side           `json:"side"`
	Status             PositionStatus `json:"status"`
	ExecutorPositionID *string        `json:"executorPositionId,omitempty"`
	OpenedAt           time.Time      `json:"openedAt"`
	ClosedAt           *time.Time     `json:"closedAt,omitempty"`
	AvgEntryPrice      float64        `json:"avgEntryPrice"`
	AvgExitPrice       *float64       `json:"avgExitPrice,omitempty"`
	SizeOpened         float64        `json:"sizeOpened"`
	SizeClosed         float64        `json:"sizeClosed"`
	RealizedPnl        *float64       `json:"realizedPnl,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}
