// Package risk 风控闸门：纯函数策略评估
package risk

import (
	"github.com/luminatrade/gateway/internal/types"
)

// 基础拒绝原因
const (
	ReasonInvalidOrderPayload = "invalid_order_payload"
)

// Decision 风控裁决
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow 放行
func Allow() Decision { return Decision{Allowed: true} }

// Deny 拒绝
func Deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Tier 按账户属性条件激活的风控档位
//
// 实现必须是无 I/O 的纯函数，Gate 在注册顺序内依次评估。
type Tier interface {
	Name() string
	Applies(cmd *types.Command) bool
	Evaluate(cmd *types.Command) Decision
}

// Gate 风控闸门。无共享可变状态，可在任意并发度下调用。
type Gate struct {
	tiers []Tier
}

// NewGate 创建闸门，tiers 按评估顺序传入
func NewGate(tiers ...Tier) *Gate {
	return &Gate{tiers: tiers}
}

// Evaluate 评估命令
//
// panic 命令无条件放行（紧急停止通道，任何档位都不得拦截）。
// open 命令缺少 symbol/side/正数 size 时在档位评估前直接拒绝。
func (g *Gate) Evaluate(cmd *types.Command) Decision {
	if cmd.Type == types.CommandPanic {
		return Allow()
	}

	if cmd.Type == types.CommandOpen &&
		(cmd.Symbol == "" || cmd.Side == "" || cmd.Size <= 0) {
		return Deny(ReasonInvalidOrderPayload)
	}

	for _, tier := range g.tiers {
		if !tier.Applies(cmd) {
			continue
		}
		if d := tier.Evaluate(cmd); !d.Allowed {
			return d
		}
	}

	return Allow()
}
