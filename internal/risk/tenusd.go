package risk

import "github.com/luminatrade/gateway/internal/types"

// 小额账户档位拒绝原因
const (
	ReasonStopLossRequired    = "sl_required_for_10usd_account"
	ReasonMissingTradesToday  = "missing_trades_today_for_10usd_account"
	ReasonMaxTradesPerDay     = "max_trades_per_day_reached_for_10usd_account"
	ReasonMissingOpenPosition = "missing_open_positions_for_10usd_account"
	ReasonMaxPositionsReached = "max_positions_reached_for_10usd_account"
	ReasonMissingEquityBal    = "missing_equity_balance_for_10usd_account"
	ReasonDailyDrawdownCap    = "daily_drawdown_cap_reached_for_10usd_account"
)

// TenUSDPolicy 小额账户（余额 (0,10] 美元）策略阈值
type TenUSDPolicy struct {
	MaxBalanceUSD       float64
	MaxDailyDrawdownPct float64
	MaxTradesPerDay     int
	MaxPositions        int
	RequireStopLoss     bool
}

// DefaultTenUSDPolicy 默认阈值
func DefaultTenUSDPolicy() TenUSDPolicy {
	return TenUSDPolicy{
		MaxBalanceUSD:       10,
		MaxDailyDrawdownPct: 5,
		MaxTradesPerDay:     5,
		MaxPositions:        1,
		RequireStopLoss:     true,
	}
}

// TenUSDTier 小额账户档位
type TenUSDTier struct {
	policy TenUSDPolicy
}

// NewTenUSDTier 使用默认阈值创建档位
func NewTenUSDTier() *TenUSDTier {
	return &TenUSDTier{policy: DefaultTenUSDPolicy()}
}

// NewTenUSDTierWithPolicy 使用自定义阈值创建档位
func NewTenUSDTierWithPolicy(policy TenUSDPolicy) *TenUSDTier {
	return &TenUSDTier{policy: policy}
}

func (t *TenUSDTier) Name() string { return "ten-usd-account" }

// Applies 账户余额落在 (0, MaxBalanceUSD] 时激活
func (t *TenUSDTier) Applies(cmd *types.Command) bool {
	return cmd.AccountBalanceUSD != nil &&
		*cmd.AccountBalanceUSD > 0 &&
		*cmd.AccountBalanceUSD <= t.policy.MaxBalanceUSD
}

// Evaluate 逐项检查，任一失败立即返回对应原因。
// 档位检查只针对 open 命令，其余类型一律放行。
func (t *TenUSDTier) Evaluate(cmd *types.Command) Decision {
	if cmd.Type != types.CommandOpen {
		return Allow()
	}

	if t.policy.RequireStopLoss && cmd.StopLoss <= 0 {
		return Deny(ReasonStopLossRequired)
	}

	if cmd.TradesToday == nil {
		return Deny(ReasonMissingTradesToday)
	}
	if *cmd.TradesToday >= t.policy.MaxTradesPerDay {
		return Deny(ReasonMaxTradesPerDay)
	}

	if cmd.OpenPositions == nil {
		return Deny(ReasonMissingOpenPosition)
	}
	if *cmd.OpenPositions >= t.policy.MaxPositions {
		return Deny(ReasonMaxPositionsReached)
	}

	if cmd.AccountEquityUSD == nil || cmd.AccountBalanceUSD == nil {
		return Deny(ReasonMissingEquityBal)
	}

	drawdownPct := (*cmd.AccountBalanceUSD - *cmd.AccountEquityUSD) / *cmd.AccountBalanceUSD * 100
	if drawdownPct >= t.policy.MaxDailyDrawdownPct {
		return Deny(ReasonDailyDrawdownCap)
	}

	return Allow()
}
