package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminatrade/gateway/internal/types"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

// smallAccountOpen 余额 $10、净值 $9.70、带止损、当日零交易零持仓的开仓命令
func smallAccountOpen() *types.Command {
	return &types.Command{
		Type:              types.CommandOpen,
		Symbol:            "EURUSD",
		Side:              types.SideBuy,
		Size:              0.01,
		StopLoss:          1.05,
		AccountBalanceUSD: floatPtr(10),
		AccountEquityUSD:  floatPtr(9.70),
		TradesToday:       intPtr(0),
		OpenPositions:     intPtr(0),
	}
}

func TestPanicAlwaysAllowed(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmds := []*types.Command{
		{Type: types.CommandPanic},
		{Type: types.CommandPanic, AccountBalanceUSD: floatPtr(5)},
		{Type: types.CommandPanic, AccountBalanceUSD: floatPtr(10), AccountEquityUSD: floatPtr(1)},
	}
	for _, cmd := range cmds {
		d := gate.Evaluate(cmd)
		assert.True(t, d.Allowed, "panic must never be blocked")
		assert.Empty(t, d.Reason)
	}
}

func TestOpenRequiresOrderPayload(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cases := []struct {
		name string
		cmd  *types.Command
	}{
		{"missing symbol", &types.Command{Type: types.CommandOpen, Side: types.SideBuy, Size: 0.1}},
		{"missing side", &types.Command{Type: types.CommandOpen, Symbol: "EURUSD", Size: 0.1}},
		{"zero size", &types.Command{Type: types.CommandOpen, Symbol: "EURUSD", Side: types.SideSell}},
		{"negative size", &types.Command{Type: types.CommandOpen, Symbol: "EURUSD", Side: types.SideSell, Size: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := gate.Evaluate(tc.cmd)
			require.False(t, d.Allowed)
			assert.Equal(t, ReasonInvalidOrderPayload, d.Reason)
		})
	}
}

func TestNonOpenCommandsPassTiers(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	// 小额账户激活但命令不是 open：档位放行
	for _, typ := range []types.CommandType{types.CommandStatus, types.CommandClose, types.CommandPause, types.CommandResume, types.CommandSetRisk} {
		d := gate.Evaluate(&types.Command{Type: typ, AccountBalanceUSD: floatPtr(5)})
		assert.True(t, d.Allowed, "type %s should pass", typ)
	}
}

func TestTenUSDTierHappyPath(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	d := gate.Evaluate(smallAccountOpen())
	require.True(t, d.Allowed, "reason: %s", d.Reason)
}

func TestTenUSDTierStopLossRequired(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmd := smallAccountOpen()
	cmd.StopLoss = 0
	d := gate.Evaluate(cmd)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonStopLossRequired, d.Reason)
}

func TestTenUSDTierMissingTradesToday(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmd := smallAccountOpen()
	cmd.TradesToday = nil
	d := gate.Evaluate(cmd)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMissingTradesToday, d.Reason)
}

func TestTenUSDTierMaxTradesPerDay(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmd := smallAccountOpen()
	cmd.TradesToday = intPtr(5)
	d := gate.Evaluate(cmd)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMaxTradesPerDay, d.Reason)
}

func TestTenUSDTierMissingOpenPositions(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmd := smallAccountOpen()
	cmd.OpenPositions = nil
	d := gate.Evaluate(cmd)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMissingOpenPosition, d.Reason)
}

func TestTenUSDTierMaxPositions(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmd := smallAccountOpen()
	cmd.OpenPositions = intPtr(1)
	d := gate.Evaluate(cmd)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMaxPositionsReached, d.Reason)
}

func TestTenUSDTierMissingEquity(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmd := smallAccountOpen()
	cmd.AccountEquityUSD = nil
	d := gate.Evaluate(cmd)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonMissingEquityBal, d.Reason)
}

func TestTenUSDTierDrawdownCap(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	// 5% 回撤恰好触线：(10 - 9.50) / 10 * 100 = 5
	cmd := smallAccountOpen()
	cmd.AccountEquityUSD = floatPtr(9.50)
	d := gate.Evaluate(cmd)
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonDailyDrawdownCap, d.Reason)
}

func TestTenUSDTierNotActivatedAboveThreshold(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmd := smallAccountOpen()
	cmd.AccountBalanceUSD = floatPtr(250)
	cmd.StopLoss = 0 // 非小额账户不要求止损
	d := gate.Evaluate(cmd)
	assert.True(t, d.Allowed)
}

func TestTenUSDTierNotActivatedWithoutBalance(t *testing.T) {
	gate := NewGate(NewTenUSDTier())

	cmd := smallAccountOpen()
	cmd.AccountBalanceUSD = nil
	cmd.AccountEquityUSD = nil
	cmd.TradesToday = nil
	cmd.OpenPositions = nil
	d := gate.Evaluate(cmd)
	assert.True(t, d.Allowed)
}

// denyAllTier 用于验证档位按注册顺序评估且短路
type denyAllTier struct{ reason string }

func (d *denyAllTier) Name() string                         { return "deny-all" }
func (d *denyAllTier) Applies(cmd *types.Command) bool      { return true }
func (d *denyAllTier) Evaluate(cmd *types.Command) Decision { return Deny(d.reason) }

func TestTiersEvaluatedInRegistrationOrder(t *testing.T) {
	gate := NewGate(&denyAllTier{reason: "first"}, &denyAllTier{reason: "second"})

	d := gate.Evaluate(&types.Command{Type: types.CommandClose})
	require.False(t, d.Allowed)
	assert.Equal(t, "first", d.Reason)
}

func TestNoTiersDefaultAllow(t *testing.T) {
	gate := NewGate()

	d := gate.Evaluate(&types.Command{Type: types.CommandOpen, Symbol: "EURUSD", Side: types.SideBuy, Size: 1})
	assert.True(t, d.Allowed)
}
