package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luminatrade/gateway/internal/types"
)

// LifecycleRepository 订单/成交/持仓仓储
//
// 所有 upsert 都是单条 INSERT ... ON CONFLICT DO UPDATE：并发对账收敛
// 依赖存储层唯一约束，而不是调用方的读改写。
type LifecycleRepository struct {
	db *sql.DB
}

// NewLifecycleRepository 创建仓储
func NewLifecycleRepository(db *sql.DB) *LifecycleRepository {
	return &LifecycleRepository{db: db}
}

// FindOrderID 按身份解析优先级查找订单：
// commandId → executorOrderId → clientOrderId。都未命中返回空串。
func (r *LifecycleRepository) FindOrderID(ctx context.Context, commandID, executorOrderID, clientOrderID *string) (string, error) {
	lookups := []struct {
		column string
		value  *string
	}{
		{"command_id", commandID},
		{"executor_order_id", executorOrderID},
		{"client_order_id", clientOrderID},
	}

	for _, l := range lookups {
		if l.value == nil || *l.value == "" {
			continue
		}
		query := fmt.Sprintf(`SELECT id FROM orders WHERE %s = $1 ORDER BY created_at DESC LIMIT 1`, l.column)
		var id string
		err := r.db.QueryRowContext(ctx, query, *l.value).Scan(&id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("find order by %s: %w", l.column, err)
		}
		return id, nil
	}
	return "", nil
}

// UpsertOrder 合并式 upsert。
//
// 外部标识（client/executor order id、executor position id）、commandId 与
// openedAt 由不同上游系统在不同时刻各赋值一次，入参缺失时保留既有值；
// 状态类字段（status/size/symbol/side/sl/tp/closed_at/close_reason）反映
// 执行器当前真相，一律以入参为准。
func (r *LifecycleRepository) UpsertOrder(ctx context.Context, id string, p *types.OrderPatch) error {
	query := `
		INSERT INTO orders
		(id, account_id, command_id, symbol, side, size, sl, tp, status,
		 client_order_id, executor_order_id, executor_position_id,
		 opened_at, closed_at, close_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			command_id = COALESCE(EXCLUDED.command_id, orders.command_id),
			symbol = EXCLUDED.symbol,
			side = EXCLUDED.side,
			size = EXCLUDED.size,
			sl = EXCLUDED.sl,
			tp = EXCLUDED.tp,
			status = EXCLUDED.status,
			client_order_id = COALESCE(EXCLUDED.client_order_id, orders.client_order_id),
			executor_order_id = COALESCE(EXCLUDED.executor_order_id, orders.executor_order_id),
			executor_position_id = COALESCE(EXCLUDED.executor_position_id, orders.executor_position_id),
			opened_at = COALESCE(EXCLUDED.opened_at, orders.opened_at),
			closed_at = EXCLUDED.closed_at,
			close_reason = EXCLUDED.close_reason,
			updated_at = now()
	`
	_, err := r.db.ExecContext(ctx, query,
		id, p.AccountID, nullStringPtr(p.CommandID), p.Symbol, string(p.Side), p.Size,
		nullFloatPtr(p.StopLoss), nullFloatPtr(p.TakeProfit), string(p.Status),
		nullStringPtr(p.ClientOrderID), nullStringPtr(p.ExecutorOrderID), nullStringPtr(p.ExecutorPositionID),
		nullTimePtr(p.OpenedAt), nullTimePtr(p.ClosedAt), nullStringPtr(p.CloseReason),
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

// UpsertFill 以 deal_id 唯一约束为幂等键：重放的成交回报更新同一行。
func (r *LifecycleRepository) UpsertFill(ctx context.Context, id, orderID string, p *types.FillPatch) error {
	query := `
		INSERT INTO fills
		(id, order_id, deal_id, price, volume, filled_at, side, fee, commission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (deal_id) DO UPDATE SET
			order_id = EXCLUDED.order_id,
			price = EXCLUDED.price,
			volume = EXCLUDED.volume,
			filled_at = EXCLUDED.filled_at,
			side = EXCLUDED.side,
			fee = EXCLUDED.fee,
			commission = EXCLUDED.commission
	`
	var side sql.NullString
	if p.Side != nil {
		side = sql.NullString{String: string(*p.Side), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		id, orderID, p.DealID, p.Price, p.Volume, p.FilledAt,
		side, nullFloatPtr(p.Fee), nullFloatPtr(p.Commission),
	)
	if err != nil {
		return fmt.Errorf("upsert fill: %w", err)
	}
	return nil
}

// FindPositionID 解析持仓：优先 executor_position_id，否则取该订单最近一条。
func (r *LifecycleRepository) FindPositionID(ctx context.Context, executorPositionID *string, orderID string) (string, error) {
	var (
		query string
		arg   string
	)
	if executorPositionID != nil && *executorPositionID != "" {
		query = `SELECT id FROM positions WHERE executor_position_id = $1 LIMIT 1`
		arg = *executorPositionID
	} else {
		query = `SELECT id FROM positions WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`
		arg = orderID
	}

	var id string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find position: %w", err)
	}
	return id, nil
}

// UpsertPosition 合并式 upsert：既有 executor_position_id 在入参缺失时保留，
// 其余字段以入参为准。
func (r *LifecycleRepository) UpsertPosition(ctx context.Context, id, orderID string, p *types.PositionPatch) error {
	query := `
		INSERT INTO positions
		(id, account_id, order_id, symbol, side, status, executor_position_id,
		 opened_at, closed_at, avg_entry_price, avg_exit_price,
		 size_opened, size_closed, realized_pnl, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			order_id = EXCLUDED.order_id,
			symbol = EXCLUDED.symbol,
			side = EXCLUDED.side,
			status = EXCLUDED.status,
			executor_position_id = COALESCE(EXCLUDED.executor_position_id, positions.executor_position_id),
			opened_at = EXCLUDED.opened_at,
			closed_at = EXCLUDED.closed_at,
			avg_entry_price = EXCLUDED.avg_entry_price,
			avg_exit_price = EXCLUDED.avg_exit_price,
			size_opened = EXCLUDED.size_opened,
			size_closed = EXCLUDED.size_closed,
			realized_pnl = EXCLUDED.realized_pnl,
			updated_at = now()
	`
	sizeClosed := float64(0)
	if p.SizeClosed != nil {
		sizeClosed = *p.SizeClosed
	}
	_, err := r.db.ExecContext(ctx, query,
		id, p.AccountID, orderID, p.Symbol, string(p.Side), string(p.Status),
		nullStringPtr(p.ExecutorPositionID), p.OpenedAt, nullTimePtr(p.ClosedAt),
		p.AvgEntryPrice, nullFloatPtr(p.AvgExitPrice),
		p.SizeOpened, sizeClosed, nullFloatPtr(p.RealizedPnl),
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}
