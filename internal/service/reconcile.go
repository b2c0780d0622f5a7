package service

import (
	"context"
	"errors"

	"github.com/luminatrade/gateway/internal/metrics"
	"github.com/luminatrade/gateway/internal/repository"
	"github.com/luminatrade/gateway/internal/types"
	commonerrors "github.com/luminatrade/gateway/pkg/errors"
	"github.com/luminatrade/gateway/pkg/logger"
)

// LedgerStore 对账写入接口。upsert 必须在存储层原子完成
// （唯一约束上的 insert-or-update），并发对账调用靠它收敛到同一行。
type LedgerStore interface {
	UpdateDecision(ctx context.Context, patch *types.CommandPatch) error
	FindOrderID(ctx context.Context, commandID, executorOrderID, clientOrderID *string) (string, error)
	UpsertOrder(ctx context.Context, id string, p *types.OrderPatch) error
	UpsertFill(ctx context.Context, id, orderID string, p *types.FillPatch) error
	FindPositionID(ctx context.Context, executorPositionID *string, orderID string) (string, error)
	UpsertPosition(ctx context.Context, id, orderID string, p *types.PositionPatch) error
}

// Reconciler 生命周期对账器：把执行器上报的补丁幂等合并进账本
type Reconciler struct {
	store   LedgerStore
	ids     IDGenerator
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewReconciler 创建对账器
func NewReconciler(store LedgerStore, ids IDGenerator, metricsClient *metrics.Metrics, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, ids: ids, metrics: metricsClient, log: log}
}

// Reconcile 处理一次生命周期补丁。
//
// 子部分相互独立但同调用内有序：订单解析先于成交/持仓，两者都依赖
// 本次解析出的订单 ID；订单解析失败即中止成交/持仓处理。
func (r *Reconciler) Reconcile(ctx context.Context, patch *types.LifecyclePatch) error {
	if patch.IsEmpty() {
		return r.fail(commonerrors.New(commonerrors.CodeInvalidRequest, "at least one lifecycle section is required"))
	}

	if issues := validatePatch(patch); len(issues) > 0 {
		return r.fail(commonerrors.New(commonerrors.CodeInvalidRequest, "invalid lifecycle patch").
			WithDetails(issues...))
	}

	if patch.Command != nil {
		if err := r.store.UpdateDecision(ctx, patch.Command); err != nil {
			if errors.Is(err, repository.ErrCommandNotFound) {
				return r.fail(commonerrors.Newf(commonerrors.CodeNotFound, "command %s not found", patch.Command.ID))
			}
			return r.fail(commonerrors.Newf(commonerrors.CodeStorageFailure, "update command decision: %v", err))
		}
		if r.metrics != nil {
			r.metrics.IncLifecycleApplied("command")
		}
	}

	resolvedOrderID := ""
	if patch.Order != nil {
		id, err := r.resolveOrder(ctx, patch.Order)
		if err != nil {
			return r.fail(err)
		}
		if err := r.store.UpsertOrder(ctx, id, patch.Order); err != nil {
			return r.fail(commonerrors.Newf(commonerrors.CodeStorageFailure, "upsert order: %v", err))
		}
		resolvedOrderID = id
		if r.metrics != nil {
			r.metrics.IncLifecycleApplied("order")
		}
	}

	if patch.Fill != nil {
		if resolvedOrderID == "" {
			return r.fail(commonerrors.New(commonerrors.CodeMissingOrderReference, "fill patch requires an order resolved in the same call"))
		}
		id := r.ids.NextID()
		if patch.Fill.ID != nil && *patch.Fill.ID != "" {
			id = *patch.Fill.ID
		}
		if err := r.store.UpsertFill(ctx, id, resolvedOrderID, patch.Fill); err != nil {
			return r.fail(commonerrors.Newf(commonerrors.CodeStorageFailure, "upsert fill: %v", err))
		}
		if r.metrics != nil {
			r.metrics.IncLifecycleApplied("fill")
		}
	}

	if patch.Position != nil {
		if resolvedOrderID == "" {
			return r.fail(commonerrors.New(commonerrors.CodeMissingOrderReference, "position patch requires an order resolved in the same call"))
		}
		id, err := r.resolvePosition(ctx, patch.Position, resolvedOrderID)
		if err != nil {
			return r.fail(err)
		}
		if err := r.store.UpsertPosition(ctx, id, resolvedOrderID, patch.Position); err != nil {
			return r.fail(commonerrors.Newf(commonerrors.CodeStorageFailure, "upsert position: %v", err))
		}
		if r.metrics != nil {
			r.metrics.IncLifecycleApplied("position")
		}
	}

	return nil
}

// resolveOrder 身份解析：commandId → executorOrderId → clientOrderId，
// 都未命中时取补丁自带 ID 或生成新 ID。
func (r *Reconciler) resolveOrder(ctx context.Context, p *types.OrderPatch) (string, *commonerrors.Error) {
	id, err := r.store.FindOrderID(ctx, p.CommandID, p.ExecutorOrderID, p.ClientOrderID)
	if err != nil {
		return "", commonerrors.Newf(commonerrors.CodeStorageFailure, "resolve order: %v", err)
	}
	if id != "" {
		return id, nil
	}
	if p.ID != nil && *p.ID != "" {
		return *p.ID, nil
	}
	return r.ids.NextID(), nil
}

// resolvePosition 优先按 executorPositionId，否则取订单最近一条持仓。
func (r *Reconciler) resolvePosition(ctx context.Context, p *types.PositionPatch, orderID string) (string, *commonerrors.Error) {
	id, err := r.store.FindPositionID(ctx, p.ExecutorPositionID, orderID)
	if err != nil {
		return "", commonerrors.Newf(commonerrors.CodeStorageFailure, "resolve position: %v", err)
	}
	if id != "" {
		return id, nil
	}
	if p.ID != nil && *p.ID != "" {
		return *p.ID, nil
	}
	return r.ids.NextID(), nil
}

func (r *Reconciler) fail(err *commonerrors.Error) error {
	if r.metrics != nil {
		r.metrics.IncReconcileFailure(string(err.Code))
	}
	if r.log != nil {
		r.log.WithError(err).Warn("lifecycle reconcile failed")
	}
	return err
}

func validatePatch(patch *types.LifecyclePatch) []string {
	var issues []string

	if c := patch.Command; c != nil {
		if c.ID == "" {
			issues = append(issues, "command_id_required")
		}
		if c.Decision != nil && *c.Decision != types.DecisionExecuted && *c.Decision != types.DecisionFailed {
			issues = append(issues, "command_decision_invalid")
		}
	}

	if o := patch.Order; o != nil {
		if o.AccountID == "" {
			issues = append(issues, "order_account_id_required")
		}
		if o.Symbol == "" {
			issues = append(issues, "order_symbol_required")
		}
		if o.Side != types.SideBuy && o.Side != types.SideSell {
			issues = append(issues, "order_side_invalid")
		}
		if o.Size <= 0 {
			issues = append(issues, "order_size_must_be_positive")
		}
		if !types.KnownOrderStatus(o.Status) {
			issues = append(issues, "order_status_invalid")
		}
	}

	if f := patch.Fill; f != nil {
		if f.DealID == "" {
			issues = append(issues, "fill_deal_id_required")
		}
		if f.Price <= 0 {
			issues = append(issues, "fill_price_must_be_positive")
		}
		if f.Volume <= 0 {
			issues = append(issues, "fill_volume_must_be_positive")
		}
		if f.FilledAt.IsZero() {
			issues = append(issues, "fill_filled_at_required")
		}
	}

	if p := patch.Position; p != nil {
		if p.AccountID == "" {
			issues = append(issues, "position_account_id_required")
		}
		if p.Symbol == "" {
			issues = append(issues, "position_symbol_required")
		}
		if p.Side != types.SideBuy && p.Side != types.SideSell {
			issues = append(issues, "position_side_invalid")
		}
		if !types.KnownPositionStatus(p.Status) {
			issues = append(issues, "position_status_invalid")
		}
		if p.AvgEntryPrice <= 0 {
			issues = append(issues, "position_avg_entry_price_must_be_positive")
		}
		if p.SizeOpened <= 0 {
			issues = append(issues, "position_size_opened_must_be_positive")
		}
		if p.SizeClosed != nil && *p.SizeClosed < 0 {
			issues = append(issues, "position_size_closed_must_be_non_negative")
		}
		// size_closed 永远不得超过 size_opened；schema 的 CHECK 约束兜底
		if p.SizeClosed != nil && *p.SizeClosed > p.SizeOpened {
			issues = append(issues, "position_size_closed_exceeds_size_opened")
		}
	}

	return issues
}
