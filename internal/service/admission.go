// Package service 命令准入与生命周期对账
package service

import (
	"context"
	"time"

	"github.com/luminatrade/gateway/internal/metrics"
	"github.com/luminatrade/gateway/internal/risk"
	"github.com/luminatrade/gateway/internal/types"
	commonerrors "github.com/luminatrade/gateway/pkg/errors"
	"github.com/luminatrade/gateway/pkg/logger"
)

// CommandStore 命令审计写入接口
type CommandStore interface {
	InsertCommand(ctx context.Context, cmd *types.Command, decision types.Decision, reason string) error
}

// CommandPublisher 队列发布接口
type CommandPublisher interface {
	Publish(ctx context.Context, cmd *types.Command) error
}

// IDGenerator ID 生成器接口
type IDGenerator interface {
	NextID() string
}

// AdmissionService 命令准入流水线：归一化 → 风控 → 审计落库 → 入队
type AdmissionService struct {
	store          CommandStore
	publisher      CommandPublisher
	gate           *risk.Gate
	ids            IDGenerator
	publishTimeout time.Duration
	metrics        *metrics.Metrics
	log            *logger.Logger
}

// NewAdmissionService 创建准入服务
func NewAdmissionService(store CommandStore, publisher CommandPublisher, gate *risk.Gate, ids IDGenerator, publishTimeout time.Duration, metricsClient *metrics.Metrics, log *logger.Logger) *AdmissionService {
	return &AdmissionService{
		store:          store,
		publisher:      publisher,
		gate:           gate,
		ids:            ids,
		publishTimeout: publishTimeout,
		metrics:        metricsClient,
		log:            log,
	}
}

// AdmitResult 准入结果。拦截不是错误：命令已审计落库，只是未入队。
type AdmitResult struct {
	Command *types.Command
	Reason  string
}

// Accepted 是否放行入队
func (r *AdmitResult) Accepted() bool { return r.Reason == "" }

// Admit 准入一条命令草稿。
//
// 副作用有序：先账本后队列。队列失败时命令已记为 accepted 但未投递，
// 以 DELIVERY_FAILURE 单独上抛，绝不静默吞掉。
func (s *AdmissionService) Admit(ctx context.Context, draft *types.CommandDraft) (*AdmitResult, error) {
	start := time.Now()
	if s.metrics != nil {
		defer func() { s.metrics.ObserveAdmissionLatency(time.Since(start)) }()
	}

	if draft == nil {
		return nil, commonerrors.New(commonerrors.CodeInvalidParam, "command draft is required")
	}

	// 渠道解析问题在风控评估前短路
	if draft.Validation != nil && !draft.Validation.Valid {
		return nil, commonerrors.New(commonerrors.CodeInvalidRequest, "command draft failed channel validation").
			WithDetails(draft.Validation.Issues...)
	}

	if issues := validateDraft(draft); len(issues) > 0 {
		return nil, commonerrors.New(commonerrors.CodeInvalidRequest, "invalid command draft").
			WithDetails(issues...)
	}

	// 归一化成功后才分配 ID 与时间戳
	cmd := &types.Command{
		ID:                s.ids.NextID(),
		Type:              draft.Type,
		AccountID:         draft.AccountID,
		Symbol:            draft.Symbol,
		Side:              draft.Side,
		Size:              draft.Size,
		StopLoss:          draft.StopLoss,
		TakeProfit:        draft.TakeProfit,
		AccountBalanceUSD: draft.AccountBalanceUSD,
		AccountEquityUSD:  draft.AccountEquityUSD,
		TradesToday:       draft.TradesToday,
		OpenPositions:     draft.OpenPositions,
		Actor:             draft.Actor,
		Channel:           draft.Channel,
		Validation:        draft.Validation,
		Audit:             draft.Audit,
		CreatedAt:         time.Now().UTC(),
	}

	decision := s.gate.Evaluate(cmd)

	outcome := types.DecisionAccepted
	if !decision.Allowed {
		outcome = types.DecisionBlocked
	}

	// 两种结局都要落库，被拦截的命令同样进审计链路
	if err := s.store.InsertCommand(ctx, cmd, outcome, decision.Reason); err != nil {
		return nil, commonerrors.Newf(commonerrors.CodeStorageFailure, "persist command: %v", err)
	}

	if !decision.Allowed {
		if s.metrics != nil {
			s.metrics.IncBlocked(decision.Reason)
		}
		if s.log != nil {
			s.log.Infof("command blocked", map[string]interface{}{
				"commandId": cmd.ID,
				"type":      string(cmd.Type),
				"reason":    decision.Reason,
			})
		}
		return &AdmitResult{Command: cmd, Reason: decision.Reason}, nil
	}

	publishCtx := ctx
	if s.publishTimeout > 0 {
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
	}

	if err := s.publisher.Publish(publishCtx, cmd); err != nil {
		if s.metrics != nil {
			s.metrics.IncPublishFailure()
		}
		if s.log != nil {
			s.log.WithError(err).Errorf("command accepted but not delivered", map[string]interface{}{
				"commandId": cmd.ID,
			})
		}
		return &AdmitResult{Command: cmd},
			commonerrors.Newf(commonerrors.CodeDeliveryFailure, "command %s accepted but not delivered: %v", cmd.ID, err)
	}

	if s.metrics != nil {
		s.metrics.IncAdmitted(string(cmd.Type), string(cmd.Channel))
	}
	return &AdmitResult{Command: cmd}, nil
}

func validateDraft(draft *types.CommandDraft) []string {
	var issues []string
	if !types.KnownCommandType(draft.Type) {
		issues = append(issues, "unsupported_command_type")
	}
	if draft.Actor == "" {
		issues = append(issues, "actor_required")
	}
	if !types.KnownChannel(draft.Channel) {
		issues = append(issues, "unknown_channel")
	}
	if draft.Size < 0 {
		issues = append(issues, "size_must_be_positive_number")
	}
	if draft.Side != "" && draft.Side != types.SideBuy && draft.Side != types.SideSell {
		issues = append(issues, "side_must_be_buy_or_sell")
	}
	return issues
}
