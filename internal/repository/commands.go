// Package repository 账本数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luminatrade/gateway/internal/types"
)

var ErrCommandNotFound = errors.New("command not found")

// CommandRepository 命令审计表仓储
type CommandRepository struct {
	db *sql.DB
}

// NewCommandRepository 创建仓储
func NewCommandRepository(db *sql.DB) *CommandRepository {
	return &CommandRepository{db: db}
}

// commandPayload 命令中不落独立列的部分，整体存入 payload JSONB
type commandPayload struct {
	Symbol            string            `json:"symbol,omitempty"`
	Side              types.Side        `json:"side,omitempty"`
	Size              float64           `json:"size,omitempty"`
	StopLoss          float64           `json:"sl,omitempty"`
	TakeProfit        float64           `json:"tp,omitempty"`
	AccountBalanceUSD *float64          `json:"accountBalanceUsd,omitempty"`
	AccountEquityUSD  *float64          `json:"accountEquityUsd,omitempty"`
	TradesToday       *int              `json:"tradesToday,omitempty"`
	OpenPositions     *int              `json:"openPositions,omitempty"`
	Validation        *types.Validation `json:"validation,omitempty"`
	Audit             *types.Audit      `json:"audit,omitempty"`
}

// InsertCommand 写入命令及其准入决策。接受与拦截都要落库，审计链路必须完整。
func (r *CommandRepository) InsertCommand(ctx context.Context, cmd *types.Command, decision types.Decision, reason string) error {
	payload, err := json.Marshal(commandPayload{
		Symbol:            cmd.Symbol,
		Side:              cmd.Side,
		Size:              cmd.Size,
		StopLoss:          cmd.StopLoss,
		TakeProfit:        cmd.TakeProfit,
		AccountBalanceUSD: cmd.AccountBalanceUSD,
		AccountEquityUSD:  cmd.AccountEquityUSD,
		TradesToday:       cmd.TradesToday,
		OpenPositions:     cmd.OpenPositions,
		Validation:        cmd.Validation,
		Audit:             cmd.Audit,
	})
	if err != nil {
		return fmt.Errorf("marshal command payload: %w", err)
	}

	query := `
		INSERT INTO commands
		(id, account_id, type, payload, actor, channel, decision, decision_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		cmd.ID, nullString(cmd.AccountID), string(cmd.Type), payload,
		cmd.Actor, string(cmd.Channel), string(decision), nullString(reason),
		cmd.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// UpdateDecision 更新既有命令的决策字段，从不创建命令。
// decision 为空时保留原值，decision_reason 以本次为准。
func (r *CommandRepository) UpdateDecision(ctx context.Context, patch *types.CommandPatch) error {
	query := `
		UPDATE commands
		SET decision = COALESCE($2, decision), decision_reason = $3
		WHERE id = $1
	`
	var decision sql.NullString
	if patch.Decision != nil {
		decision = sql.NullString{String: string(*patch.Decision), Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query, patch.ID, decision, nullStringPtr(patch.DecisionReason))
	if err != nil {
		return fmt.Errorf("update command decision: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrCommandNotFound
	}
	return nil
}

// ListRecent 按时间倒序列出最近命令（审计视图）
func (r *CommandRepository) ListRecent(ctx context.Context, limit int) ([]*types.CommandRecord, error) {
	query := `
		SELECT id, account_id, type, actor, channel, decision, decision_reason, created_at
		FROM commands
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	var records []*types.CommandRecord
	for rows.Next() {
		var rec types.CommandRecord
		var accountID, reason sql.NullString
		var cmdType, channel, decision string
		var createdAt time.Time
		if err := rows.Scan(&rec.ID, &accountID, &cmdType, &rec.Actor, &channel, &decision, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		rec.AccountID = accountID.String
		rec.Type = types.CommandType(cmdType)
		rec.Channel = types.Channel(channel)
		rec.Decision = types.Decision(decision)
		rec.DecisionReason = reason.String
		rec.CreatedAt = createdAt
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloatPtr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
