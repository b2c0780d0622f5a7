// Package handler HTTP 入口
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/luminatrade/gateway/internal/auth"
	"github.com/luminatrade/gateway/internal/service"
	"github.com/luminatrade/gateway/internal/types"
	commonerrors "github.com/luminatrade/gateway/pkg/errors"
	"github.com/luminatrade/gateway/pkg/logger"
	commonresp "github.com/luminatrade/gateway/pkg/response"
)

// QueueInspector 队列深度探测接口（健康上报）
type QueueInspector interface {
	Depth(ctx context.Context) (int64, error)
	Key() string
}

// CommandLister 审计视图查询接口
type CommandLister interface {
	ListRecent(ctx context.Context, limit int) ([]*types.CommandRecord, error)
}

// Handler HTTP 处理器集合
type Handler struct {
	serviceName    string
	admission      *service.AdmissionService
	reconciler     *service.Reconciler
	queue          QueueInspector
	commands       CommandLister
	telegramSecret string
	log            *logger.Logger
	startedAt      time.Time
}

// New 创建处理器
func New(serviceName string, admission *service.AdmissionService, reconciler *service.Reconciler, queue QueueInspector, commands CommandLister, telegramSecret string, log *logger.Logger) *Handler {
	return &Handler{
		serviceName:    serviceName,
		admission:      admission,
		reconciler:     reconciler,
		queue:          queue,
		commands:       commands,
		telegramSecret: telegramSecret,
		log:            log,
		startedAt:      time.Now(),
	}
}

// Register 注册路由。命令与生命周期接口要求 operator 及以上，
// 审计视图 viewer 即可；Telegram 入口走共享密钥，不过鉴权链。
func (h *Handler) Register(mux *http.ServeMux, authenticator *auth.Authenticator) {
	operator := auth.RequireRole(auth.RoleOperator)
	viewer := auth.RequireRole(auth.RoleViewer)

	mux.Handle("/v1/commands", authenticator.Middleware(operator(http.HandlerFunc(h.SubmitCommand))))
	mux.Handle("/v1/executor/lifecycle", authenticator.Middleware(operator(http.HandlerFunc(h.SubmitLifecycle))))
	mux.Handle("/v1/status", authenticator.Middleware(viewer(http.HandlerFunc(h.Status))))
	mux.HandleFunc("/v1/ingress/telegram/webhook", h.TelegramWebhook)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// commandRequest 下发命令请求体
type commandRequest struct {
	Type              types.CommandType `json:"type"`
	AccountID         string            `json:"accountId"`
	Symbol            string            `json:"symbol"`
	Side              types.Side        `json:"side"`
	Size              float64           `json:"size"`
	StopLoss          float64           `json:"sl"`
	TakeProfit        float64           `json:"tp"`
	AccountBalanceUSD *float64          `json:"accountBalanceUsd"`
	AccountEquityUSD  *float64          `json:"accountEquityUsd"`
	TradesToday       *int              `json:"tradesToday"`
	OpenPositions     *int              `json:"openPositions"`
	Actor             string            `json:"actor"`
	Channel           types.Channel     `json:"channel"`
}

// SubmitCommand POST /v1/commands
func (h *Handler) SubmitCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		commonresp.WriteErrorCode(w, r, commonerrors.CodeInvalidRequest, "invalid request body")
		return
	}

	// panic 是紧急通道，只有最高权限角色可触发
	if req.Type == types.CommandPanic {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok || !principal.Role.AtLeast(auth.RoleAdmin) {
			commonresp.WriteErrorCode(w, r, commonerrors.CodePermissionDenied, "panic requires admin role")
			return
		}
	}

	result, err := h.admission.Admit(r.Context(), &types.CommandDraft{
		Type:              req.Type,
		AccountID:         req.AccountID,
		Symbol:            req.Symbol,
		Side:              req.Side,
		Size:              req.Size,
		StopLoss:          req.StopLoss,
		TakeProfit:        req.TakeProfit,
		AccountBalanceUSD: req.AccountBalanceUSD,
		AccountEquityUSD:  req.AccountEquityUSD,
		TradesToday:       req.TradesToday,
		OpenPositions:     req.OpenPositions,
		Actor:             req.Actor,
		Channel:           req.Channel,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if !result.Accepted() {
		commonresp.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "blocked",
			"commandId": result.Command.ID,
			"reason":    result.Reason,
		})
		return
	}

	commonresp.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "accepted",
		"command": result.Command,
	})
}

// SubmitLifecycle POST /v1/executor/lifecycle
func (h *Handler) SubmitLifecycle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var patch types.LifecyclePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		commonresp.WriteErrorCode(w, r, commonerrors.CodeInvalidRequest, "invalid request body")
		return
	}

	if err := h.reconciler.Reconcile(r.Context(), &patch); err != nil {
		writeServiceError(w, r, err)
		return
	}

	commonresp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Status GET /v1/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	redisStatus := "up"
	var redisError string
	var depth int64 = -1
	if d, err := h.queue.Depth(r.Context()); err != nil {
		redisStatus = "down"
		redisError = err.Error()
	} else {
		depth = d
	}

	recent, err := h.commands.ListRecent(r.Context(), 20)
	if err != nil {
		h.log.WithError(err).Warn("list recent commands failed")
		recent = nil
	}

	status := "ok"
	if redisStatus != "up" {
		status = "degraded"
	}

	commonresp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"ts":     time.Now().UTC(),
		"service": map[string]interface{}{
			"name":      h.serviceName,
			"uptimeSec": int64(time.Since(h.startedAt).Seconds()),
		},
		"redis": map[string]interface{}{
			"status": redisStatus,
			"queue": map[string]interface{}{
				"key":   h.queue.Key(),
				"depth": depth,
			},
			"error": redisError,
		},
		"commands": recent,
	})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := err.(*commonerrors.Error); ok {
		commonresp.WriteError(w, r, e)
		return
	}
	commonresp.WriteErrorCode(w, r, commonerrors.CodeInternal, err.Error())
}
