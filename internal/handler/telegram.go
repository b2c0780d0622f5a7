package handler

import (
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/luminatrade/gateway/internal/telegram"
	"github.com/luminatrade/gateway/internal/types"
	commonerrors "github.com/luminatrade/gateway/pkg/errors"
	commonresp "github.com/luminatrade/gateway/pkg/response"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhook POST /v1/ingress/telegram/webhook
//
// 聊天平台只认成功响应：解析失败与风控拦截都降级成回复文本，
// 只有 webhook 本体不合法才返回 400。
func (h *Handler) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.telegramSecret != "" {
		provided := r.Header.Get(telegramSecretHeader)
		if !hmac.Equal([]byte(provided), []byte(h.telegramSecret)) {
			commonresp.WriteErrorCode(w, r, commonerrors.CodeUnauthenticated, "invalid webhook secret")
			return
		}
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		commonresp.WriteErrorCode(w, r, commonerrors.CodeInvalidRequest, "invalid webhook payload")
		return
	}

	message := update.Message
	if message == nil || !strings.HasPrefix(message.Text, "/") {
		commonresp.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ignored",
			"reason": "non_command_message",
		})
		return
	}

	parsed, issues := telegram.ParseSlashCommand(message.Text)
	receivedAt := time.Now().UTC()

	audit := &types.Audit{
		Ingress:    "telegram",
		ReceivedAt: receivedAt,
		UpdateID:   update.UpdateID,
		MessageID:  message.MessageID,
		ChatID:     strconv.FormatInt(message.Chat.ID, 10),
		RawText:    message.Text,
		Requester: &types.Requester{
			ID:        strconv.FormatInt(message.From.ID, 10),
			Username:  message.From.Username,
			FirstName: message.From.FirstName,
			LastName:  message.From.LastName,
		},
	}

	draft := &types.CommandDraft{
		Actor:   "telegram:" + strconv.FormatInt(message.From.ID, 10),
		Channel: types.ChannelTelegram,
		Audit:   audit,
		Validation: &types.Validation{
			Valid:  len(issues) == 0,
			Issues: issues,
			Source: telegram.ParseSource,
		},
	}
	if parsed != nil {
		draft.Type = parsed.Type
		draft.AccountID = parsed.AccountID
		draft.Symbol = parsed.Symbol
		draft.Side = parsed.Side
		draft.Size = parsed.Size
		draft.StopLoss = parsed.StopLoss
		draft.TakeProfit = parsed.TakeProfit
	}

	result, err := h.admission.Admit(r.Context(), draft)
	if err != nil {
		writeReply(w, replyForError(err))
		return
	}

	if !result.Accepted() {
		writeReply(w, fmt.Sprintf("Command blocked by risk policy: %s (id %s)", result.Reason, result.Command.ID))
		return
	}

	writeReply(w, fmt.Sprintf("Accepted %s command %s", result.Command.Type, result.Command.ID))
}

func replyForError(err error) string {
	e, ok := err.(*commonerrors.Error)
	if !ok {
		return "Command failed: " + err.Error()
	}

	switch e.Code {
	case commonerrors.CodeInvalidRequest, commonerrors.CodeInvalidParam:
		if len(e.Details) > 0 {
			return "Could not parse command: " + strings.Join(e.Details, ", ")
		}
		return "Could not parse command"
	case commonerrors.CodeDeliveryFailure:
		return "Command accepted but delivery to the executor failed. " + e.Message
	case commonerrors.CodeStorageFailure:
		return "Command could not be recorded, please retry. " + e.Message
	default:
		return "Command failed: " + e.Message
	}
}

func writeReply(w http.ResponseWriter, reply string) {
	commonresp.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"reply":  reply,
	})
}
