package telegram

import (
	"strconv"
	"strings"

	"github.com/luminatrade/gateway/internal/types"
)

// ParseSource 解析器版本标识，写入命令的 validation.source
const ParseSource = "telegram-webhook-v1"

// 解析问题码
const (
	IssueSymbolRequired     = "symbol_required"
	IssueSideInvalid        = "side_must_be_buy_or_sell"
	IssueSizeInvalid        = "size_must_be_positive_number"
	IssueStopLossInvalid    = "sl_must_be_number"
	IssueTakeProfitInvalid  = "tp_must_be_number"
	IssueUnsupportedCommand = "unsupported_command"
)

// ParsedCommand 斜杠命令解析结果
type ParsedCommand struct {
	Type       types.CommandType
	AccountID  string
	Symbol     string
	Side       types.Side
	Size       float64
	StopLoss   float64
	TakeProfit float64
}

// ParseSlashCommand 解析一条斜杠命令文本。
//
// 语法：/status [account]、/open SYMBOL buy|sell SIZE [sl=X] [tp=Y]、
// /close SYMBOL [account]、/panic。命令头允许 @botname 后缀。
// sl/tp 只接受 key=value 形式，其余尾随 token 被忽略。
// 返回的 issues 非空时命令不可用，准入必须在风控前短路。
func ParseSlashCommand(text string) (*ParsedCommand, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return nil, []string{IssueUnsupportedCommand}
	}

	head := strings.ToLower(fields[0])
	if at := strings.Index(head, "@"); at >= 0 {
		head = head[:at]
	}
	rest := fields[1:]

	switch head {
	case "/status":
		cmd := &ParsedCommand{Type: types.CommandStatus}
		if len(rest) > 0 {
			cmd.AccountID = rest[0]
		}
		return cmd, nil

	case "/open":
		return parseOpen(rest)

	case "/close":
		cmd := &ParsedCommand{Type: types.CommandClose}
		if len(rest) > 0 {
			cmd.Symbol = strings.ToUpper(rest[0])
		}
		if len(rest) > 1 {
			cmd.AccountID = rest[1]
		}
		return cmd, nil

	case "/panic":
		return &ParsedCommand{Type: types.CommandPanic}, nil

	default:
		return nil, []string{IssueUnsupportedCommand}
	}
}

func parseOpen(rest []string) (*ParsedCommand, []string) {
	var issues []string
	cmd := &ParsedCommand{Type: types.CommandOpen}

	if len(rest) > 0 {
		cmd.Symbol = strings.ToUpper(rest[0])
	} else {
		issues = append(issues, IssueSymbolRequired)
	}

	if len(rest) > 1 {
		side := types.Side(strings.ToLower(rest[1]))
		if side == types.SideBuy || side == types.SideSell {
			cmd.Side = side
		} else {
			issues = append(issues, IssueSideInvalid)
		}
	} else {
		issues = append(issues, IssueSideInvalid)
	}

	if len(rest) > 2 {
		size, err := strconv.ParseFloat(rest[2], 64)
		if err != nil || size <= 0 {
			issues = append(issues, IssueSizeInvalid)
		} else {
			cmd.Size = size
		}
	} else {
		issues = append(issues, IssueSizeInvalid)
	}

	if len(rest) > 3 {
		for _, part := range rest[3:] {
			key, value, found := strings.Cut(part, "=")
			if !found || key == "" || value == "" {
				continue
			}
			switch strings.ToLower(key) {
			case "sl":
				sl, err := strconv.ParseFloat(value, 64)
				if err != nil {
					issues = append(issues, IssueStopLossInvalid)
					continue
				}
				cmd.StopLoss = sl
			case "tp":
				tp, err := strconv.ParseFloat(value, 64)
				if err != nil {
					issues = append(issues, IssueTakeProfitInvalid)
					continue
				}
				cmd.TakeProfit = tp
			}
		}
	}

	return cmd, issues
}
