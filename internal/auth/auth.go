// Package auth 凭证解析与角色模型
package auth

import "strings"

// Role 角色，数值即等级：viewer < operator < admin
type Role int

const (
	RoleUnknown Role = iota
	RoleViewer
	RoleOperator
	RoleAdmin
)

// ParseRole 解析角色名
func ParseRole(s string) (Role, bool) {
	switch s {
	case "viewer":
		return RoleViewer, true
	case "operator":
		return RoleOperator, true
	case "admin":
		return RoleAdmin, true
	default:
		return RoleUnknown, false
	}
}

func (r Role) String() string {
	switch r {
	case RoleViewer:
		return "viewer"
	case RoleOperator:
		return "operator"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// AtLeast 等级比较
func (r Role) AtLeast(min Role) bool { return r >= min }

// CredentialMap 凭证到角色的只读映射，进程启动时构建一次
type CredentialMap map[string]Role

// ParseCredentials 解析 "secret:role,secret:role" 形式的凭证表。
// 格式错误或角色未知的条目直接跳过。
func ParseCredentials(raw string) CredentialMap {
	creds := CredentialMap{}
	if raw == "" {
		return creds
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 2)
		if len(parts) < 2 {
			continue
		}

		secret := strings.TrimSpace(parts[0])
		role, ok := ParseRole(strings.TrimSpace(parts[1]))
		if secret == "" || !ok {
			continue
		}
		creds[secret] = role
	}

	return creds
}

// Lookup 查询凭证对应角色
func (m CredentialMap) Lookup(secret string) (Role, bool) {
	role, ok := m[secret]
	return role, ok
}
