package auth

import (
	"context"
	"net/http"
	"strings"

	commonerrors "github.com/luminatrade/gateway/pkg/errors"
	commonresp "github.com/luminatrade/gateway/pkg/response"
)

// AuthMethod 鉴权方式
type AuthMethod string

const (
	MethodBearer AuthMethod = "bearer"
	MethodAPIKey AuthMethod = "api-key"
)

// Principal 已鉴权主体
type Principal struct {
	Subject string
	Role    Role
	Method  AuthMethod
}

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext 从上下文取鉴权主体
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// Authenticator Bearer token / API key 鉴权
type Authenticator struct {
	bearerTokens CredentialMap
	apiKeys      CredentialMap
}

// NewAuthenticator 创建鉴权器，凭证表在启动时解析后不再变更
func NewAuthenticator(bearerTokens, apiKeys CredentialMap) *Authenticator {
	return &Authenticator{bearerTokens: bearerTokens, apiKeys: apiKeys}
}

// Middleware 鉴权中间件：支持 Authorization: Bearer 与 X-API-Key
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer := r.Header.Get("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer "))
			role, ok := a.bearerTokens.Lookup(token)
			if !ok {
				commonresp.WriteErrorCode(w, r, commonerrors.CodeUnauthenticated, "unknown bearer token")
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, &Principal{
				Subject: "bearer",
				Role:    role,
				Method:  MethodBearer,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			role, ok := a.apiKeys.Lookup(apiKey)
			if !ok {
				commonresp.WriteErrorCode(w, r, commonerrors.CodeUnauthenticated, "unknown api key")
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, &Principal{
				Subject: "api-key",
				Role:    role,
				Method:  MethodAPIKey,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		commonresp.WriteErrorCode(w, r, commonerrors.CodeUnauthenticated, "missing credentials")
	})
}

// RequireRole 角色等级检查中间件
func RequireRole(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				commonresp.WriteErrorCode(w, r, commonerrors.CodeUnauthenticated, "unauthenticated")
				return
			}
			if !principal.Role.AtLeast(min) {
				commonresp.WriteErrorCode(w, r, commonerrors.CodePermissionDenied, "role "+principal.Role.String()+" below required "+min.String())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
