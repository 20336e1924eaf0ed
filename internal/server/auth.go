package server

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	svcErr "github.com/oggyb/chatible/internal/errors"
)

// BearerAuth accepts calls whose "authorization" metadata carries a bearer
// token matching tokenHash (bcrypt). An empty hash rejects every call.
func BearerAuth(tokenHash string) grpc.UnaryServerInterceptor {
	hash := []byte(tokenHash)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if len(hash) == 0 {
			return nil, svcErr.Unauthenticated("admin token not configured")
		}
		token, ok := bearerFromContext(ctx)
		if !ok {
			return nil, svcErr.Unauthenticated("missing bearer token")
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
			return nil, svcErr.Unauthenticated("invalid bearer token")
		}
		return handler(ctx, req)
	}
}

func bearerFromContext(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	for _, v := range md.Get("authorization") {
		if token, found := strings.CutPrefix(v, "Bearer "); found && token != "" {
			return token, true
		}
	}
	return "", false
}

// HashToken returns the bcrypt hash to configure as ADMIN_TOKEN_HASH.
func HashToken(token string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// bearerCredentials attaches a bearer token to every outgoing call.
type bearerCredentials struct {
	token string
}

// BearerToken returns per-RPC credentials for clients of the admin service.
// The token travels in clear text unless the connection uses TLS.
func BearerToken(token string) grpc.DialOption {
	return grpc.WithPerRPCCredentials(bearerCredentials{token: token})
}

func (c bearerCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + c.token}, nil
}

func (c bearerCredentials) RequireTransportSecurity() bool { return false }
