// Package grpcauth adapts the gateway to gRPC services: a unary
// interceptor authenticates incoming metadata and places the resolved
// Principal on the handler context.
package grpcauth

import (
	"context"
	"errors"
	"net/http"
	"net/textproto"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

type ctxKey string

const principalKey ctxKey = "principal"

// Authenticator is the slice of the gateway the interceptor needs.
type Authenticator interface {
	Authenticate(ctx context.Context, h http.Header) (*models.Principal, []models.StoreFailure, error)
}

// PrincipalFromContext returns the principal the interceptor attached.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*models.Principal)
	return p, ok
}

// UnaryServerInterceptor authenticates every unary call from its incoming
// metadata. Credential headers travel in metadata under their lowercase
// HTTP names.
func UnaryServerInterceptor(auth Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		p, _, err := auth.Authenticate(ctx, headerFromMetadata(ctx))
		if err != nil {
			switch {
			case errors.Is(err, common.ErrUnauthenticated):
				return nil, status.Error(codes.Unauthenticated, "unauthenticated")
			case errors.Is(err, common.ErrKeySetUnavailable):
				return nil, status.Error(codes.Unavailable, "verification keys unavailable")
			default:
				return nil, status.Error(codes.Internal, "authentication failed")
			}
		}
		return handler(context.WithValue(ctx, principalKey, p), req)
	}
}

// headerFromMetadata rebuilds an http.Header from incoming gRPC metadata so
// the verifier sees the same shape on both transports.
func headerFromMetadata(ctx context.Context) http.Header {
	h := http.Header{}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return h
	}
	for key, values := range md {
		canonical := textproto.CanonicalMIMEHeaderKey(key)
		for _, v := range values {
			h.Add(canonical, v)
		}
	}
	return h
}
