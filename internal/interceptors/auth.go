package interceptors

import (
	"context"
	"errors"
	"strings"

	"github.com/dmehra2102/todokeeper/pkg/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// LocalSubject is the principal attached when authentication is disabled.
const LocalSubject = "local"

var publicMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
}

// AuthInterceptor requires a bearer token signed with jwtSecret. An empty
// secret disables verification and every call runs as LocalSubject; config
// validation refuses that combination in production.
func AuthInterceptor(jwtSecret string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		if jwtSecret == "" {
			ctx = auth.ContextWithPrincipal(ctx, &auth.Principal{Subject: LocalSubject})
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeader := md.Get("authorization")
		if len(authHeader) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		tokenString := strings.TrimPrefix(authHeader[0], "Bearer ")
		if tokenString == authHeader[0] {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization header format")
		}

		principal, err := auth.ParseToken(jwtSecret, tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return nil, status.Error(codes.Unauthenticated, "token has expired")
			}
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = auth.ContextWithPrincipal(ctx, principal)

		return handler(ctx, req)
	}
}
