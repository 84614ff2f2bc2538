package admin

import (
	"context"

	"github.com/fjod/go_storefront/internal/auth"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ServerOptions installs the admin role check on unary and streaming calls, reflection included.
func ServerOptions(secret string, log *zap.Logger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.UnaryInterceptor(AuthInterceptor(secret, log)),
		grpc.StreamInterceptor(StreamAuthInterceptor(secret, log)),
	}
}

// AuthInterceptor admits only callers whose bearer token carries the admin role.
func AuthInterceptor(secret string, log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		claims, err := authorize(ctx, secret, log, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(auth.WithClaims(ctx, claims), req)
	}
}

// StreamAuthInterceptor is AuthInterceptor for streaming RPCs.
func StreamAuthInterceptor(secret string, log *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		claims, err := authorize(ss.Context(), secret, log, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &claimsStream{ServerStream: ss, ctx: auth.WithClaims(ss.Context(), claims)})
	}
}

type claimsStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *claimsStream) Context() context.Context { return s.ctx }

func authorize(ctx context.Context, secret string, log *zap.Logger, method string) (*auth.Claims, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization metadata")
	}

	token, err := auth.BearerToken(values[0])
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	if claims.Role != auth.RoleAdmin {
		log.Warn("admin call refused", zap.String("subject", claims.Subject), zap.String("method", method))
		return nil, status.Error(codes.PermissionDenied, "admin role required")
	}

	log.Info("admin call", zap.String("subject", claims.Subject), zap.String("method", method))
	return claims, nil
}
