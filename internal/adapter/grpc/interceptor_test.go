package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func TestAuthInterceptor(t *testing.T) {
	const apiToken = "fundfolio-api-token"
	interceptor := AuthInterceptor(apiToken)

	tests := []struct {
		name    string
		method  string
		ctx     context.Context
		code    codes.Code
		message string
	}{
		{"Portfolio with token", ListPortfolioMethod, incoming("authorization", apiToken, OwnerMetadataKey, "alice"), codes.OK, ""},
		{"Refresh with token", RefreshNAVMethod, incoming("authorization", apiToken), codes.OK, ""},
		{"Catalog with stale token", ListCatalogMethod, incoming("authorization", "rotated-away"), codes.Unauthenticated, "invalid token"},
		{"Add holding without metadata", AddHoldingMethod, context.Background(), codes.Unauthenticated, "missing metadata"},
		{"Owner header is not a credential", AddHoldingMethod, incoming(OwnerMetadataKey, "alice"), codes.Unauthenticated, "missing authorization header"},
		{"Owner token is not a credential", ListPortfolioMethod, incoming(OwnerTokenMetadataKey, "signed"), codes.Unauthenticated, "missing authorization header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached string
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				reached = tt.method
				return req, nil
			}

			resp, err := interceptor(tt.ctx, "payload", &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)

			if tt.code == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "payload", resp)
				assert.Equal(t, tt.method, reached)
				return
			}
			assert.Empty(t, reached, "rejected calls must not reach the service")
			assert.Equal(t, tt.code, status.Code(err))
			assert.Contains(t, status.Convert(err).Message(), tt.message)
		})
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	interceptor := LoggingInterceptor(arbor.NewLogger())
	info := &grpc.UnaryServerInfo{FullMethod: AddHoldingMethod}

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "fund not found")
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
