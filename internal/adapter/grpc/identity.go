package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// OwnerTokenMetadataKey carries a signed owner identity token
const OwnerTokenMetadataKey = "x-owner-token"

const ownerTokenIssuer = "fundfolio"

type ownerContextKey struct{}

// withOwner stores a verified owner identifier in ctx
func withOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, ownerID)
}

// verifiedOwner returns the owner placed in ctx by IdentityInterceptor
func verifiedOwner(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerContextKey{}).(string)
	return ownerID, ok && ownerID != ""
}

// SignOwnerToken issues an HS256 token whose subject is ownerID
func SignOwnerToken(secret []byte, ownerID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("owner token secret is required")
	}
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		Issuer:    ownerTokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseOwnerToken verifies tokenString and returns its subject
func parseOwnerToken(secret []byte, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ownerTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// ownerScoped lists the methods that act on behalf of one owner
var ownerScoped = map[string]bool{
	AddHoldingMethod:    true,
	ListPortfolioMethod: true,
}

// IdentityInterceptor requires a valid owner token on owner-scoped methods and
// places its subject in the context. A plain x-owner-id header that disagrees
// with the token is rejected.
func IdentityInterceptor(secret []byte) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !ownerScoped[info.FullMethod] {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		tokens := md.Get(OwnerTokenMetadataKey)
		if len(tokens) == 0 {
			return nil, status.Errorf(codes.Unauthenticated, "missing %s header", OwnerTokenMetadataKey)
		}

		ownerID, err := parseOwnerToken(secret, tokens[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, fmt.Sprintf("invalid owner token: %v", err))
		}

		if claimed := md.Get(OwnerMetadataKey); len(claimed) > 0 && claimed[0] != ownerID {
			return nil, status.Error(codes.PermissionDenied, "owner header does not match token")
		}

		return handler(withOwner(ctx, ownerID), req)
	}
}
