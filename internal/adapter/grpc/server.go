package grpc

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/fundfolio-backend/internal/domain"
	"github.com/simaogato/fundfolio-backend/internal/usecase/catalog"
	"github.com/simaogato/fundfolio-backend/internal/usecase/fundsync"
	"github.com/simaogato/fundfolio-backend/internal/usecase/portfolio"
)

// OwnerMetadataKey carries the authenticated owner's identifier
const OwnerMetadataKey = "x-owner-id"

// Server implements FundServiceServer
type Server struct {
	PortfolioService *portfolio.Service
	CatalogService   *catalog.Service
	SyncService      *fundsync.Service
	Logger           arbor.ILogger
}

// NewServer creates a new gRPC server instance
func NewServer(
	portfolioService *portfolio.Service,
	catalogService *catalog.Service,
	syncService *fundsync.Service,
	logger arbor.ILogger,
) *Server {
	return &Server{
		PortfolioService: portfolioService,
		CatalogService:   catalogService,
		SyncService:      syncService,
		Logger:           logger,
	}
}

// ownerFromContext returns the owner verified by IdentityInterceptor, or the
// owner named in request metadata when identity tokens are not in use
func ownerFromContext(ctx context.Context) (string, error) {
	if ownerID, ok := verifiedOwner(ctx); ok {
		return ownerID, nil
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	owners := md.Get(OwnerMetadataKey)
	if len(owners) == 0 || owners[0] == "" {
		return "", status.Errorf(codes.Unauthenticated, "missing %s header", OwnerMetadataKey)
	}
	return owners[0], nil
}

// AddHolding handles the AddHolding RPC: {scheme_code, quantity}
func (s *Server) AddHolding(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	quantity, err := integerField(req, "quantity")
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid quantity: %v", err)
	}

	input := portfolio.AddHoldingInput{
		OwnerID:    ownerID,
		SchemeCode: stringField(req, "scheme_code"),
		Quantity:   quantity,
	}

	entry, err := s.PortfolioService.AddHolding(ctx, input)
	if err != nil {
		return nil, s.mapError(err)
	}

	return s.respond(entryToMap(*entry))
}

// ListPortfolio handles the ListPortfolio RPC
func (s *Server) ListPortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ownerID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.PortfolioService.ListPortfolio(ctx, ownerID)
	if err != nil {
		return nil, s.mapError(err)
	}

	holdings := make([]any, 0, len(entries))
	for _, e := range entries {
		holdings = append(holdings, entryToMap(e))
	}

	return s.respond(map[string]any{
		"holdings":    holdings,
		"total_value": totalToString(entries),
	})
}

// ListCatalog handles the ListCatalog RPC, returning provider records as fetched
func (s *Server) ListCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	records, err := s.CatalogService.ListCatalog(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}

	schemes := make([]any, 0, len(records))
	for _, r := range records {
		raw := r.Raw
		if raw == nil {
			raw = map[string]any{"Scheme_Code": r.SchemeCode, "Scheme_Name": r.Name}
		}
		schemes = append(schemes, raw)
	}

	return s.respond(map[string]any{"schemes": schemes})
}

// RefreshNAV handles the RefreshNAV RPC by running a batch refresh inline
func (s *Server) RefreshNAV(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	report, err := s.SyncService.RefreshAllNAV(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return s.respond(reportToMap(report))
}

func (s *Server) respond(m map[string]any) (*structpb.Struct, error) {
	out, err := newStruct(m)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to encode response")
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// mapError converts domain errors to gRPC status errors
func (s *Server) mapError(err error) error {
	if err == nil {
		return nil
	}

	code := errorCode(err)
	if code == codes.Internal || code == codes.Unavailable {
		s.Logger.Error().Err(err).Str("code", code.String()).Msg("Request failed")
	}
	return status.Error(code, err.Error())
}

func errorCode(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidOwner),
		errors.Is(err, domain.ErrInvalidSchemeCode):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrInvalidRecord):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrFetchFailed):
		return codes.Unavailable
	case errors.Is(err, domain.ErrConfigurationMissing):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrFundNotFound),
		errors.Is(err, domain.ErrHoldingNotFound):
		return codes.NotFound
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}
