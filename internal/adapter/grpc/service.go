package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the fund service
const ServiceName = "fundfolio.v1.FundService"

// Fully qualified method names, as seen by interceptors and clients
const (
	AddHoldingMethod    = "/" + ServiceName + "/AddHolding"
	ListPortfolioMethod = "/" + ServiceName + "/ListPortfolio"
	ListCatalogMethod   = "/" + ServiceName + "/ListCatalog"
	RefreshNAVMethod    = "/" + ServiceName + "/RefreshNAV"
)

// FundServiceServer is the server API for the fund service. Requests and
// responses are google.protobuf.Struct messages.
type FundServiceServer interface {
	AddHolding(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPortfolio(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCatalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshNAV(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// FundServiceDesc describes the fund service for grpc.Server registration
var FundServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FundServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddHolding", Handler: unaryHandler(AddHoldingMethod, FundServiceServer.AddHolding)},
		{MethodName: "ListPortfolio", Handler: unaryHandler(ListPortfolioMethod, FundServiceServer.ListPortfolio)},
		{MethodName: "ListCatalog", Handler: unaryHandler(ListCatalogMethod, FundServiceServer.ListCatalog)},
		{MethodName: "RefreshNAV", Handler: unaryHandler(RefreshNAVMethod, FundServiceServer.RefreshNAV)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fundfolio/v1/fund_service",
}

// RegisterFundServiceServer registers srv with the gRPC service registrar
func RegisterFundServiceServer(s grpc.ServiceRegistrar, srv FundServiceServer) {
	s.RegisterService(&FundServiceDesc, srv)
}

type unaryMethod func(FundServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a FundServiceServer method to the grpc method handler shape
func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FundServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FundServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
