package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/iho/financeager/internal/adapter/grpc/converter"
	grpcerrors "github.com/iho/financeager/internal/adapter/grpc/errors"
	pb "github.com/iho/financeager/internal/adapter/grpc/pb/financeager/v1"
	"github.com/iho/financeager/internal/usecase"
)

// LedgerServer implements the gRPC LedgerService on top of a command runner.
type LedgerServer struct {
	pb.UnimplementedLedgerServiceServer
	commands usecase.CommandRunner
}

// NewLedgerServer creates a new LedgerServer
func NewLedgerServer(commands usecase.CommandRunner) *LedgerServer {
	return &LedgerServer{commands: commands}
}

// Run executes the command carried by req.
func (s *LedgerServer) Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	command, params, err := converter.RequestFromPb(req)
	if err != nil {
		return nil, grpcerrors.MapDomainError(err)
	}

	resp, err := s.commands.Run(ctx, command, params)
	if err != nil {
		return nil, grpcerrors.MapDomainError(err)
	}

	out, err := converter.ResponseToPb(resp)
	if err != nil {
		return nil, grpcerrors.MapDomainError(err)
	}
	return out, nil
}
