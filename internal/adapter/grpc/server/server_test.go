package server_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/iho/financeager/internal/adapter/grpc/converter"
	"github.com/iho/financeager/internal/adapter/grpc/middleware"
	pb "github.com/iho/financeager/internal/adapter/grpc/pb/financeager/v1"
	"github.com/iho/financeager/internal/adapter/grpc/server"
	"github.com/iho/financeager/internal/adapter/repository/memory"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
	"github.com/iho/financeager/internal/usecase/mocks"
)

func TestLedgerServer_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uint64(2)
	commands := mocks.NewMockCommandRunner(ctrl)
	commands.EXPECT().
		Run(gomock.Any(), domain.CommandRemove, domain.Params{"eid": float64(2)}).
		Return(&domain.Response{ID: &id}, nil)

	req, err := converter.RequestToPb(domain.CommandRemove, domain.Params{"eid": 2})
	require.NoError(t, err)

	resp, err := server.NewLedgerServer(commands).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, float64(2), resp.Fields["id"].GetNumberValue())
}

func TestLedgerServer_RunErrorMapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	commands := mocks.NewMockCommandRunner(ctrl)
	commands.EXPECT().Run(gomock.Any(), domain.CommandPeriods, gomock.Any()).Return(nil, errors.New("disk full"))

	req, err := converter.RequestToPb(domain.CommandPeriods, nil)
	require.NoError(t, err)

	_, err = server.NewLedgerServer(commands).Run(context.Background(), req)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLedgerServer_RunMalformedRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := server.NewLedgerServer(mocks.NewMockCommandRunner(ctrl)).Run(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func startServer(t *testing.T) pb.LedgerServiceClient {
	t.Helper()

	repo := memory.NewEntryRepository()
	commands := usecase.NewCommandService(usecase.NewLedgerUseCase(repo, ""))

	lis := bufconn.Listen(1 << 20)
	srv := server.New(commands, server.Options{
		Logger:      zerolog.Nop(),
		Idempotency: memory.NewIdempotencyStore(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return pb.NewLedgerServiceClient(conn)
}

func run(t *testing.T, ctx context.Context, client pb.LedgerServiceClient, command string, params domain.Params) *domain.Response {
	t.Helper()

	req, err := converter.RequestToPb(command, params)
	require.NoError(t, err)

	out, err := client.Run(ctx, req)
	require.NoError(t, err)

	resp, err := converter.ResponseFromPb(out)
	require.NoError(t, err)
	return resp
}

func TestServer_RoundTrip(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	resp := run(t, ctx, client, domain.CommandAdd, domain.Params{
		"name": "bread", "value": -2.5, "category": "groceries", "period": "2024", "date": "2024-01-01",
	})
	require.NotNil(t, resp.ID)
	assert.Equal(t, uint64(1), *resp.ID)

	resp = run(t, ctx, client, domain.CommandGet, domain.Params{"eid": 1, "period": "2024"})
	require.NotNil(t, resp.Element)
	assert.Equal(t, "bread", resp.Element.Name)
	assert.Equal(t, -2.5, resp.Element.Value)

	resp = run(t, ctx, client, domain.CommandList, domain.Params{"period": "2024"})
	require.NotNil(t, resp.Elements)
	require.Len(t, resp.Elements.Categories, 1)
	assert.Equal(t, "groceries", resp.Elements.Categories[0].Name)

	resp = run(t, ctx, client, domain.CommandPeriods, nil)
	assert.Equal(t, []string{"2024"}, resp.Periods)

	resp = run(t, ctx, client, domain.CommandRemove, domain.Params{"eid": 9, "period": "2024"})
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "entry not found")

	resp = run(t, ctx, client, domain.CommandStop, nil)
	assert.Nil(t, resp)
}

func TestServer_IdempotentAdd(t *testing.T) {
	client := startServer(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), middleware.IdempotencyKeyHeader, "01HZX")

	params := domain.Params{"name": "rent", "value": -800, "period": "2024"}
	first := run(t, ctx, client, domain.CommandAdd, params)
	second := run(t, ctx, client, domain.CommandAdd, params)

	require.NotNil(t, first.ID)
	require.NotNil(t, second.ID)
	assert.Equal(t, *first.ID, *second.ID)

	resp := run(t, context.Background(), client, domain.CommandList, domain.Params{"period": "2024"})
	require.Len(t, resp.Elements.Categories, 1)
	assert.Len(t, resp.Elements.Categories[0].Entries, 1)
}
