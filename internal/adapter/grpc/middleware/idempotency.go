package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/iho/financeager/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the metadata key for idempotency
	IdempotencyKeyHeader = "x-idempotency-key"
	// IdempotencyReplayHeader is set on responses served from the store.
	IdempotencyReplayHeader = "x-idempotency-replay"
)

type idempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	Response    []byte `json:"response"`
}

// IdempotencyInterceptor replays the stored response of calls carrying an
// idempotency key that was already used. Calls without a key pass through.
func IdempotencyInterceptor(store usecase.IdempotencyStore, logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}

		keys := md.Get(IdempotencyKeyHeader)
		if len(keys) == 0 {
			return handler(ctx, req)
		}

		idempotencyKey := keys[0]
		if idempotencyKey == "" {
			return nil, status.Error(codes.InvalidArgument, "idempotency key cannot be empty")
		}

		msg, ok := req.(proto.Message)
		if !ok {
			return handler(ctx, req)
		}

		requestHash, err := hashRequest(msg)
		if err != nil {
			return nil, status.Error(codes.Internal, "failed to generate request hash")
		}

		cacheKey := fmt.Sprintf("grpc:%s:%s", info.FullMethod, idempotencyKey)

		exists, cached, err := store.CheckAndSet(ctx, cacheKey, nil, usecase.IdempotencyKeyTTL)
		if err != nil {
			// Degraded mode without idempotency.
			logger.Warn().Err(err).Str("method", info.FullMethod).Msg("idempotency check failed")
			return handler(ctx, req)
		}

		if exists {
			return replay(ctx, cached, requestHash)
		}

		resp, err := handler(ctx, req)
		if err != nil {
			// Don't keep failed calls - allow retry
			if releaseErr := store.Release(ctx, cacheKey); releaseErr != nil {
				logger.Warn().Err(releaseErr).Str("method", info.FullMethod).Msg("idempotency release failed")
			}
			return resp, err
		}

		if record, err := encodeRecord(requestHash, resp); err != nil {
			logger.Warn().Err(err).Str("method", info.FullMethod).Msg("idempotency record encoding failed")
		} else if err := store.Update(ctx, cacheKey, record, usecase.IdempotencyKeyTTL); err != nil {
			logger.Warn().Err(err).Str("method", info.FullMethod).Msg("idempotency update failed")
		}

		return resp, nil
	}
}

func replay(ctx context.Context, cached []byte, requestHash string) (any, error) {
	if string(cached) == usecase.IdempotencyPending {
		return nil, status.Error(codes.Aborted, "request with this idempotency key is still in progress")
	}

	var record idempotencyRecord
	if err := json.Unmarshal(cached, &record); err != nil {
		return nil, status.Error(codes.Internal, "corrupt idempotency record")
	}
	if record.RequestHash != requestHash {
		return nil, status.Error(codes.InvalidArgument, "idempotency key reused with different request body")
	}

	var packed anypb.Any
	if err := proto.Unmarshal(record.Response, &packed); err != nil {
		return nil, status.Error(codes.Internal, "corrupt idempotency record")
	}
	resp, err := packed.UnmarshalNew()
	if err != nil {
		return nil, status.Error(codes.Internal, "corrupt idempotency record")
	}

	_ = grpc.SetHeader(ctx, metadata.Pairs(IdempotencyReplayHeader, "true"))
	return resp, nil
}

func encodeRecord(requestHash string, resp any) ([]byte, error) {
	msg, ok := resp.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", resp)
	}

	packed, err := anypb.New(msg)
	if err != nil {
		return nil, err
	}
	data, err := proto.Marshal(packed)
	if err != nil {
		return nil, err
	}

	return json.Marshal(idempotencyRecord{RequestHash: requestHash, Response: data})
}

// hashRequest generates a SHA-256 hash of the request for fingerprinting
func hashRequest(msg proto.Message) (string, error) {
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
