package converter

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/iho/financeager/internal/domain"
)

const (
	commandField = "command"
	paramsField  = "params"
)

// ErrMalformedRequest is returned for request messages without a command.
var ErrMalformedRequest = errors.New("malformed request")

// RequestToPb packs a command and its parameters into a request message.
func RequestToPb(command string, params domain.Params) (*structpb.Struct, error) {
	fields := map[string]any{commandField: command}
	if len(params) > 0 {
		fields[paramsField] = map[string]any(params)
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return msg, nil
}

// RequestFromPb unpacks a request message.
func RequestFromPb(msg *structpb.Struct) (string, domain.Params, error) {
	fields := msg.GetFields()

	command := fields[commandField].GetStringValue()
	if command == "" {
		return "", nil, fmt.Errorf("%w: missing command", ErrMalformedRequest)
	}

	params := domain.Params{}
	if value, ok := fields[paramsField]; ok {
		s := value.GetStructValue()
		if s == nil {
			return "", nil, fmt.Errorf("%w: params must be an object", ErrMalformedRequest)
		}
		params = s.AsMap()
	}

	return command, params, nil
}

// ResponseToPb converts a response to its wire message. A nil response
// becomes an empty message.
func ResponseToPb(resp *domain.Response) (*structpb.Struct, error) {
	msg := &structpb.Struct{}
	if resp == nil {
		return msg, nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ResponseFromPb converts a wire message back to a response. An empty
// message yields a nil response.
func ResponseFromPb(msg *structpb.Struct) (*domain.Response, error) {
	if len(msg.GetFields()) == 0 {
		return nil, nil
	}

	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, err
	}

	var resp domain.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}
