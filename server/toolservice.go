package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/callcenter/tools"
)

// Tool service procedures. Requests and responses are google.protobuf.Struct
// values shaped like the JSON wire forms of tools.CallRequest,
// tools.Definition, and tools.ToolResult.
const (
	ToolServiceName       = "callcenter.v1.ToolService"
	ListToolsProcedure    = "/" + ToolServiceName + "/ListTools"
	DispatchToolProcedure = "/" + ToolServiceName + "/Dispatch"
)

// NewToolServiceHandler exposes reg over Connect. The returned path is the
// service prefix to mount on a mux.
func NewToolServiceHandler(reg *tools.Registry, opts ...connect.HandlerOption) (string, http.Handler) {
	list := connect.NewUnaryHandler(
		ListToolsProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			msg, err := toStruct(map[string]any{"tools": reg.List()})
			if err != nil {
				return nil, connect.NewError(connect.CodeInternal, err)
			}
			return connect.NewResponse(msg), nil
		},
		opts...,
	)

	dispatch := connect.NewUnaryHandler(
		DispatchToolProcedure,
		func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
			call, err := callRequest(req.Msg)
			if err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
			msg, err := toStruct(reg.Dispatch(ctx, call))
			if err != nil {
				return nil, connect.NewError(connect.CodeInternal, err)
			}
			return connect.NewResponse(msg), nil
		},
		opts...,
	)

	mux := http.NewServeMux()
	mux.Handle(ListToolsProcedure, list)
	mux.Handle(DispatchToolProcedure, dispatch)
	return "/" + ToolServiceName + "/", mux
}

func callRequest(msg *structpb.Struct) (tools.CallRequest, error) {
	if msg == nil {
		return tools.CallRequest{}, errors.New("empty request")
	}
	data, err := msg.MarshalJSON()
	if err != nil {
		return tools.CallRequest{}, err
	}
	req, err := tools.ParseCallRequest(data)
	if err != nil {
		return tools.CallRequest{}, err
	}
	if req.ToolName == "" {
		return tools.CallRequest{}, errors.New("tool_name is required")
	}
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}
	return req, nil
}

// toStruct round-trips v through its JSON form so custom marshalers such as
// tools.ToolResult apply.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := &structpb.Struct{}
	if err := msg.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return msg, nil
}

func fromStruct(msg *structpb.Struct, v any) error {
	data, err := msg.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ToolClient calls a remote tool service. It satisfies relay.Dispatcher so
// a relay can run tools hosted in another process.
type ToolClient struct {
	list     *connect.Client[structpb.Struct, structpb.Struct]
	dispatch *connect.Client[structpb.Struct, structpb.Struct]
}

// NewToolClient creates a client for the tool service at baseURL.
func NewToolClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ToolClient {
	return &ToolClient{
		list:     connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ListToolsProcedure, opts...),
		dispatch: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+DispatchToolProcedure, opts...),
	}
}

// ListTools returns the remote registry's definitions.
func (c *ToolClient) ListTools(ctx context.Context) ([]tools.Definition, error) {
	resp, err := c.list.CallUnary(ctx, connect.NewRequest(&structpb.Struct{}))
	if err != nil {
		return nil, err
	}

	var out struct {
		Tools []tools.Definition `json:"tools"`
	}
	if err := fromStruct(resp.Msg, &out); err != nil {
		return nil, fmt.Errorf("decode tool list: %w", err)
	}
	return out.Tools, nil
}

// Dispatch runs a tool remotely. Transport failures become error results.
func (c *ToolClient) Dispatch(ctx context.Context, req tools.CallRequest) tools.ToolResult {
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}
	msg, err := toStruct(req)
	if err != nil {
		return tools.Failure(fmt.Sprintf("encode tool call: %v", err))
	}

	resp, err := c.dispatch.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return tools.Failure(fmt.Sprintf("tool service unavailable: %v", err))
	}

	var result tools.ToolResult
	if err := fromStruct(resp.Msg, &result); err != nil {
		return tools.Failure(fmt.Sprintf("decode tool result: %v", err))
	}
	return result
}
