package adapter

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
)

// RPCClient defines the JSON-RPC operations used by chain providers
//
//go:generate mockgen -source=rpc.go -destination=../mocks/rpc.go -package=mocks -mock_names=RPCClient=MockRPCClient
type RPCClient interface {
	// CallContext performs a JSON-RPC call with positional params and decodes the result
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// DialRPC connects to a JSON-RPC 2.0 endpoint over HTTP(S) or WebSocket
func DialRPC(ctx context.Context, url string, httpClient *http.Client) (RPCClient, error) {
	opts := []rpc.ClientOption{}
	if httpClient != nil {
		opts = append(opts, rpc.WithHTTPClient(httpClient))
	}
	return rpc.DialOptions(ctx, url, opts...)
}
