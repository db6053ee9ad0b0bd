// Package authctx carries the request, the response writer and the authenticated identity through a request context.
package authctx

import (
	"context"
	"fmt"
	"net/http"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

type contextKey string

// IdentityKey stores the authenticated identity in context.
const IdentityKey contextKey = "identity_key"

// RequestKey stores request in context.
const RequestKey contextKey = "http_request"

// ResponseKey stores response writer in context.
const ResponseKey contextKey = "http_response"

func WithRequest(ctx context.Context, request *http.Request) context.Context {
	return context.WithValue(ctx, RequestKey, request)
}

func WithResponse(ctx context.Context, response http.ResponseWriter) context.Context {
	return context.WithValue(ctx, ResponseKey, response)
}

func WithIdentity(ctx context.Context, identity *ec.PublicKey) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func ShouldGetResponse(ctx context.Context) (http.ResponseWriter, error) {
	contextValue := ctx.Value(ResponseKey)
	if contextValue == nil {
		return nil, fmt.Errorf("%s not found in context", ResponseKey)
	}

	resp, ok := contextValue.(http.ResponseWriter)
	if !ok {
		return nil, fmt.Errorf("%s contains unexpected type %T", ResponseKey, contextValue)
	}

	return resp, nil
}

func ShouldGetRequest(ctx context.Context) (*http.Request, error) {
	contextValue := ctx.Value(RequestKey)
	if contextValue == nil {
		return nil, fmt.Errorf("%s not found in context", RequestKey)
	}

	req, ok := contextValue.(*http.Request)
	if !ok {
		return nil, fmt.Errorf("%s contains unexpected type %T", RequestKey, contextValue)
	}

	return req, nil
}

// IdentityFromContext returns the identity key (DER hex) authenticated for the request.
func IdentityFromContext(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(IdentityKey).(*ec.PublicKey)
	if !ok || identity == nil {
		return "", false
	}
	return identity.ToDERHex(), true
}
