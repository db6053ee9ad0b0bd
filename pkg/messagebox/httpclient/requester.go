package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bsv-blockchain/go-peerpay/pkg/constants"
	clients "github.com/bsv-blockchain/go-sdk/auth/clients/authhttp"
	"github.com/go-resty/resty/v2"
)

type response struct {
	statusCode int
	body       []byte
}

// requester posts a JSON body to the MessageBox server.
type requester interface {
	post(ctx context.Context, url string, body []byte) (*response, error)
}

// authRequester sends requests with BRC-103 mutual authentication.
type authRequester struct {
	fetch *clients.AuthFetch
}

func (r *authRequester) post(ctx context.Context, url string, body []byte) (*response, error) {
	res, err := r.fetch.Fetch(ctx, url, &clients.SimplifiedFetchRequestOptions{
		Method: http.MethodPost,
		Headers: map[string]string{
			constants.HeaderContentType: constants.ContentTypeJSON,
		},
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("authenticated request to %s failed: %w", url, err)
	}
	defer func() { _ = res.Body.Close() }()

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	return &response{statusCode: res.StatusCode, body: content}, nil
}

// plainRequester sends unauthenticated requests, asserting the caller identity with a header.
type plainRequester struct {
	client      *resty.Client
	identityKey func(ctx context.Context) (string, error)
}

func (r *plainRequester) post(ctx context.Context, url string, body []byte) (*response, error) {
	identityKey, err := r.identityKey(ctx)
	if err != nil {
		return nil, err
	}

	res, err := r.client.R().
		SetContext(ctx).
		SetHeader(constants.HeaderContentType, constants.ContentTypeJSON).
		SetHeader(constants.HeaderIdentityKey, identityKey).
		SetBody(body).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}

	return &response{statusCode: res.StatusCode(), body: res.Body()}, nil
}
