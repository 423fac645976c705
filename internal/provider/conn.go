package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"keybridge/internal/domain"
)

// Conn is a bound provider session.
type Conn struct {
	base      string
	session   string
	http      *http.Client
	transport *http.Transport
}

var _ domain.Conn = (*Conn)(nil)

// Session returns the provider-issued session token.
func (c *Conn) Session() string { return c.session }

// Do sends op and returns the provider's completion.
func (c *Conn) Do(ctx context.Context, op domain.Operation) (*domain.Completion, error) {
	req := OpRequest{
		Session:       c.session,
		CorrelationID: op.CorrelationID.String(),
		Kind:          op.Kind.String(),
		Identity:      op.Identity,
		Input:         op.Input,
	}
	var out CompletionMessage
	if err := c.call(ctx, http.MethodPost, "/v1/ops", req, &out); err != nil {
		return nil, err
	}
	return out.ToCompletion()
}

// Interact answers interaction id.
func (c *Conn) Interact(ctx context.Context, id string, resp domain.InteractionResponse) (*domain.Completion, error) {
	req := InteractionRequest{
		Session:    c.session,
		Passphrase: string(resp.Passphrase),
		Cancel:     resp.Cancel,
	}
	var out CompletionMessage
	if err := c.call(ctx, http.MethodPost, "/v1/interactions/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return out.ToCompletion()
}

// Close ends the provider session and drops idle connections.
func (c *Conn) Close(ctx context.Context) error {
	defer c.transport.CloseIdleConnections()
	return c.call(ctx, http.MethodDelete, "/v1/bind/"+url.PathEscape(c.session), nil, nil)
}

func (c *Conn) call(ctx context.Context, method, path string, in any, out any) error {
	var body *bytes.Buffer
	if in != nil {
		body = new(bytes.Buffer)
		if err := json.NewEncoder(body).Encode(in); err != nil {
			return errors.Wrap(err, "encode request")
		}
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.base+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.base+path, nil)
	}
	if err != nil {
		return errors.WithStack(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WrapError(domain.ConnectionFailed, err, fmt.Sprintf("provider %s %s", method, path))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(method, path, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.WrapError(domain.EmptyResponse, err, "decode provider response")
		}
	}
	return nil
}

// statusError maps a non-2xx response. An unauthorized session means the
// provider dropped our binding.
func statusError(method, path string, resp *http.Response) error {
	var e ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&e)
	msg := fmt.Sprintf("provider %s %s: %s", method, path, resp.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return domain.NewError(domain.ConnectionFailed, msg)
	}
	return domain.NewError(domain.ProviderError, msg)
}
