// Package forward delivers aggregated ledger payloads to the downstream webhook.
package forward

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/clients"
	"github.com/sawpanic/taskbridge/internal/domain"
	netclient "github.com/sawpanic/taskbridge/internal/net/client"
	"github.com/sawpanic/taskbridge/internal/secrets"
	"github.com/sawpanic/taskbridge/internal/signature"
)

// SignatureHeader carries the HMAC of the forwarded body when a forward secret is configured.
const SignatureHeader = "X-Taskbridge-Signature-256"

// Forwarder POSTs payloads to a fixed endpoint.
type Forwarder struct {
	hc       *http.Client
	endpoint string
	secrets  secrets.SecretProvider
}

// New builds a forwarder with a circuit-broken transport.
func New(endpoint string, cfg netclient.WrapperConfig, provider secrets.SecretProvider) *Forwarder {
	cfg.Provider = "downstream"
	hc, _ := netclient.NewHTTPClient(cfg, 0)
	return NewWithHTTPClient(endpoint, hc, provider)
}

func NewWithHTTPClient(endpoint string, hc *http.Client, provider secrets.SecretProvider) *Forwarder {
	return &Forwarder{hc: hc, endpoint: endpoint, secrets: provider}
}

// Forward delivers payload. Only a 2xx response is success.
func (f *Forwarder) Forward(ctx context.Context, payload domain.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Validation("forward.encode", err)
	}

	headers := map[string]string{}
	if secret, err := secrets.Lookup(ctx, f.secrets, secrets.KeyForwardSecret); err == nil {
		headers[SignatureHeader] = signature.Sign(body, secret)
	}

	return clients.Do(ctx, f.hc, clients.Request{
		Op:      "forward.post",
		Service: "downstream",
		Method:  http.MethodPost,
		URL:     f.endpoint,
		Headers: headers,
		RawBody: body,
	})
}
