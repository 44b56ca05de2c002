package tx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Signer co-signs a draft before funding. Implementations may append outputs
// (for example an identity signature) but must not touch existing inputs.
type Signer interface {
	CoSign(ctx context.Context, t *transaction.Transaction) error
}

// HTTPDoer is the subset of *http.Client used by RemoteSigner.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxSignerResponseSize caps the co-signer response body.
const maxSignerResponseSize = 4 << 20

// RemoteSigner posts the draft to a key host at Host/sign and replaces the
// draft's outputs with the ones returned.
type RemoteSigner struct {
	Host      string
	AuthToken string
	Client    HTTPDoer // nil = 30s timeout client
}

type remoteSignRequest struct {
	RawTx string `json:"rawtx"`
}

type remoteSignResponse struct {
	RawTx string `json:"rawtx"`
}

var _ Signer = (*RemoteSigner)(nil)

// CoSign implements Signer. Any failure is reported as ErrSigning naming the
// host.
func (r *RemoteSigner) CoSign(ctx context.Context, t *transaction.Transaction) error {
	if t == nil {
		return fmt.Errorf("%w: transaction", ErrNilParam)
	}
	signed, err := r.roundTrip(ctx, t.Hex())
	if err != nil {
		return fmt.Errorf("%w: remote signer %s: %w", ErrSigning, r.Host, err)
	}
	if len(signed.Inputs) != len(t.Inputs) {
		return fmt.Errorf("%w: remote signer %s: returned %d inputs, draft has %d",
			ErrSigning, r.Host, len(signed.Inputs), len(t.Inputs))
	}
	if len(signed.Outputs) < len(t.Outputs) {
		return fmt.Errorf("%w: remote signer %s: dropped outputs", ErrSigning, r.Host)
	}
	for i, out := range t.Outputs {
		if !bytes.Equal(signed.Outputs[i].Bytes(), out.Bytes()) {
			return fmt.Errorf("%w: remote signer %s: output %d modified", ErrSigning, r.Host, i)
		}
	}
	t.Outputs = append(t.Outputs, signed.Outputs[len(t.Outputs):]...)
	return nil
}

func (r *RemoteSigner) roundTrip(ctx context.Context, rawHex string) (*transaction.Transaction, error) {
	if r.Host == "" {
		return nil, fmt.Errorf("empty host")
	}
	body, err := json.Marshal(remoteSignRequest{RawTx: rawHex})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimSuffix(r.Host, "/") + "/sign"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.AuthToken)
	}

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out remoteSignResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSignerResponseSize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	signed, err := transaction.NewTransactionFromHex(out.RawTx)
	if err != nil {
		return nil, fmt.Errorf("parse returned tx: %w", err)
	}
	return signed, nil
}
