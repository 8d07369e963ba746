// Package storage implements the content-addressed blob store client
// used to offload oversized task input/output, mirroring the Arweave/Irys
// upload-and-dereference flow the network relies on (spec §4.3/§4.4).
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultByteLimit is the size above which PutIfLarge offloads a payload
// to the blob store instead of returning it unchanged.
const DefaultByteLimit = 1024

var (
	// ErrReadOnly is returned by Put/PutIfLarge when the client has no
	// upload credentials configured.
	ErrReadOnly = errors.New("storage: client is read-only")
	// ErrNotFound is returned by Get when the backing store has no blob
	// for the given key.
	ErrNotFound = errors.New("storage: blob not found")
)

// Key is a content-addressed reference to a blob, wire-encoded as
// {"<scheme>":"<id>"} (e.g. {"arweave":"<txid>"}).
type Key struct {
	Scheme string
	ID     string
}

// MarshalJSON encodes the key as a single-entry object.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{k.Scheme: k.ID})
}

// UnmarshalJSON decodes a single-entry {"<scheme>":"<id>"} object. Any
// other shape is rejected.
func (k *Key) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("storage: key must have exactly one scheme, got %d", len(m))
	}
	for scheme, id := range m {
		k.Scheme = scheme
		k.ID = id
	}
	return nil
}

// Client resolves and stores blobs by content-addressed key.
type Client interface {
	// IsKey reports whether raw looks like an encoded Key rather than an
	// inline payload, without any network access.
	IsKey(raw []byte) (Key, bool)
	// Get dereferences a key, fetching the blob it points to.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Put uploads data unconditionally and returns its key.
	Put(ctx context.Context, data []byte) (Key, error)
	// PutIfLarge uploads data only if it exceeds the client's byte
	// threshold; otherwise it returns data unchanged with ok=false.
	PutIfLarge(ctx context.Context, data []byte) (encoded []byte, ok bool, err error)
}

// HTTPClient is the default Client, talking to an Arweave/Irys-style
// gateway over plain HTTP.
type HTTPClient struct {
	uploadURL   string
	downloadURL string
	byteLimit   int
	readOnly    bool
	scheme      string
	httpClient  *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithByteLimit overrides DefaultByteLimit.
func WithByteLimit(n int) Option {
	return func(c *HTTPClient) { c.byteLimit = n }
}

// WithHTTPClient overrides the default *http.Client (timeouts, transport).
func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = h }
}

// New builds a read-write HTTPClient. uploadURL/downloadURL are the
// gateway's upload and download base endpoints; scheme is the key scheme
// this client produces and recognizes (e.g. "arweave").
func New(uploadURL, downloadURL, scheme string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		uploadURL:   uploadURL,
		downloadURL: downloadURL,
		byteLimit:   DefaultByteLimit,
		scheme:      scheme,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewReadOnly builds a download-only HTTPClient: Get and IsKey work, Put
// and PutIfLarge always fail with ErrReadOnly. Used when no wallet is
// configured (config.BlobConfig.ReadOnly).
func NewReadOnly(downloadURL, scheme string, opts ...Option) *HTTPClient {
	c := New("", downloadURL, scheme, opts...)
	c.readOnly = true
	return c
}

// IsKey reports whether raw decodes as a single-scheme Key object.
func (c *HTTPClient) IsKey(raw []byte) (Key, bool) {
	var k Key
	if err := json.Unmarshal(raw, &k); err != nil {
		return Key{}, false
	}
	if k.Scheme == "" || k.ID == "" {
		return Key{}, false
	}
	return k, true
}

// Get fetches the blob referenced by key from the download gateway.
func (c *HTTPClient) Get(ctx context.Context, key Key) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.downloadURL, key.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key.ID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage: get %s: unexpected status %d", key.ID, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Put uploads data unconditionally and returns the key it was stored
// under.
func (c *HTTPClient) Put(ctx context.Context, data []byte) (Key, error) {
	if c.readOnly {
		return Key{}, ErrReadOnly
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(data))
	if err != nil {
		return Key{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Key{}, fmt.Errorf("storage: put: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Key{}, fmt.Errorf("storage: put: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Key{}, fmt.Errorf("storage: put: decoding response: %w", err)
	}
	return Key{Scheme: c.scheme, ID: out.ID}, nil
}

// Resolve returns raw as text, dereferencing it through client first if it
// looks like an encoded Key. Used by generation/validation handlers to
// transparently accept either an inline payload or an offloaded one.
func Resolve(ctx context.Context, raw []byte, client Client) (string, error) {
	if key, ok := client.IsKey(raw); ok {
		fetched, err := client.Get(ctx, key)
		if err != nil {
			return "", err
		}
		return string(fetched), nil
	}
	return string(raw), nil
}

// PutIfLarge uploads data and returns its JSON-encoded key only when data
// exceeds the client's byte threshold; otherwise it returns data as-is
// with ok=false, so callers can embed it inline (spec §4.3 step: offload
// decision).
func (c *HTTPClient) PutIfLarge(ctx context.Context, data []byte) ([]byte, bool, error) {
	if len(data) <= c.byteLimit {
		return data, false, nil
	}
	if c.readOnly {
		return nil, false, ErrReadOnly
	}
	key, err := c.Put(ctx, data)
	if err != nil {
		return nil, false, err
	}
	encoded, err := json.Marshal(key)
	if err != nil {
		return nil, false, err
	}
	return encoded, true, nil
}
