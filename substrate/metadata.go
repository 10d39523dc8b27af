// Copyright (C) 2023 - Tillitis AB
// SPDX-License-Identifier: GPL-2.0-only

package substrate

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MetadataFetcher gets the metadata the app needs to decode and show
// a transaction blob.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, chainID string, blob []byte) ([]byte, error)
}

// MetadataClient fetches metadata from a metadata service over HTTP.
type MetadataClient struct {
	url    string
	client *http.Client
}

const defaultMetadataTimeout = 30 * time.Second

// NewMetadataClient returns a client for the service at url.
func NewMetadataClient(url string, options ...func(*MetadataClient)) *MetadataClient {
	c := &MetadataClient{
		url:    url,
		client: &http.Client{Timeout: defaultMetadataTimeout},
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

func WithHTTPClient(client *http.Client) func(*MetadataClient) {
	return func(c *MetadataClient) {
		c.client = client
	}
}

type metadataRequest struct {
	TxBlob string        `json:"txBlob"`
	Chain  metadataChain `json:"chain"`
}

type metadataChain struct {
	ID string `json:"id"`
}

type metadataResponse struct {
	TxMetadata string `json:"txMetadata"`
}

// FetchMetadata posts the blob to the service and returns the decoded
// metadata.
func (c *MetadataClient) FetchMetadata(ctx context.Context, chainID string, blob []byte) ([]byte, error) {
	body, err := json.Marshal(metadataRequest{
		TxBlob: hex.EncodeToString(blob),
		Chain:  metadataChain{ID: chainID},
	})
	if err != nil {
		return nil, fmt.Errorf("Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metadata service: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var mr metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("Decode: %w", err)
	}

	metadata, err := hex.DecodeString(strings.TrimPrefix(mr.TxMetadata, "0x"))
	if err != nil {
		return nil, fmt.Errorf("DecodeString: %w", err)
	}

	return metadata, nil
}
