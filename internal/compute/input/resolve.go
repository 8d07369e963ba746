// Package input implements the task-input resolver (C3): turning the
// raw bytes a Coordinator task carries into a closed compute.GenerationRequest.
package input

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute"
	"github.com/firstbatchxyz/dria-oracle-node/internal/storage"
)

// Resolve turns raw task input into a GenerationRequest: it decodes raw
// as UTF-8, dereferences it through the blob store if it encodes a Key,
// then tries, in order, a chat-history object, a workflow document, and
// finally falls back to a bare string.
func Resolve(ctx context.Context, raw []byte, blobs storage.Client) (compute.GenerationRequest, error) {
	text, err := resolveText(ctx, raw, blobs)
	if err != nil {
		return nil, err
	}

	if chat, ok := tryDecodeStrict[compute.ChatHistoryRequest](text); ok {
		return chat, nil
	}
	if wf, ok := tryDecodeStrict[compute.Workflow](text); ok {
		return compute.WorkflowRequest{Workflow: wf}, nil
	}
	return compute.StringRequest{Prompt: text}, nil
}

// resolveText decodes raw as a (possibly invalid) UTF-8 string and, if it
// encodes a blob-store Key, dereferences it and returns the fetched text
// instead.
func resolveText(ctx context.Context, raw []byte, blobs storage.Client) (string, error) {
	text := string(raw)

	if key, ok := blobs.IsKey(raw); ok {
		fetched, err := blobs.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("input: fetching blob %s/%s: %w", key.Scheme, key.ID, err)
		}
		text = string(fetched)
	}
	return text, nil
}

// tryDecodeStrict decodes text into T, rejecting unknown fields and
// trailing data so that e.g. a bare quoted string never silently
// "succeeds" as some zero-valued struct.
func tryDecodeStrict[T any](text string) (T, bool) {
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, false
	}
	if dec.More() {
		return out, false
	}
	return out, true
}
