package input

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/firstbatchxyz/dria-oracle-node/internal/compute"
	"github.com/firstbatchxyz/dria-oracle-node/internal/storage"
)

type fakeBlobs struct {
	data map[string][]byte
}

func (f fakeBlobs) IsKey(raw []byte) (storage.Key, bool) {
	var k storage.Key
	if err := json.Unmarshal(raw, &k); err != nil || k.Scheme == "" || k.ID == "" {
		return storage.Key{}, false
	}
	return k, true
}

func (f fakeBlobs) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	return f.data[key.ID], nil
}

func (f fakeBlobs) Put(ctx context.Context, data []byte) (storage.Key, error) {
	return storage.Key{}, nil
}

func (f fakeBlobs) PutIfLarge(ctx context.Context, data []byte) ([]byte, bool, error) {
	return data, false, nil
}

func TestResolveInlineString(t *testing.T) {
	got, err := Resolve(context.Background(), []byte("foobar"), fakeBlobs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := got.(compute.StringRequest)
	if !ok {
		t.Fatalf("got %T, want StringRequest", got)
	}
	if s.Prompt != "foobar" {
		t.Errorf("Prompt = %q, want %q", s.Prompt, "foobar")
	}
}

func TestResolveQuotedStringKeepsQuotes(t *testing.T) {
	got, err := Resolve(context.Background(), []byte(`"Hello, Arweave!"`), fakeBlobs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := got.(compute.StringRequest)
	if s.Prompt != `"Hello, Arweave!"` {
		t.Errorf("Prompt = %q, want quoted string preserved", s.Prompt)
	}
}

func TestResolveBlobDereference(t *testing.T) {
	blobs := fakeBlobs{data: map[string][]byte{"tx123": []byte("downloaded content")}}
	raw := []byte(`{"arweave":"tx123"}`)

	got, err := Resolve(context.Background(), raw, blobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := got.(compute.StringRequest)
	if s.Prompt != "downloaded content" {
		t.Errorf("Prompt = %q, want %q", s.Prompt, "downloaded content")
	}
}

func TestResolveChatHistory(t *testing.T) {
	raw := []byte(`{"history_id":0,"content":"what is 2+2?"}`)
	got, err := Resolve(context.Background(), raw, fakeBlobs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := got.(compute.ChatHistoryRequest)
	if !ok {
		t.Fatalf("got %T, want ChatHistoryRequest", got)
	}
	if c.HistoryID != 0 || c.Content != "what is 2+2?" {
		t.Errorf("unexpected ChatHistoryRequest: %+v", c)
	}
}

func TestResolveWorkflowDocument(t *testing.T) {
	raw := []byte(`{"config":{"max_time":10,"max_steps":2},"tasks":[{"id":"t1","operator":"generation"}],"entry_task_id":"t1"}`)
	got, err := Resolve(context.Background(), raw, fakeBlobs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wfReq, ok := got.(compute.WorkflowRequest)
	if !ok {
		t.Fatalf("got %T, want WorkflowRequest", got)
	}
	if wfReq.Workflow.EntryID != "t1" {
		t.Errorf("EntryID = %q, want t1", wfReq.Workflow.EntryID)
	}
}
