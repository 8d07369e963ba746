package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKeyJSONRoundTrip(t *testing.T) {
	k := Key{Scheme: "arweave", ID: "abc123"}
	data, err := json.Marshal(k)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"arweave":"abc123"}` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var decoded Key
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != k {
		t.Fatalf("decoded = %+v, want %+v", decoded, k)
	}
}

func TestIsKeyRejectsNonKeyPayloads(t *testing.T) {
	c := New("", "", "arweave")
	if _, ok := c.IsKey([]byte(`hello world`)); ok {
		t.Error("plain string should not be a key")
	}
	if _, ok := c.IsKey([]byte(`{"a":"b","c":"d"}`)); ok {
		t.Error("multi-scheme object should not be a key")
	}
	if _, ok := c.IsKey([]byte(`{"arweave":"abc"}`)); !ok {
		t.Error("valid single-scheme object should be recognized as a key")
	}
}

func TestPutIfLargeThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"uploaded-id"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, "arweave", WithByteLimit(8))

	small := []byte("short")
	out, ok, err := c.PutIfLarge(context.Background(), small)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("small payload should not be offloaded")
	}
	if string(out) != string(small) {
		t.Errorf("small payload should pass through unchanged, got %s", out)
	}

	large := []byte("this payload is definitely over the limit")
	out, ok, err = c.PutIfLarge(context.Background(), large)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("large payload should be offloaded")
	}
	key, recognized := c.IsKey(out)
	if !recognized {
		t.Fatalf("offloaded output should decode as a key, got %s", out)
	}
	if key.ID != "uploaded-id" || key.Scheme != "arweave" {
		t.Errorf("unexpected key: %+v", key)
	}
}

func TestReadOnlyClientRejectsUploads(t *testing.T) {
	c := NewReadOnly("http://example.invalid", "arweave")
	if _, err := c.Put(context.Background(), []byte("data")); err != ErrReadOnly {
		t.Errorf("Put error = %v, want ErrReadOnly", err)
	}
	if _, _, err := c.PutIfLarge(context.Background(), make([]byte, DefaultByteLimit+1)); err != ErrReadOnly {
		t.Errorf("PutIfLarge error = %v, want ErrReadOnly", err)
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, srv.URL, "arweave")
	_, err := c.Get(context.Background(), Key{Scheme: "arweave", ID: "missing"})
	if err == nil {
		t.Fatal("expected error for missing blob")
	}
}
