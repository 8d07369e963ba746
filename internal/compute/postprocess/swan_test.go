package postprocess

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSwanPurchaseEncodesValidAddresses(t *testing.T) {
	input := `
some blabla here and there

<shop_list>
0x4200000000000000000000000000000000000001
0x4200000000000000000000000000000000000002
</shop_list>

some more blabla here
`
	p := NewSwanPurchase()
	out, metadata, offload, err := p.PostProcess(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offload {
		t.Error("swan output should not be offloaded")
	}
	if string(metadata) != input {
		t.Error("metadata should equal the original output")
	}

	decoded, err := addressArrayArgs.Unpack(out)
	if err != nil {
		t.Fatalf("unpacking abi-encoded output: %v", err)
	}
	addrs := decoded[0].([]common.Address)
	if len(addrs) != 2 {
		t.Fatalf("got %d addresses, want 2", len(addrs))
	}
	if addrs[0] != common.HexToAddress("0x4200000000000000000000000000000000000001") {
		t.Errorf("addrs[0] = %s", addrs[0])
	}
}

func TestSwanPurchaseDropsInvalidAddresses(t *testing.T) {
	input := "<shop_list>\nnot-an-address\n0x4200000000000000000000000000000000000001\n</shop_list>"
	p := NewSwanPurchase()
	out, _, _, err := p.PostProcess(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := addressArrayArgs.Unpack(out)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	addrs := decoded[0].([]common.Address)
	if len(addrs) != 1 {
		t.Fatalf("got %d addresses, want 1 (invalid entry dropped)", len(addrs))
	}
}

func TestSwanPurchaseMissingMarkersError(t *testing.T) {
	p := NewSwanPurchase()
	_, _, _, err := p.PostProcess("no markers here")
	if err == nil {
		t.Fatal("expected error for missing markers")
	}
	if !strings.Contains(err.Error(), "<shop_list>") || !strings.Contains(err.Error(), "</shop_list>") {
		t.Errorf("error should name both markers, got: %v", err)
	}
}

func TestSwanPurchaseJSONArrayList(t *testing.T) {
	input := `<shop_list>["0x4200000000000000000000000000000000000001","0x4200000000000000000000000000000000000002"]</shop_list>`
	p := NewSwanPurchase()
	out, _, _, err := p.PostProcess(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := addressArrayArgs.Unpack(out)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(decoded[0].([]common.Address)) != 2 {
		t.Fatalf("expected 2 addresses from JSON array form")
	}
}

func TestRegistryLookupFallsBackToIdentity(t *testing.T) {
	reg := NewRegistry(NewSwanPurchase())
	if _, ok := reg.Lookup("unregistered-protocol").(Identity); !ok {
		t.Error("expected Identity fallback for unregistered protocol")
	}
	if _, ok := reg.Lookup(SwanProtocol).(SwanPurchase); !ok {
		t.Error("expected SwanPurchase for its registered protocol")
	}
}

func TestIdentityPassesThrough(t *testing.T) {
	out, metadata, offload, err := Identity{}.PostProcess("hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "hello world" || string(metadata) != "hello world" {
		t.Errorf("identity should pass output through unchanged, got out=%q metadata=%q", out, metadata)
	}
	if !offload {
		t.Error("identity should offload if large")
	}
}
