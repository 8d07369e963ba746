package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		envSecretKey, envRPCURL, envTxTimeoutSecs, envCoordinatorAddr,
		envBlobUploadURL, envBlobDownloadURL, envBlobByteLimit, envBlobWalletPath,
	} {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresSecretKeyAndRPCURL(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error with no env set")
	}

	t.Setenv(envSecretKey, "0xabc")
	if _, err := Load(); err == nil {
		t.Fatal("expected error with RPC_URL missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(envSecretKey, "0xabc")
	t.Setenv(envRPCURL, "http://localhost:8545")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TxTimeout != defaultTxTimeout {
		t.Errorf("TxTimeout = %v, want default %v", cfg.TxTimeout, defaultTxTimeout)
	}
	if cfg.Blob.ByteLimit != defaultBlobByteCap {
		t.Errorf("ByteLimit = %d, want default %d", cfg.Blob.ByteLimit, defaultBlobByteCap)
	}
	if !cfg.Blob.ReadOnly() {
		t.Error("expected read-only blob config with no wallet path")
	}
	if cfg.CoordinatorOverride != nil {
		t.Error("expected nil CoordinatorOverride by default")
	}
}

func TestLoadRejectsInvalidCoordinatorAddress(t *testing.T) {
	clearEnv(t)
	t.Setenv(envSecretKey, "0xabc")
	t.Setenv(envRPCURL, "http://localhost:8545")
	t.Setenv(envCoordinatorAddr, "not-an-address")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid coordinator address")
	}
}

func TestLoadRejectsBadTxTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv(envSecretKey, "0xabc")
	t.Setenv(envRPCURL, "http://localhost:8545")
	t.Setenv(envTxTimeoutSecs, "-5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative tx timeout")
	}
}
