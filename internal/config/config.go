// Package config reads the worker's runtime configuration from the
// environment. There is no .env loading here: that layer is explicitly
// out of scope, and operators are expected to export variables through
// their process supervisor of choice.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultTxTimeout    = 30 * time.Second
	defaultBlobByteCap  = 1024
	envSecretKey        = "SECRET_KEY"
	envRPCURL           = "RPC_URL"
	envTxTimeoutSecs    = "TX_TIMEOUT_SECS"
	envCoordinatorAddr  = "COORDINATOR_ADDRESS"
	envBlobUploadURL    = "BLOB_UPLOAD_URL"
	envBlobDownloadURL  = "BLOB_DOWNLOAD_URL"
	envBlobByteLimit    = "BLOB_BYTE_LIMIT"
	envBlobWalletPath   = "BLOB_WALLET_PATH"
)

// Config holds everything the worker needs to connect to the chain, sign
// transactions, and talk to the blob store.
type Config struct {
	// SecretKey is the hex-encoded ECDSA private key used to sign
	// transactions and derive the worker's address.
	SecretKey string
	// RPCURL is the JSON-RPC endpoint of the target chain.
	RPCURL string
	// TxTimeout bounds how long the worker waits for a transaction
	// receipt before giving up (spec §4.1 / oraclenode.ErrReceiptTimeout).
	TxTimeout time.Duration
	// CoordinatorOverride, when non-nil, replaces the chain-ID-derived
	// Coordinator address lookup (contracts.GetCoordinatorAddress).
	CoordinatorOverride *common.Address

	Blob BlobConfig
}

// BlobConfig configures the content-addressed blob store client.
type BlobConfig struct {
	UploadURL   string
	DownloadURL string
	// ByteLimit is the threshold above which PutIfLarge offloads input to
	// the blob store instead of posting it inline (spec §4.3).
	ByteLimit int
	// WalletPath, when empty, puts the client in read-only mode: Get and
	// IsKey still work, Put and PutIfLarge fail fast.
	WalletPath string
}

// ReadOnly reports whether this configuration lacks upload credentials.
func (b BlobConfig) ReadOnly() bool { return b.WalletPath == "" }

// Load reads Config from the process environment, applying defaults for
// every optional field and failing on a missing required one.
func Load() (Config, error) {
	secretKey := os.Getenv(envSecretKey)
	if secretKey == "" {
		return Config{}, fmt.Errorf("config: %s is required", envSecretKey)
	}
	rpcURL := os.Getenv(envRPCURL)
	if rpcURL == "" {
		return Config{}, fmt.Errorf("config: %s is required", envRPCURL)
	}

	txTimeout := defaultTxTimeout
	if raw := os.Getenv(envTxTimeoutSecs); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("config: %s must be a positive integer, got %q", envTxTimeoutSecs, raw)
		}
		txTimeout = time.Duration(secs) * time.Second
	}

	var coordinatorOverride *common.Address
	if raw := os.Getenv(envCoordinatorAddr); raw != "" {
		if !common.IsHexAddress(raw) {
			return Config{}, fmt.Errorf("config: %s is not a valid address: %q", envCoordinatorAddr, raw)
		}
		addr := common.HexToAddress(raw)
		coordinatorOverride = &addr
	}

	byteLimit := defaultBlobByteCap
	if raw := os.Getenv(envBlobByteLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("config: %s must be a non-negative integer, got %q", envBlobByteLimit, raw)
		}
		byteLimit = n
	}

	return Config{
		SecretKey:           secretKey,
		RPCURL:              rpcURL,
		TxTimeout:           txTimeout,
		CoordinatorOverride: coordinatorOverride,
		Blob: BlobConfig{
			UploadURL:   os.Getenv(envBlobUploadURL),
			DownloadURL: os.Getenv(envBlobDownloadURL),
			ByteLimit:   byteLimit,
			WalletPath:  os.Getenv(envBlobWalletPath),
		},
	}, nil
}
