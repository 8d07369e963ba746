package contracts

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Sentinel error kinds for the non-RPC, non-decodable failure modes a
// contract call can surface (spec §4.10 / §7).
var (
	ErrUnknownFunction     = errors.New("unknown function")
	ErrUnknownSelector     = errors.New("unknown function selector")
	ErrPendingTransaction  = errors.New("transaction is pending")
	ErrNotADeployment      = errors.New("transaction is not a deployment transaction")
	ErrContractNotDeployed = errors.New("contract is not deployed")
	ErrABI                 = errors.New("abi encode/decode error")
	ErrUnhandledContract   = errors.New("unhandled contract error")
)

// ContractError is a decoded custom on-chain error with every dynamic
// field already interpolated into Message.
type ContractError struct {
	Kind    string
	Message string
	cause   error
}

func (e *ContractError) Error() string { return e.Message }
func (e *ContractError) Unwrap() error { return e.cause }

func newContractError(kind, message string, cause error) *ContractError {
	return &ContractError{Kind: kind, Message: message, cause: cause}
}

// dataErr is the subset of go-ethereum's rpc.DataError interface we need;
// declared locally so this package doesn't have to import rpc just for
// the type assertion.
type dataErr interface {
	Error() string
	ErrorData() interface{}
}

// DecodeError maps a raw contract-call/transact error into a typed,
// human-readable form. Unrecognized payloads fall through as
// ErrUnhandledContract. Of the non-RPC errors, only bind.ErrNoCode
// (wrapped as ErrContractNotDeployed) and "unknown function" errors
// (wrapped as ErrUnknownFunction) get a dedicated sentinel; any other
// non-RPC error, ABI pack/unpack errors included, is returned unchanged.
func DecodeError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, bind.ErrNoCode):
		return fmt.Errorf("%w: %v", ErrContractNotDeployed, err)
	}

	if strings.Contains(err.Error(), "unknown function") {
		return fmt.Errorf("%w: %v", ErrUnknownFunction, err)
	}

	var de dataErr
	if errors.As(err, &de) {
		if payload, ok := extractRevertData(de); ok {
			if decoded := tryDecodeCustomError(payload); decoded != nil {
				return decoded
			}
		}
		return fmt.Errorf("%w: %v", ErrUnhandledContract, err)
	}

	return err
}

// extractRevertData pulls the raw revert bytes out of an RPC data error,
// whose ErrorData() is conventionally a "0x"-prefixed hex string.
func extractRevertData(de dataErr) ([]byte, bool) {
	raw := de.ErrorData()
	var hexStr string
	switch v := raw.(type) {
	case string:
		hexStr = v
	case []byte:
		hexStr = string(v)
	default:
		return nil, false
	}
	hexStr = strings.TrimPrefix(hexStr, "0x")
	if hexStr == "" {
		return nil, false
	}
	data, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, false
	}
	return data, true
}

// tryDecodeCustomError matches revert data's 4-byte selector against the
// Token, Registry, and Coordinator ABIs in turn (the same three schemas
// the contract suite exposes), returning a friendly *ContractError on the
// first match.
func tryDecodeCustomError(data []byte) *ContractError {
	if len(data) < 4 {
		return nil
	}
	var selector [4]byte
	copy(selector[:], data[:4])

	for _, candidate := range []struct {
		abiDef func([4]byte, []byte) (name string, args map[string]interface{}, ok bool)
		format func(name string, args map[string]interface{}) (string, bool)
	}{
		{tokenErrorByID, formatTokenError},
		{registryErrorByID, formatRegistryError},
		{coordinatorErrorByID, formatCoordinatorError},
	} {
		if name, args, ok := candidate.abiDef(selector, data); ok {
			if msg, handled := candidate.format(name, args); handled {
				return newContractError(name, msg, nil)
			}
			return newContractError(name, fmt.Sprintf("contract error %s%v", name, args), nil)
		}
	}
	return nil
}

// lookupABIError resolves a revert selector against one parsed ABI and, on
// a match, unpacks its arguments into a name-keyed map.
func lookupABIError(contractABI abi.ABI, selector [4]byte, data []byte) (string, map[string]interface{}, bool) {
	errDef, err := contractABI.ErrorByID(selector)
	if err != nil {
		return "", nil, false
	}
	args := make(map[string]interface{})
	if err := errDef.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return "", nil, false
	}
	return errDef.Name, args, true
}

func tokenErrorByID(selector [4]byte, data []byte) (string, map[string]interface{}, bool) {
	return lookupABIError(TokenABI, selector, data)
}

func registryErrorByID(selector [4]byte, data []byte) (string, map[string]interface{}, bool) {
	return lookupABIError(RegistryABI, selector, data)
}

func coordinatorErrorByID(selector [4]byte, data []byte) (string, map[string]interface{}, bool) {
	return lookupABIError(CoordinatorABI, selector, data)
}

func formatTokenError(name string, a map[string]interface{}) (string, bool) {
	switch name {
	case "ERC20InsufficientAllowance":
		return fmt.Sprintf("insufficient allowance for %s (have %s, need %s)",
			addrStr(a["spender"]), etherStr(a["allowance"]), etherStr(a["needed"])), true
	case "ERC20InsufficientBalance":
		return fmt.Sprintf("insufficient balance for %s (have %s, need %s)",
			addrStr(a["sender"]), etherStr(a["balance"]), etherStr(a["needed"])), true
	case "ERC20InvalidReceiver":
		return fmt.Sprintf("invalid receiver: %s", addrStr(a["receiver"])), true
	case "ERC20InvalidApprover":
		return fmt.Sprintf("invalid approver: %s", addrStr(a["approver"])), true
	case "ERC20InvalidSender":
		return fmt.Sprintf("invalid sender: %s", addrStr(a["sender"])), true
	case "ERC20InvalidSpender":
		return fmt.Sprintf("invalid spender: %s", addrStr(a["spender"])), true
	}
	return "", false
}

func formatRegistryError(name string, a map[string]interface{}) (string, bool) {
	switch name {
	case "AlreadyRegistered":
		return fmt.Sprintf("already registered: kind %v", a["_0"]), true
	case "InsufficientFunds":
		return "insufficient funds", true
	case "NotRegistered":
		return fmt.Sprintf("not registered: kind %v", a["_0"]), true
	case "OwnableInvalidOwner":
		return fmt.Sprintf("invalid owner: %s", addrStr(a["owner"])), true
	case "OwnableUnauthorizedAccount":
		return fmt.Sprintf("unauthorized account: %s", addrStr(a["account"])), true
	case "TooEarlyToUnregister":
		return fmt.Sprintf("too early to unregister: %v secs remaining", a["minTimeToWait"]), true
	case "NotWhitelisted":
		return fmt.Sprintf("validator %s is not whitelisted", addrStr(a["validator"])), true
	case "FailedCall":
		return "failed call", true
	default:
		return formatCommonOZError(name, a)
	}
}

func formatCoordinatorError(name string, a map[string]interface{}) (string, bool) {
	switch name {
	case "AlreadyResponded":
		return fmt.Sprintf("already responded to task %v", a["taskId"]), true
	case "InsufficientFees":
		return fmt.Sprintf("insufficient fees (have: %s, want: %s)", etherStr(a["have"]), etherStr(a["want"])), true
	case "InvalidParameterRange":
		return fmt.Sprintf("invalid parameter range: %v <= %v <= %v", a["min"], a["have"], a["max"]), true
	case "InvalidNonce":
		return fmt.Sprintf("invalid nonce for task %v (nonce: %v)", a["taskId"], a["nonce"]), true
	case "InvalidTaskStatus":
		return fmt.Sprintf("invalid status for task %v (have: %v, want: %v)", a["taskId"], a["have"], a["want"]), true
	case "InvalidValidation":
		return fmt.Sprintf("invalid validation for task %v", a["taskId"]), true
	case "NotRegistered":
		return fmt.Sprintf("not registered: %s", addrStr(a["oracle"])), true
	default:
		return formatCommonOZError(name, a)
	}
}

// formatCommonOZError handles the OpenZeppelin upgradeable-contract
// boilerplate errors shared by both Registry and Coordinator.
func formatCommonOZError(name string, a map[string]interface{}) (string, bool) {
	switch name {
	case "OwnableInvalidOwner":
		return fmt.Sprintf("invalid owner: %s", addrStr(a["owner"])), true
	case "OwnableUnauthorizedAccount":
		return fmt.Sprintf("unauthorized account: %s", addrStr(a["account"])), true
	case "FailedInnerCall":
		return "failed inner call", true
	case "ERC1967InvalidImplementation":
		return fmt.Sprintf("invalid implementation: %s", addrStr(a["implementation"])), true
	case "UUPSUnauthorizedCallContext":
		return "unauthorized UUPS call context", true
	case "UUPSUnsupportedProxiableUUID":
		return fmt.Sprintf("unsupported UUPS proxiable UUID: %v", a["slot"]), true
	case "ERC1967NonPayable":
		return "ERC1967 non-payable", true
	case "InvalidInitialization":
		return "invalid initialization", true
	case "AddressEmptyCode":
		return fmt.Sprintf("address %s is empty", addrStr(a["target"])), true
	case "NotInitializing":
		return "not initializing", true
	}
	return "", false
}

func addrStr(v interface{}) string {
	if a, ok := v.(common.Address); ok {
		return a.Hex()
	}
	return fmt.Sprintf("%v", v)
}

func etherStr(v interface{}) string {
	if b, ok := v.(*big.Int); ok {
		return FormatEther(b)
	}
	return fmt.Sprintf("%v", v)
}
