package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The ABI fragments below cover exactly the surface this worker calls:
// reads, writes, the StatusUpdate event, and the custom errors the
// decoder (errors.go) needs to recognize. They are hand-written in the
// shape `abigen` would produce, since the full Coordinator/Registry/
// fee-token contracts are out of scope (spec §1) and only consumed
// through this ABI.
const coordinatorABIJSON = `[
  {"type":"function","name":"requests","stateMutability":"view","inputs":[{"name":"taskId","type":"uint256"}],
   "outputs":[{"name":"requester","type":"address"},{"name":"input","type":"bytes"},{"name":"models","type":"bytes"},
              {"name":"protocol","type":"bytes32"},{"name":"difficulty","type":"uint8"},
              {"name":"numGenerations","type":"uint40"},{"name":"numValidations","type":"uint40"},
              {"name":"status","type":"uint8"}]},
  {"type":"function","name":"getResponses","stateMutability":"view","inputs":[{"name":"taskId","type":"uint256"}],
   "outputs":[{"name":"responses","type":"tuple[]","components":[
      {"name":"responder","type":"address"},{"name":"output","type":"bytes"},
      {"name":"metadata","type":"bytes"},{"name":"score","type":"uint256"}]}]},
  {"type":"function","name":"getValidations","stateMutability":"view","inputs":[{"name":"taskId","type":"uint256"}],
   "outputs":[{"name":"validations","type":"tuple[]","components":[
      {"name":"validator","type":"address"},{"name":"scores","type":"uint256[]"},
      {"name":"metadata","type":"bytes"}]}]},
  {"type":"function","name":"getBestResponse","stateMutability":"view","inputs":[{"name":"taskId","type":"uint256"}],
   "outputs":[{"name":"response","type":"tuple","components":[
      {"name":"responder","type":"address"},{"name":"output","type":"bytes"},
      {"name":"metadata","type":"bytes"},{"name":"score","type":"uint256"}]}]},
  {"type":"function","name":"nextTaskId","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getFee","stateMutability":"view","inputs":[{"name":"parameters","type":"tuple","components":[
      {"name":"difficulty","type":"uint8"},{"name":"numGenerations","type":"uint40"},{"name":"numValidations","type":"uint40"}]}],
   "outputs":[{"name":"totalFee","type":"uint256"},{"name":"generatorFee","type":"uint256"},{"name":"validatorFee","type":"uint256"}]},
  {"type":"function","name":"feeToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"registry","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"request","stateMutability":"nonpayable","inputs":[
      {"name":"protocol","type":"bytes32"},{"name":"input","type":"bytes"},{"name":"models","type":"bytes"},
      {"name":"parameters","type":"tuple","components":[
        {"name":"difficulty","type":"uint8"},{"name":"numGenerations","type":"uint40"},{"name":"numValidations","type":"uint40"}]}],
   "outputs":[{"name":"taskId","type":"uint256"}]},
  {"type":"function","name":"respond","stateMutability":"nonpayable","inputs":[
      {"name":"taskId","type":"uint256"},{"name":"nonce","type":"uint256"},
      {"name":"output","type":"bytes"},{"name":"metadata","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"validate","stateMutability":"nonpayable","inputs":[
      {"name":"taskId","type":"uint256"},{"name":"nonce","type":"uint256"},
      {"name":"scores","type":"uint256[]"},{"name":"metadata","type":"bytes"}],"outputs":[]},
  {"type":"event","name":"StatusUpdate","anonymous":false,"inputs":[
      {"name":"taskId","type":"uint256","indexed":true},{"name":"protocol","type":"bytes32","indexed":false},
      {"name":"statusBefore","type":"uint8","indexed":false},{"name":"statusAfter","type":"uint8","indexed":false}]},
  {"type":"error","name":"AlreadyResponded","inputs":[{"name":"taskId","type":"uint256"}]},
  {"type":"error","name":"InsufficientFees","inputs":[{"name":"have","type":"uint256"},{"name":"want","type":"uint256"}]},
  {"type":"error","name":"InvalidParameterRange","inputs":[{"name":"have","type":"uint256"},{"name":"min","type":"uint256"},{"name":"max","type":"uint256"}]},
  {"type":"error","name":"InvalidNonce","inputs":[{"name":"taskId","type":"uint256"},{"name":"nonce","type":"uint256"}]},
  {"type":"error","name":"InvalidTaskStatus","inputs":[{"name":"taskId","type":"uint256"},{"name":"have","type":"uint8"},{"name":"want","type":"uint8"}]},
  {"type":"error","name":"InvalidValidation","inputs":[{"name":"taskId","type":"uint256"}]},
  {"type":"error","name":"NotRegistered","inputs":[{"name":"oracle","type":"address"}]},
  {"type":"error","name":"OwnableInvalidOwner","inputs":[{"name":"owner","type":"address"}]},
  {"type":"error","name":"OwnableUnauthorizedAccount","inputs":[{"name":"account","type":"address"}]},
  {"type":"error","name":"FailedInnerCall","inputs":[]},
  {"type":"error","name":"ERC1967InvalidImplementation","inputs":[{"name":"implementation","type":"address"}]},
  {"type":"error","name":"UUPSUnauthorizedCallContext","inputs":[]},
  {"type":"error","name":"UUPSUnsupportedProxiableUUID","inputs":[{"name":"slot","type":"bytes32"}]},
  {"type":"error","name":"ERC1967NonPayable","inputs":[]},
  {"type":"error","name":"InvalidInitialization","inputs":[]},
  {"type":"error","name":"AddressEmptyCode","inputs":[{"name":"target","type":"address"}]},
  {"type":"error","name":"NotInitializing","inputs":[]}
]`

const registryABIJSON = `[
  {"type":"function","name":"register","stateMutability":"nonpayable","inputs":[{"name":"kind","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"unregister","stateMutability":"nonpayable","inputs":[{"name":"kind","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"isRegistered","stateMutability":"view","inputs":[{"name":"addr","type":"address"},{"name":"kind","type":"uint8"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isWhitelisted","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getStakeAmount","stateMutability":"view","inputs":[{"name":"kind","type":"uint8"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"token","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"addToWhitelist","stateMutability":"nonpayable","inputs":[{"name":"addrs","type":"address[]"}],"outputs":[]},
  {"type":"error","name":"AlreadyRegistered","inputs":[{"name":"_0","type":"uint8"}]},
  {"type":"error","name":"InsufficientFunds","inputs":[]},
  {"type":"error","name":"NotRegistered","inputs":[{"name":"_0","type":"uint8"}]},
  {"type":"error","name":"OwnableInvalidOwner","inputs":[{"name":"owner","type":"address"}]},
  {"type":"error","name":"OwnableUnauthorizedAccount","inputs":[{"name":"account","type":"address"}]},
  {"type":"error","name":"TooEarlyToUnregister","inputs":[{"name":"minTimeToWait","type":"uint256"}]},
  {"type":"error","name":"NotWhitelisted","inputs":[{"name":"validator","type":"address"}]},
  {"type":"error","name":"FailedCall","inputs":[]},
  {"type":"error","name":"ERC1967InvalidImplementation","inputs":[{"name":"implementation","type":"address"}]},
  {"type":"error","name":"UUPSUnauthorizedCallContext","inputs":[]},
  {"type":"error","name":"UUPSUnsupportedProxiableUUID","inputs":[{"name":"slot","type":"bytes32"}]},
  {"type":"error","name":"ERC1967NonPayable","inputs":[]},
  {"type":"error","name":"InvalidInitialization","inputs":[]},
  {"type":"error","name":"AddressEmptyCode","inputs":[{"name":"target","type":"address"}]},
  {"type":"error","name":"NotInitializing","inputs":[]}
]`

const erc20ABIJSON = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"error","name":"ERC20InsufficientAllowance","inputs":[{"name":"spender","type":"address"},{"name":"allowance","type":"uint256"},{"name":"needed","type":"uint256"}]},
  {"type":"error","name":"ERC20InsufficientBalance","inputs":[{"name":"sender","type":"address"},{"name":"balance","type":"uint256"},{"name":"needed","type":"uint256"}]},
  {"type":"error","name":"ERC20InvalidReceiver","inputs":[{"name":"receiver","type":"address"}]},
  {"type":"error","name":"ERC20InvalidApprover","inputs":[{"name":"approver","type":"address"}]},
  {"type":"error","name":"ERC20InvalidSender","inputs":[{"name":"sender","type":"address"}]},
  {"type":"error","name":"ERC20InvalidSpender","inputs":[{"name":"spender","type":"address"}]}
]`

func mustParseABI(jsonStr string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(jsonStr))
	if err != nil {
		panic("contracts: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

// CoordinatorABI, RegistryABI, and TokenABI are parsed once at package init
// and shared by the bound-contract wrappers and the error decoder.
var (
	CoordinatorABI = mustParseABI(coordinatorABIJSON)
	RegistryABI    = mustParseABI(registryABIJSON)
	TokenABI       = mustParseABI(erc20ABIJSON)
)
