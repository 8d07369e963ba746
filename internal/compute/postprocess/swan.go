package postprocess

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// SwanProtocol is the protocol prefix SwanPurchase registers under.
const SwanProtocol = "swan-agent-purchase"

// SwanPurchase extracts an address list from between two markers in the
// LLM's output and ABI-encodes it as address[] for the Swan agent
// purchase flow. The original output is kept as metadata.
type SwanPurchase struct {
	StartMarker string
	EndMarker   string
}

// NewSwanPurchase builds a SwanPurchase processor with the default
// <shop_list>/</shop_list> markers.
func NewSwanPurchase() SwanPurchase {
	return SwanPurchase{StartMarker: "<shop_list>", EndMarker: "</shop_list>"}
}

func (SwanPurchase) Protocol() string { return SwanProtocol }

var addressArrayArgs = abi.Arguments{{Type: mustArrayType()}}

func mustArrayType() abi.Type {
	t, err := abi.NewType("address[]", "", nil)
	if err != nil {
		panic("postprocess: invalid address[] abi type: " + err.Error())
	}
	return t
}

func (p SwanPurchase) PostProcess(output string) ([]byte, []byte, bool, error) {
	roi, err := regionOfInterest(output, p.StartMarker, p.EndMarker)
	if err != nil {
		return nil, nil, false, err
	}

	candidates := parseShoppingList(roi)

	addresses := make([]common.Address, 0, len(candidates))
	for _, c := range candidates {
		if !common.IsHexAddress(c) {
			log.Warn("could not parse address from shopping list entry", "entry", c)
			continue
		}
		addresses = append(addresses, common.HexToAddress(c))
	}

	encoded, err := addressArrayArgs.Pack(addresses)
	if err != nil {
		return nil, nil, false, fmt.Errorf("postprocess: abi-encoding address list: %w", err)
	}

	return encoded, []byte(output), false, nil
}

// regionOfInterest returns the text between start and end markers
// (markers excluded), or an error naming both markers and a bounded
// excerpt of output if either marker is absent.
func regionOfInterest(output, start, end string) (string, error) {
	startIdx := strings.Index(output, start)
	if startIdx < 0 {
		return "", fmt.Errorf("could not find %s ... %s markers in output: %s", start, end, excerpt(output))
	}
	afterStart := startIdx + len(start)
	endIdx := strings.Index(output[afterStart:], end)
	if endIdx < 0 {
		return "", fmt.Errorf("could not find %s ... %s markers in output: %s", start, end, excerpt(output))
	}
	return output[afterStart : afterStart+endIdx], nil
}

const excerptLimit = 200

func excerpt(s string) string {
	if len(s) <= excerptLimit {
		return s
	}
	return s[:excerptLimit]
}

// parseShoppingList tries a JSON array of strings first, falling back to
// splitting the region by lines and trimming/discarding empties.
func parseShoppingList(roi string) []string {
	var list []string
	if err := json.Unmarshal([]byte(roi), &list); err == nil {
		return list
	}

	var out []string
	for _, line := range strings.Split(roi, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
