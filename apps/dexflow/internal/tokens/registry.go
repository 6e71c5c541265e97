package tokens

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"dexflow/apps/dexflow/internal/model"
)

// NativeSymbol is the pseudo-symbol orders use for the chain's native asset.
// It has no contract of its own; stages wrap it before swapping.
const NativeSymbol = "ETH"

// Registry holds the tokens known to the pipeline for one chain, plus the
// wrapped-native contract used for wrap/unwrap around swaps.
type Registry struct {
	chainID       int64
	wrappedNative common.Address
	bySymbol      map[string]*model.Token
	byAddress     map[common.Address]*model.Token
}

func NewRegistry(chainID int64, wrappedNativeAddress string) *Registry {
	return &Registry{
		chainID:       chainID,
		wrappedNative: common.HexToAddress(wrappedNativeAddress),
		bySymbol:      make(map[string]*model.Token),
		byAddress:     make(map[common.Address]*model.Token),
	}
}

// Register adds or replaces a token in the registry.
func (r *Registry) Register(token model.Token) {
	t := token
	r.bySymbol[strings.ToUpper(t.Symbol)] = &t
	r.byAddress[common.HexToAddress(t.ContractAddress)] = &t
}

// GetBySymbol returns a token by its symbol, case-insensitively.
func (r *Registry) GetBySymbol(symbol string) (*model.Token, bool) {
	token, exists := r.bySymbol[strings.ToUpper(symbol)]
	return token, exists
}

// GetByAddress returns a token by its contract address.
func (r *Registry) GetByAddress(address string) (*model.Token, bool) {
	token, exists := r.byAddress[common.HexToAddress(address)]
	return token, exists
}

// GetAll returns all registered tokens.
func (r *Registry) GetAll() []model.Token {
	all := make([]model.Token, 0, len(r.bySymbol))
	for _, token := range r.bySymbol {
		all = append(all, *token)
	}
	return all
}

// IsSupported checks if a symbol is registered.
func (r *Registry) IsSupported(symbol string) bool {
	_, exists := r.GetBySymbol(symbol)
	return exists
}

// IsNative reports whether the token stands for the chain's native asset.
func (r *Registry) IsNative(token model.Token) bool {
	return strings.EqualFold(token.Symbol, NativeSymbol) || token.ContractAddress == ""
}

// WrappedNativeAddress is the contract stages wrap the native asset into
// before swapping and unwrap from after.
func (r *Registry) WrappedNativeAddress() string {
	return r.wrappedNative.Hex()
}

// ForSwap substitutes the wrapped-native contract for the native
// pseudo-token so the router sees a real ERC20 on both sides.
func (r *Registry) ForSwap(token model.Token) model.Token {
	if !r.IsNative(token) {
		return token
	}
	wrapped := token
	wrapped.ContractAddress = r.wrappedNative.Hex()
	return wrapped
}
