package tokens

import (
	"dexflow/apps/dexflow/internal/model"
)

// Ethereum mainnet token set the pipeline trades out of the box.
const (
	MainnetChainID = 1

	WETHContractAddress = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	USDCContractAddress = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	USDTContractAddress = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	DAIContractAddress  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	WBTCContractAddress = "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"
	UNIContractAddress  = "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"
)

// NewMainnetRegistry builds a registry preloaded with the mainnet tokens,
// plus the native pseudo-token backed by WETH.
func NewMainnetRegistry() *Registry {
	r := NewRegistry(MainnetChainID, WETHContractAddress)
	for _, token := range []model.Token{
		{Symbol: NativeSymbol, ChainID: MainnetChainID, ContractAddress: "", Decimals: 18},
		{Symbol: "WETH", ChainID: MainnetChainID, ContractAddress: WETHContractAddress, Decimals: 18},
		{Symbol: "USDC", ChainID: MainnetChainID, ContractAddress: USDCContractAddress, Decimals: 6},
		{Symbol: "USDT", ChainID: MainnetChainID, ContractAddress: USDTContractAddress, Decimals: 6},
		{Symbol: "DAI", ChainID: MainnetChainID, ContractAddress: DAIContractAddress, Decimals: 18},
		{Symbol: "WBTC", ChainID: MainnetChainID, ContractAddress: WBTCContractAddress, Decimals: 8},
		{Symbol: "UNI", ChainID: MainnetChainID, ContractAddress: UNIContractAddress, Decimals: 18},
	} {
		r.Register(token)
	}
	return r
}
