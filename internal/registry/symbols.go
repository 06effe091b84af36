package registry

// tokenMeta is static metadata for well-known reserve assets.
type tokenMeta struct {
	Symbol   string
	Decimals int
}

// knownTokens maps lowercase asset addresses to their metadata. Assets not in
// the table fall back to "UNKNOWN" with 18 decimals.
var knownTokens = map[string]tokenMeta{
	"0xd6c774778564ec1973b24a15ee4a5d00742e6575": {Symbol: "WETH", Decimals: 18},
	"0xb8057e942399f3714d40c0be7f4391ee447f42c9": {Symbol: "wstETH", Decimals: 18},
	"0x1b8ea7c3b44465be550ebaef50ff6bc5f25ee50c": {Symbol: "WBTC", Decimals: 8},
	"0x005104eb2fd93a0c8f26e18934289ab91596e6bf": {Symbol: "USDC", Decimals: 6},
	"0xe0f11265b326df8f5c3e1db6aa8dcd506fd4cc5b": {Symbol: "DAI", Decimals: 18},
	"0x2aa4fc36242b9e4e169542305d16dff2cc0ecdae": {Symbol: "LINK", Decimals: 18},
	"0xbf088f3702000ebd6728b647a511ff0ae6867fc6": {Symbol: "AAVE", Decimals: 18},
	"0x9204befc95e67e6c8b5f58e09659cc4658af8730": {Symbol: "cbETH", Decimals: 18},
	"0xd9126e24fc2e1bb395cca8b03c5e2aefabac35ea": {Symbol: "USDT", Decimals: 6},
	"0x5e0e0d4a40b5d20b51b3f591485b00513c68b519": {Symbol: "rETH", Decimals: 18},
	"0xae1107d669f519fcb8ec58304a8cce04cbcb0349": {Symbol: "LUSD", Decimals: 18},
	"0x28614b7a40ca9e9c6bf0ca66f4f841594d3223b9": {Symbol: "CRV", Decimals: 18},
}

// lookupMeta returns metadata for an asset, with the UNKNOWN/18 fallback.
func lookupMeta(asset string) tokenMeta {
	if m, ok := knownTokens[asset]; ok {
		return m
	}
	return tokenMeta{Symbol: "UNKNOWN", Decimals: 18}
}
