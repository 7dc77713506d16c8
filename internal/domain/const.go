package domain

const (
	// Gateway constants
	DEFAULT_IPFS_GATEWAY   = "https://ipfs.io"
	DEFAULT_PINATA_GATEWAY = "gateway.pinata.cloud"
	DEFAULT_PINATA_API_URL = "https://api.pinata.cloud"

	// Starknet constants
	STARKNET_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000000000000000000000000000"

	// Mainnet deployment of the Medialane marketplace
	MAINNET_MARKETPLACE_CONTRACT = "0x059deafbbafbf7051c315cf75a94b03c5547892bc0c6dfa36d7ac7290d4cc33a"
	MAINNET_COLLECTION_CONTRACT  = "0x05e73b7be06d82beeb390a0e0d655f2c9e7cf519658e04f05d9c690ccc41da03"
	MAINNET_START_BLOCK          = 6204232

	// Mirror defaults
	DEFAULT_BLOCK_BATCH_SIZE    = 500
	DEFAULT_EVENTS_CHUNK_SIZE   = 1000
	MAX_EVENT_PAGES             = 100
	DEFAULT_METADATA_BATCH_SIZE = 200

	// Webhook constants
	WEBHOOK_MAX_ATTEMPTS        = 5
	WEBHOOK_RESPONSE_BODY_LIMIT = 2000
)

// SupportedToken describes an ERC20 accepted as payment by the marketplace
type SupportedToken struct {
	Symbol   string
	Address  string
	Decimals int32
}

// SupportedTokens lists the payment tokens known on mainnet
var SupportedTokens = []SupportedToken{
	{Symbol: "USDC", Address: "0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8", Decimals: 6},
	{Symbol: "USDT", Address: "0x068f5c6a61780768455de69077e07e89787839bf8166decfbf92b645209c0fb8", Decimals: 6},
	{Symbol: "ETH", Address: "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7", Decimals: 18},
	{Symbol: "STRK", Address: "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d", Decimals: 18},
}

// LookupSupportedToken returns the supported token for a normalized address
func LookupSupportedToken(address string) (SupportedToken, bool) {
	normalized := NormalizeAddress(address)
	for _, t := range SupportedTokens {
		if t.Address == normalized {
			return t, true
		}
	}
	return SupportedToken{}, false
}
