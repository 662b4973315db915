package pricefeed

// fallbackCoins are served when neither the API nor any cached or stored
// snapshot is available.
var fallbackCoins = map[string]CoinPrice{
	"bitcoin": {
		USD:          45000,
		INR:          3742500,
		USD24hChange: 2.5,
		USDMarketCap: 880000000000,
		USD24hVol:    25000000000,
	},
	"ethereum": {
		USD:          3200,
		INR:          266240,
		USD24hChange: 1.8,
		USDMarketCap: 385000000000,
		USD24hVol:    15000000000,
	},
	"tether": {
		USD:          1.00,
		INR:          83.12,
		USD24hChange: 0.01,
		USDMarketCap: 95000000000,
		USD24hVol:    40000000000,
	},
}

func fallbackSnapshot() Snapshot {
	coins := make(map[string]CoinPrice, len(fallbackCoins))
	for id, p := range fallbackCoins {
		coins[id] = p
	}
	return Snapshot{Coins: coins, Source: SourceFallback}
}
