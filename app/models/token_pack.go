package models

// TokenPack is a purchasable bundle of AI tokens. Packs are a static code
// table: pricing lives in the repo, the payment provider only sees amounts.
type TokenPack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Tokens     int64  `json:"tokens"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

var tokenPacks = []TokenPack{
	{ID: "starter", Name: "Starter", Tokens: 5000, PriceCents: 499, Currency: "EUR"},
	{ID: "analyst", Name: "Analyst", Tokens: 15000, PriceCents: 1299, Currency: "EUR"},
	{ID: "desk", Name: "Desk", Tokens: 50000, PriceCents: 3999, Currency: "EUR"},
}

// AllTokenPacks returns the purchasable packs in display order.
func AllTokenPacks() []TokenPack {
	out := make([]TokenPack, len(tokenPacks))
	copy(out, tokenPacks)
	return out
}

// FindTokenPack looks up a pack by ID; ok is false for unknown packs.
func FindTokenPack(id string) (TokenPack, bool) {
	for _, p := range tokenPacks {
		if p.ID == id {
			return p, true
		}
	}
	return TokenPack{}, false
}
