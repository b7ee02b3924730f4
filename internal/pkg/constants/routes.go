package constants

// Static route constants
const (
	APIv1Route          = "/api/v1"
	WalletRoute         = "/api/v1/wallet"
	WalletLedgerRoute   = "/api/v1/wallet/ledger"
	WalletPacksRoute    = "/api/v1/wallet/packs"
	PurchasesRoute      = "/api/v1/wallet/purchases"
	PayfrontWebhookPath = "/webhooks/payfront"
	AdminRoute          = "/admin"
)
