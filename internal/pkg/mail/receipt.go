package mail

import (
	"fmt"

	"github.com/MarketLensHQ/MarketLens/app/models"
)

// SendPurchaseReceipt mails a confirmation after a token pack was credited.
func SendPurchaseReceipt(to string, purchase *models.Purchase) error {
	subject := fmt.Sprintf("Your MarketLens token pack (%d tokens)", purchase.TokenAmount)
	body := fmt.Sprintf(
		"<p>Thanks for your purchase!</p>"+
			"<p>Pack: %s<br>Tokens: %d<br>Price: %.2f %s<br>Order: %s</p>"+
			"<p>The tokens are already available in your wallet.</p>",
		purchase.PackID,
		purchase.TokenAmount,
		float64(purchase.PriceCents)/100,
		purchase.Currency,
		purchase.ID,
	)
	return SendMail(to, subject, body)
}
