package recovery

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/bannersonthefly/banners-backend/pkg/money"
	"github.com/bannersonthefly/banners-backend/pkg/types"
)

const (
	subjectReminder   = "You left something behind at Banners On The Fly"
	subjectDiscount10 = "Here's 10% off to complete your banner order"
	subjectDiscount15 = "LAST CHANCE: 15% off your custom banners (expires soon!)"
)

// emailPlan holds the per-sequence send configuration.
type emailPlan struct {
	Subject            string
	DiscountPercentage int
	ExpirationHours    int
}

func planForSequence(sequence int, discountExpiryHrs int) (emailPlan, error) {
	switch sequence {
	case 1:
		return emailPlan{Subject: subjectReminder}, nil
	case 2:
		return emailPlan{Subject: subjectDiscount10, DiscountPercentage: 10, ExpirationHours: discountExpiryHrs}, nil
	case 3:
		return emailPlan{Subject: subjectDiscount15, DiscountPercentage: 15, ExpirationHours: 24}, nil
	default:
		return emailPlan{}, fmt.Errorf("invalid email sequence %d", sequence)
	}
}

var recoveryEmailTmpl = template.Must(template.New("recovery").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:Arial,Helvetica,sans-serif;color:#1f2937;">
  <h2>{{.Headline}}</h2>
  <p>Your custom banners are still waiting in your cart:</p>
  <ul>
    {{range .Items}}<li>{{.Title}} &times; {{.Qty}}</li>
    {{end}}
  </ul>
  <p><strong>Cart total: {{.Total}}</strong></p>
  {{if .DiscountCode}}<p>Use code <strong>{{.DiscountCode}}</strong> at checkout for {{.DiscountPercentage}}% off.</p>{{end}}
  <p><a href="{{.RecoveryURL}}" style="background:#2563eb;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none;">Finish your order</a></p>
</body>
</html>`))

type recoveryEmailData struct {
	Headline           string
	Items              []types.SnapshotItem
	Total              string
	DiscountCode       string
	DiscountPercentage int
	RecoveryURL        string
}

func renderRecoveryEmail(plan emailPlan, snapshot types.CartSnapshot, totalCents int, discountCode, recoveryURL string) (string, error) {
	headline := "You left something behind"
	if plan.DiscountPercentage > 0 {
		headline = fmt.Sprintf("Save %d%% on your banner order", plan.DiscountPercentage)
	}
	var buf bytes.Buffer
	err := recoveryEmailTmpl.Execute(&buf, recoveryEmailData{
		Headline:           headline,
		Items:              snapshot.Items,
		Total:              money.Format(totalCents),
		DiscountCode:       discountCode,
		DiscountPercentage: plan.DiscountPercentage,
		RecoveryURL:        recoveryURL,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
