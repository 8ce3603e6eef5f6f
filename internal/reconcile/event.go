package reconcile

// Asaas webhook event names we care about. Anything else is acknowledged
// and ignored.
const (
	EventPaymentCreated   = "PAYMENT_CREATED"
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentReceived  = "PAYMENT_RECEIVED"
)

// PaymentEvent is the gateway's webhook envelope, already parsed. The gate
// hands it to the engine untouched.
type PaymentEvent struct {
	Event   string       `json:"event"`
	Payment EventPayment `json:"payment"`
}

type EventPayment struct {
	ID                string   `json:"id"`
	Value             float64  `json:"value"`
	NetValue          *float64 `json:"netValue"`
	Customer          string   `json:"customer"`
	ExternalReference string   `json:"externalReference"`
	BillingType       string   `json:"billingType"`
	CpfCnpj           string   `json:"cpfCnpj"`
	Email             string   `json:"email"`
}

// Confirmed reports whether the event kind means money actually arrived.
// Only these kinds may activate a subscription.
func (e PaymentEvent) Confirmed() bool {
	return e.Event == EventPaymentConfirmed || e.Event == EventPaymentReceived
}
