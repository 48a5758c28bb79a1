package model

// Application is a deposit or credit request routed to one bank.
type Application struct {
	Kind          Kind
	Volume        float64
	Maturity      int
	PaymentPeriod int
}
