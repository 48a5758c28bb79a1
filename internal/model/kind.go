package model

import (
	"fmt"

	"InterbankSim/internal/config"
)

// Kind identifies a financial instrument.
type Kind string

const (
	KindDeposit         Kind = "deposit"
	KindRetailCredit    Kind = "retail_credit"
	KindBusinessCredit  Kind = "business_credit"
	KindInterbankLoan   Kind = "interbank_loan"
	KindCentralBankLoan Kind = "central_bank_loan"
)

// Kinds lists every instrument kind in reporting order.
var Kinds = []Kind{KindDeposit, KindRetailCredit, KindBusinessCredit, KindInterbankLoan, KindCentralBankLoan}

// ParseKind maps a configuration key to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown instrument kind %q", config.ErrConfig, s)
}

// IsCredit reports whether the kind is a retail or business credit.
func (k Kind) IsCredit() bool {
	return k == KindRetailCredit || k == KindBusinessCredit
}

// IsLoan reports whether the kind is an interbank or central-bank loan.
func (k Kind) IsLoan() bool {
	return k == KindInterbankLoan || k == KindCentralBankLoan
}
