package enums

import "fmt"

// TransactionType classifies balance movements.
type TransactionType string

const (
	TransactionDeposit TransactionType = "deposit"
	TransactionPayment TransactionType = "payment"
	TransactionRefund  TransactionType = "refund"
)

var validTransactionTypes = []TransactionType{TransactionDeposit, TransactionPayment, TransactionRefund}

func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

// TransactionStatus tracks approval of deposits and settlement of payments.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionApproved  TransactionStatus = "approved"
	TransactionRejected  TransactionStatus = "rejected"
	TransactionCompleted TransactionStatus = "completed"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionPending,
	TransactionApproved,
	TransactionRejected,
	TransactionCompleted,
}

func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}

// PaymentMethod is the channel a customer used to fund a deposit.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentCash         PaymentMethod = "cash"
	PaymentBalance      PaymentMethod = "balance"
)

var validDepositMethods = []PaymentMethod{PaymentBankTransfer, PaymentCard, PaymentCash}

// IsDepositMethod reports whether customers may fund a deposit through m.
func (m PaymentMethod) IsDepositMethod() bool {
	for _, candidate := range validDepositMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// NoteAuthor marks who wrote an entry in a transaction note thread.
type NoteAuthor string

const (
	NoteAuthorUser  NoteAuthor = "user"
	NoteAuthorAdmin NoteAuthor = "admin"
)
