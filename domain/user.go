package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinAccountNumberLength = 9
	MaxAccountNumberLength = 18
	IFSCCodeLength         = 11

	// LastPaymentDay keeps the chosen day present in every month.
	LastPaymentDay = 28
)

// CommunicationFrequencies lists the accepted contact cadences.
var CommunicationFrequencies = []string{"Daily", "Weekly", "Monthly"}

type User struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash []byte          `json:"-"`
	Phone        string          `json:"phone,omitempty"`
	Address      string          `json:"address,omitempty"`
	CreditScore  int             `json:"creditScore"`
	KYCStatus    string          `json:"kycStatus"`
	BankAccounts []BankAccount   `json:"bankAccounts"`
	Preferences  LoanPreferences `json:"loanPreferences"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type BankAccount struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	IFSCCode      string `json:"ifscCode"`
	IsPrimary     bool   `json:"isPrimary"`
}

type LoanPreferences struct {
	CommunicationFrequency string                  `json:"communicationFrequency"`
	PaymentDate            string                  `json:"paymentDate"`
	AutoPayEnabled         bool                    `json:"autoPayEnabled"`
	Notifications          NotificationPreferences `json:"notifications"`
}

type NotificationPreferences struct {
	PaymentReminders   bool `json:"paymentReminders"`
	ApplicationUpdates bool `json:"applicationUpdates"`
	NewOffers          bool `json:"newOffers"`
	Marketing          bool `json:"marketing"`
}

// DefaultLoanPreferences are assigned to newly registered users.
var DefaultLoanPreferences = LoanPreferences{
	CommunicationFrequency: "Weekly",
	PaymentDate:            "15th",
	AutoPayEnabled:         true,
	Notifications: NotificationPreferences{
		PaymentReminders:   true,
		ApplicationUpdates: true,
	},
}

// Validate reports every violated rule, not only the first.
func (p LoanPreferences) Validate() error {
	var errs []error
	known := false
	for _, f := range CommunicationFrequencies {
		if p.CommunicationFrequency == f {
			known = true
			break
		}
	}
	if !known {
		errs = append(errs, NewValidationError("communicationFrequency",
			"must be one of "+strings.Join(CommunicationFrequencies, ", ")))
	}
	if _, ok := ParsePaymentDay(p.PaymentDate); !ok {
		errs = append(errs, NewValidationError("paymentDate",
			fmt.Sprintf("must be a day from 1st to %s", Ordinal(LastPaymentDay))))
	}
	return joinErrors(errs)
}

// Ordinal formats a day of the month as 1st, 2nd, 3rd, 4th and so on.
func Ordinal(day int) string {
	suffix := "th"
	switch {
	case day%100 >= 11 && day%100 <= 13:
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(day) + suffix
}

// ParsePaymentDay accepts the ordinal forms produced by Ordinal for days
// 1 through LastPaymentDay.
func ParsePaymentDay(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return 0, false
	}
	day, err := strconv.Atoi(s[:len(s)-2])
	if err != nil || day < 1 || day > LastPaymentDay {
		return 0, false
	}
	return day, Ordinal(day) == s
}

type BankDetailsInput struct {
	Name          string `json:"name"`
	AccountName   string `json:"accountName,omitempty"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	IFSCCode      string `json:"ifscCode"`
	IsPrimary     bool   `json:"isPrimary"`
}

// Validate reports every violated rule, not only the first.
func (in BankDetailsInput) Validate() error {
	var errs []error
	n := utf8.RuneCountInString(strings.TrimSpace(in.AccountNumber))
	if n < MinAccountNumberLength || n > MaxAccountNumberLength {
		errs = append(errs, NewValidationError("accountNumber", "length must be between 9 and 18 characters"))
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.IFSCCode)) != IFSCCodeLength {
		errs = append(errs, NewValidationError("ifscCode", "length must be exactly 11 characters"))
	}
	if strings.TrimSpace(in.BankName) == "" {
		errs = append(errs, NewValidationError("bankName", "must not be empty"))
	}
	return joinErrors(errs)
}

// DisplayName prefers the account holder name over the nickname.
func (in BankDetailsInput) DisplayName() string {
	if in.AccountName != "" {
		return in.AccountName
	}
	return in.Name
}

// MaskAccountNumber keeps only the last four characters.
func MaskAccountNumber(number string) string {
	r := []rune(strings.TrimSpace(number))
	if len(r) <= 4 {
		return "****" + string(r)
	}
	return "****" + string(r[len(r)-4:])
}

// Session identifies the signed-in user for a single call.
type Session struct {
	UserID  string
	Email   string
	TokenID string
}

func (s Session) Valid() bool {
	return s.UserID != ""
}
