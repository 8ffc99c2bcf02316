package domain

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
)

const (
	MinSimulatedScore = 500
	MaxSimulatedScore = 850
)

var tierMessages = map[Tier]string{
	TierExcellent: "Your credit score is excellent. You qualify for our best rates!",
	TierGood:      "Your credit score is good. You qualify for competitive rates.",
	TierFair:      "Your credit score is fair. You may qualify for standard rates.",
	TierPoor:      "Your credit score needs improvement. Limited loan options available.",
}

// TierForScore maps a score onto its fixed tier band.
func TierForScore(score int) Tier {
	switch {
	case score >= 750:
		return TierExcellent
	case score >= 700:
		return TierGood
	case score >= 650:
		return TierFair
	default:
		return TierPoor
	}
}

// Message returns the static text shown for the tier.
func (t Tier) Message() string {
	return tierMessages[t]
}

// panPattern is the shape of a permanent account number: five letters,
// four digits, one letter.
var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// CreditCheckInput identifies the applicant to the credit bureau.
type CreditCheckInput struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	PANNumber string `json:"panNumber"`
}

// Validate reports every violated rule, not only the first.
func (in CreditCheckInput) Validate() error {
	var errs []error
	if strings.TrimSpace(in.FullName) == "" {
		errs = append(errs, NewValidationError("fullName", "must not be empty"))
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		errs = append(errs, NewValidationError("email", "must be a valid address"))
	}
	if strings.TrimSpace(in.Phone) == "" {
		errs = append(errs, NewValidationError("phone", "must not be empty"))
	}
	if !panPattern.MatchString(strings.TrimSpace(in.PANNumber)) {
		errs = append(errs, NewValidationError("panNumber", "must be five letters, four digits and a letter, e.g. ABCDE1234F"))
	}
	return joinErrors(errs)
}

type CreditScoreFactor struct {
	Name   string `json:"name"`
	Score  string `json:"score"`
	Impact string `json:"impact"`
}

type CreditScoreResult struct {
	Score           int                 `json:"score"`
	Tier            Tier                `json:"tier"`
	Message         string              `json:"message"`
	Factors         []CreditScoreFactor `json:"factors"`
	Recommendations []string            `json:"recommendations"`
}

// NewCreditScoreResult builds the result for score, deriving tier and message.
func NewCreditScoreResult(score int) (CreditScoreResult, error) {
	if score < MinSimulatedScore || score > MaxSimulatedScore {
		return CreditScoreResult{}, NewValidationError("score",
			fmt.Sprintf("must be between %d and %d", MinSimulatedScore, MaxSimulatedScore))
	}
	tier := TierForScore(score)
	return CreditScoreResult{
		Score:   score,
		Tier:    tier,
		Message: tier.Message(),
		Factors: []CreditScoreFactor{
			{Name: "Payment History", Score: "Excellent", Impact: "High"},
			{Name: "Credit Utilization", Score: "Good", Impact: "Medium"},
			{Name: "Length of Credit History", Score: "Fair", Impact: "Medium"},
			{Name: "New Credit Inquiries", Score: "Excellent", Impact: "Low"},
			{Name: "Types of Credit", Score: "Good", Impact: "Low"},
		},
		Recommendations: []string{
			"Continue making payments on time",
			"Reduce credit card balances",
			"Avoid opening multiple new accounts",
		},
	}, nil
}
