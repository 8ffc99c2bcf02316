package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-portal/domain"
)

func TestRateAdjustment(t *testing.T) {
	cases := map[int]string{
		300: "5",
		649: "5",
		650: "3",
		699: "3",
		700: "1",
		749: "1",
		750: "0",
		800: "0",
		801: "-1",
		900: "-1",
	}
	for score, want := range cases {
		assert.Equal(t, want, RateAdjustment(score).String(), "score %d", score)
	}
}

func TestOfferService_Generate(t *testing.T) {
	svc := NewOfferService(dec("5.99"), nil)

	offers, err := svc.Generate(domain.OfferRequest{
		Principal:   dec("10000"),
		TermMonths:  36,
		CreditScore: ptr(750),
	})
	require.NoError(t, err)
	require.Len(t, offers, 3)

	assert.Equal(t, "Standard Loan", offers[0].DisplayName)
	assert.Equal(t, "Premier Loan", offers[1].DisplayName)
	assert.Equal(t, "Economy Loan", offers[2].DisplayName)

	assert.Equal(t, "5.99", offers[0].AnnualRatePercent.String())
	assert.Equal(t, "5.49", offers[1].AnnualRatePercent.String())
	assert.Equal(t, "6.99", offers[2].AnnualRatePercent.String())

	assert.Equal(t, "304.17", offers[0].MonthlyPayment.StringFixed(2))
	assert.Equal(t, "301.91", offers[1].MonthlyPayment.StringFixed(2))
	assert.Equal(t, "308.73", offers[2].MonthlyPayment.StringFixed(2))

	ids := map[string]bool{}
	for _, o := range offers {
		assert.True(t, strings.HasPrefix(o.ID, "OFFER-"))
		assert.False(t, ids[o.ID], "duplicate offer id")
		ids[o.ID] = true
		assert.Equal(t, 36, o.TermMonths)
		assert.True(t, o.Principal.Equal(dec("10000")))
		assert.True(t, o.TotalPayment.Equal(o.MonthlyPayment.Mul(decimal.NewFromInt(36))))
		assert.False(t, o.Accepted)
	}
}

func TestOfferService_FeaturedOfferHasLowestRate(t *testing.T) {
	svc := NewOfferService(dec("5.99"), nil)

	for _, score := range []int{300, 620, 680, 720, 760, 810, 900} {
		offers, err := svc.Generate(domain.OfferRequest{
			Principal:   dec("5000"),
			TermMonths:  24,
			CreditScore: ptr(score),
		})
		require.NoError(t, err)
		require.Len(t, offers, 3)

		featured := 0
		for _, o := range offers {
			if o.Featured {
				featured++
			}
		}
		assert.Equal(t, 1, featured, "score %d", score)
		assert.True(t, offers[1].Featured)
		assert.True(t, offers[1].AnnualRatePercent.LessThan(offers[0].AnnualRatePercent))
		assert.True(t, offers[1].AnnualRatePercent.LessThan(offers[2].AnnualRatePercent))
	}
}

func TestOfferService_DefaultsMissingScore(t *testing.T) {
	svc := NewOfferService(dec("5.99"), nil)

	withDefault, err := svc.Generate(domain.OfferRequest{Principal: dec("10000"), TermMonths: 12})
	require.NoError(t, err)
	explicit, err := svc.Generate(domain.OfferRequest{Principal: dec("10000"), TermMonths: 12, CreditScore: ptr(DefaultCreditScore)})
	require.NoError(t, err)

	for i := range withDefault {
		assert.True(t, withDefault[i].AnnualRatePercent.Equal(explicit[i].AnnualRatePercent))
		assert.True(t, withDefault[i].MonthlyPayment.Equal(explicit[i].MonthlyPayment))
	}
	assert.Equal(t, "860.62", withDefault[0].MonthlyPayment.StringFixed(2))
}

func TestOfferService_PoorScore(t *testing.T) {
	svc := NewOfferService(dec("5.99"), nil)

	offers, err := svc.Generate(domain.OfferRequest{Principal: dec("10000"), TermMonths: 36, CreditScore: ptr(600)})
	require.NoError(t, err)

	assert.Equal(t, "10.99", offers[0].AnnualRatePercent.String())
	assert.Equal(t, "10.49", offers[1].AnnualRatePercent.String())
	assert.Equal(t, "11.99", offers[2].AnnualRatePercent.String())
	assert.Equal(t, "327.34", offers[0].MonthlyPayment.StringFixed(2))
	assert.Equal(t, "332.10", offers[2].MonthlyPayment.StringFixed(2))
}

func TestOfferService_InvalidInput(t *testing.T) {
	svc := NewOfferService(dec("5.99"), nil)

	cases := map[string]domain.OfferRequest{
		"zero principal": {Principal: dec("0"), TermMonths: 12},
		"zero term":      {Principal: dec("1000"), TermMonths: 0},
		"score too low":  {Principal: dec("1000"), TermMonths: 12, CreditScore: ptr(120)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			offers, err := svc.Generate(req)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Nil(t, offers)
		})
	}
}

func TestOfferService_PreviewHonoursCancel(t *testing.T) {
	svc := NewOfferService(dec("5.99"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Preview(ctx, domain.OfferRequest{Principal: dec("1000"), TermMonths: 12})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOfferService_LowestBaseRateStaysPriceable(t *testing.T) {
	svc := NewOfferService(dec("1.5"), nil)

	offers, err := svc.Generate(domain.OfferRequest{Principal: dec("1200"), TermMonths: 12, CreditScore: ptr(850)})
	require.NoError(t, err)
	assert.Equal(t, "0", offers[1].AnnualRatePercent.String())
	assert.Equal(t, "100.00", offers[1].MonthlyPayment.StringFixed(2))
}
