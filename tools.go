package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"loan-portal/domain"
	"loan-portal/repository"
	"loan-portal/service"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalScore(cmd *cobra.Command, score int) *int {
	if cmd.Flags().Changed("score") {
		return &score
	}
	return nil
}

func calculateCmd() *cobra.Command {
	var (
		amount float64
		rate   float64
		term   int
	)
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Compute the monthly payment of a loan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := service.Amortize(decimal.NewFromFloat(amount), decimal.NewFromFloat(rate), term)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 10000, "principal")
	cmd.Flags().Float64Var(&rate, "rate", service.DefaultInterestRate, "annual interest rate in percent")
	cmd.Flags().IntVar(&term, "term", 36, "term in months")
	return cmd
}

func eligibilityCmd() *cobra.Command {
	var (
		income   float64
		expenses float64
		amount   float64
		term     int
		score    int
		policy   string
	)
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Run an eligibility check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("policy") {
				policy = cfg.Lending.EligibilityPolicy
			}
			p, err := service.PolicyByName(policy)
			if err != nil {
				return err
			}
			decision, err := service.Evaluate(p, domain.LoanRequest{
				Amount:           decimal.NewFromFloat(amount),
				TermMonths:       term,
				AnnualIncome:     decimal.NewFromFloat(income),
				DeclaredExpenses: decimal.NewFromFloat(expenses),
				CreditScore:      optionalScore(cmd, score),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), decision)
		},
	}
	cmd.Flags().Float64Var(&income, "income", 0, "annual income")
	cmd.Flags().Float64Var(&expenses, "expenses", 0, "declared expenses")
	cmd.Flags().Float64Var(&amount, "amount", 0, "requested amount (term-affordability policy)")
	cmd.Flags().IntVar(&term, "term", 0, "term in months (term-affordability policy)")
	cmd.Flags().IntVar(&score, "score", service.DefaultCreditScore, "credit score")
	cmd.Flags().StringVar(&policy, "policy", service.PolicyStandard, "eligibility policy (standard, term-affordability)")
	return cmd
}

func offersCmd() *cobra.Command {
	var (
		amount float64
		term   int
		score  int
	)
	cmd := &cobra.Command{
		Use:   "offers",
		Short: "Generate the three loan offers for a request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			offers, err := service.NewOfferService(decimal.NewFromFloat(cfg.Lending.BaseRate), nil).
				Generate(domain.OfferRequest{
					Principal:   decimal.NewFromFloat(amount),
					TermMonths:  term,
					CreditScore: optionalScore(cmd, score),
				})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), offers)
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 10000, "principal")
	cmd.Flags().IntVar(&term, "term", 36, "term in months")
	cmd.Flags().IntVar(&score, "score", service.DefaultCreditScore, "credit score")
	return cmd
}

func scoreCmd() *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Simulate a credit score check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = resolveSeed(cfg.Mock.Seed)
			}
			return printJSON(cmd.OutOrStdout(), service.NewSeededScoreSimulator(seed).Simulate())
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the SQLite cache database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := repository.NewSQLiteCache(cfg.Cache.SQLitePath, logger)
			if err != nil {
				return err
			}
			defer cache.Close()

			purged, err := cache.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cache database %s is up to date (%d expired entries purged)\n",
				cfg.Cache.SQLitePath, purged)
			return nil
		},
	}
}
