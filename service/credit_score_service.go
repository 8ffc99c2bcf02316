package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"loan-portal/domain"
	"loan-portal/repository"
)

const creditScoreTTL = 30 * 24 * time.Hour

// ScoreSimulator draws uniformly distributed credit scores from an
// injected random source.
type ScoreSimulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewScoreSimulator(rng *rand.Rand) *ScoreSimulator {
	return &ScoreSimulator{rng: rng}
}

// NewSeededScoreSimulator returns a simulator with a deterministic sequence.
func NewSeededScoreSimulator(seed uint64) *ScoreSimulator {
	return NewScoreSimulator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Draw returns a score in [MinSimulatedScore, MaxSimulatedScore].
func (s *ScoreSimulator) Draw() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.MinSimulatedScore + s.rng.IntN(domain.MaxSimulatedScore-domain.MinSimulatedScore+1)
}

// Simulate draws a score and derives its tier and message.
func (s *ScoreSimulator) Simulate() domain.CreditScoreResult {
	result, _ := domain.NewCreditScoreResult(s.Draw())
	return result
}

type CreditScoreService struct {
	simulator *ScoreSimulator
	cache     repository.CacheRepository
	latency   *Latency
	logger    *slog.Logger
}

func NewCreditScoreService(
	simulator *ScoreSimulator,
	cache repository.CacheRepository,
	latency *Latency,
	logger *slog.Logger,
) *CreditScoreService {
	return &CreditScoreService{
		simulator: simulator,
		cache:     cache,
		latency:   latency,
		logger:    logger,
	}
}

// Check returns the session user's score once the applicant's identity
// details pass validation. A score drawn once is remembered so repeated
// checks within its TTL agree.
func (s *CreditScoreService) Check(
	ctx context.Context,
	session domain.Session,
	input domain.CreditCheckInput,
) (domain.CreditScoreResult, error) {
	if !session.Valid() {
		return domain.CreditScoreResult{}, domain.ErrUnauthorized
	}
	if err := input.Validate(); err != nil {
		return domain.CreditScoreResult{}, err
	}
	if err := s.latency.Wait(ctx); err != nil {
		return domain.CreditScoreResult{}, err
	}

	key := creditScoreKey(session.UserID)
	if cached, ok := s.cache.Get(ctx, key); ok {
		if score, err := strconv.Atoi(cached); err == nil {
			if result, err := domain.NewCreditScoreResult(score); err == nil {
				return result, nil
			}
		}
		s.logger.Warn("discarding cached credit score", "user_id", session.UserID, "value", cached)
	}

	result := s.simulator.Simulate()
	if err := s.cache.Set(ctx, key, strconv.Itoa(result.Score), creditScoreTTL); err != nil {
		return domain.CreditScoreResult{}, fmt.Errorf("remember credit score: %w", err)
	}

	s.logger.Info("credit score simulated", "user_id", session.UserID, "tier", result.Tier)
	return result, nil
}

func creditScoreKey(userID string) string {
	return "credit:score:" + userID
}
