// Package analysis generates, stores and serves AI spending analyses.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/duskwallet/duskwallet-api/internal/llm"
	"github.com/duskwallet/duskwallet-api/internal/models"
	"github.com/duskwallet/duskwallet-api/internal/quota"
)

const (
	historyDays       = 60
	defaultAttempts   = 3
	defaultRetryDelay = time.Second
	defaultTimeout    = 60 * time.Second
	releaseTimeout    = 5 * time.Second
	logRawLimit       = 500
)

// User-facing messages.
const (
	MessageNoTransactions   = "no transactions in the last 60 days"
	MessageLastFreeAnalysis = "this was your last free analysis this week"
	MessageGenerationFailed = "could not obtain a valid AI response after multiple attempts"
)

// ErrGenerationFailed is returned once every generation attempt has failed.
var ErrGenerationFailed = errors.New(MessageGenerationFailed)

// Gate is the quota bookkeeping the pipeline depends on.
type Gate interface {
	Reserve(ctx context.Context, userID string) (*quota.Reservation, error)
	Confirm(r *quota.Reservation)
	Release(ctx context.Context, r *quota.Reservation) error
}

// Result is the outcome of a successful Analyze call.
type Result struct {
	Analysis  *models.Analysis // Nil when the user had no recent transactions.
	Unlimited bool
	Remaining int
	Message   string
}

// Service runs the analysis workflow.
type Service struct {
	db         *gorm.DB
	gate       Gate
	generator  llm.Generator
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewService constructs a Service. A non-positive timeout selects the default.
func NewService(db *gorm.DB, gate Gate, generator llm.Generator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		db:         db,
		gate:       gate,
		generator:  generator,
		timeout:    timeout,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Analyze reserves quota, generates an analysis from the last 60 days and stores it.
// The reservation is released on every path that does not store a record.
func (s *Service) Analyze(ctx context.Context, userID string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reservation, errReserve := s.gate.Reserve(ctx, userID)
	if errReserve != nil {
		return Result{}, errReserve
	}
	defer s.release(ctx, reservation)

	txs, errFetch := s.recentTransactions(ctx, userID)
	if errFetch != nil {
		return Result{}, errFetch
	}
	if len(txs) == 0 {
		return Result{Unlimited: reservation.Unlimited, Message: MessageNoTransactions}, nil
	}

	parsed, errGenerate := s.generate(ctx, userID, BuildPrompt(txs))
	if errGenerate != nil {
		return Result{}, errGenerate
	}

	record := models.Analysis{
		UserID:           userID,
		Summary:          parsed.Summary,
		PositivePoint:    parsed.PositivePoint,
		AttentionPoint:   parsed.AttentionPoint,
		PatternsDetected: datatypes.JSONSlice[string](parsed.PatternsDetected),
		Advice:           datatypes.JSONSlice[string](parsed.Advice),
		EmergencyPlan:    datatypes.JSONSlice[string](parsed.EmergencyPlan),
	}
	if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return Result{}, fmt.Errorf("analysis: persist: %w", errCreate)
	}
	s.gate.Confirm(reservation)

	result := Result{Analysis: &record, Unlimited: reservation.Unlimited}
	if !reservation.Unlimited {
		result.Remaining = reservation.Remaining
		result.Message = reminder(reservation.Remaining)
	}
	return result, nil
}

// release returns the reservation unless it was confirmed. It survives the
// request deadline so a timed-out run still gives the unit back.
func (s *Service) release(ctx context.Context, reservation *quota.Reservation) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if errRelease := s.gate.Release(releaseCtx, reservation); errRelease != nil {
		log.WithError(errRelease).WithField("user_id", reservation.UserID).Error("analysis: release quota")
	}
}

func (s *Service) recentTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	since := s.now().UTC().AddDate(0, 0, -historyDays)
	var txs []models.Transaction
	errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, since).
		Order("date DESC").
		Limit(maxPromptTransactions).
		Find(&txs).Error
	if errFind != nil {
		return nil, fmt.Errorf("analysis: load transactions: %w", errFind)
	}
	return txs, nil
}

// generate calls the model up to s.attempts times with a fixed delay between attempts.
// Transport and parse failures share the same budget.
func (s *Service) generate(ctx context.Context, userID, prompt string) (Parsed, error) {
	logger := log.WithField("user_id", userID)
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		raw, errGen := s.generator.Generate(ctx, prompt)
		if errGen == nil {
			parsed, errParse := ParseResponse(raw)
			if errParse == nil {
				return parsed, nil
			}
			lastErr = errParse
			logger.WithError(errParse).WithFields(log.Fields{
				"attempt": attempt,
				"raw":     truncate(raw, logRawLimit),
			}).Warn("analysis: unparseable model response")
		} else {
			lastErr = errGen
			logger.WithError(errGen).WithField("attempt", attempt).Warn("analysis: generation call failed")
		}

		if attempt == s.attempts {
			break
		}
		if errSleep := s.sleep(ctx, s.retryDelay); errSleep != nil {
			lastErr = errSleep
			break
		}
	}
	logger.WithError(lastErr).Error("analysis: giving up on generation")
	return Parsed{}, ErrGenerationFailed
}

func reminder(remaining int) string {
	if remaining <= 0 {
		return MessageLastFreeAnalysis
	}
	if remaining == 1 {
		return "you have 1 free analysis left this week"
	}
	return fmt.Sprintf("you have %d free analyses left this week", remaining)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
