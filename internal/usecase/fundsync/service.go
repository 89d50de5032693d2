package fundsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/simaogato/fundfolio-backend/internal/domain"
)

// Service keeps the fund catalog in step with the external provider
type Service struct {
	FundRepo    domain.FundRepository
	Provider    domain.FundProvider
	Logger      arbor.ILogger
	Concurrency int
}

// Option configures the Service
type Option func(*Service)

// WithConcurrency sets how many funds RefreshAllNAV fetches at once
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.Concurrency = n
		}
	}
}

// NewService creates a new sync Service instance
func NewService(fundRepo domain.FundRepository, provider domain.FundProvider, logger arbor.ILogger, opts ...Option) *Service {
	s := &Service{
		FundRepo:    fundRepo,
		Provider:    provider,
		Logger:      logger,
		Concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureFund returns the catalog fund for schemeCode, importing it from the
// provider on first use. A fund already in the catalog is returned unchanged
// without a provider call.
func (s *Service) EnsureFund(ctx context.Context, schemeCode string) (*domain.Fund, error) {
	if schemeCode == "" {
		return nil, domain.ErrInvalidSchemeCode
	}

	fund, err := s.FundRepo.FindByCode(ctx, schemeCode)
	if err == nil {
		return fund, nil
	}
	if !errors.Is(err, domain.ErrFundNotFound) {
		return nil, err
	}

	record, err := s.fetchValid(ctx, schemeCode)
	if err != nil {
		return nil, err
	}

	fund, err = s.FundRepo.Upsert(ctx, schemeCode, record.Name, record.NAV.Decimal)
	if err != nil {
		return nil, fmt.Errorf("failed to save fund %s: %w", schemeCode, err)
	}

	s.Logger.Info().
		Str("scheme_code", schemeCode).
		Str("name", fund.Name).
		Str("nav", fund.NAV.StringFixed(domain.NAVPlaces)).
		Msg("Fund imported into catalog")

	return fund, nil
}

// fetchValid fetches the provider record for schemeCode and checks it is usable.
// Any fetch failure, including missing provider configuration, is ErrFetchFailed.
func (s *Service) fetchValid(ctx context.Context, schemeCode string) (*domain.FundRecord, error) {
	record, err := s.Provider.FetchScheme(ctx, schemeCode)
	if err != nil {
		if errors.Is(err, domain.ErrFetchFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scheme %s: %w", domain.ErrFetchFailed, schemeCode, err)
	}
	if !record.Valid() {
		return nil, fmt.Errorf("%w: scheme %s", domain.ErrInvalidRecord, schemeCode)
	}
	return record, nil
}

// RefreshAllNAV re-fetches every catalog fund by scheme code and updates its
// nav. Per-fund failures are recorded in the report and never stop the batch;
// only a failure to enumerate the catalog is returned.
func (s *Service) RefreshAllNAV(ctx context.Context) (*domain.RefreshReport, error) {
	report := &domain.RefreshReport{StartedAt: time.Now()}

	funds, err := s.FundRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	s.Logger.Info().Int("funds", len(funds)).Int("concurrency", s.Concurrency).Msg("Starting NAV refresh")

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, max(s.Concurrency, 1))
	)

	for _, fund := range funds {
		if ctx.Err() != nil {
			mu.Lock()
			report.Failed = append(report.Failed, domain.RefreshFailure{SchemeCode: fund.SchemeCode, Reason: ctx.Err().Error()})
			mu.Unlock()
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(fund *domain.Fund) {
			defer wg.Done()
			defer func() { <-sem }()

			err := s.refreshOne(ctx, fund)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, domain.RefreshFailure{SchemeCode: fund.SchemeCode, Reason: failureReason(err)})
				return
			}
			report.Updated = append(report.Updated, fund.SchemeCode)
		}(fund)
	}
	wg.Wait()

	report.FinishedAt = time.Now()
	report.Sort()

	s.Logger.Info().
		Int("updated", report.UpdatedCount()).
		Int("failed", report.FailedCount()).
		Strs("failed_codes", report.FailedCodes()).
		Msg("NAV refresh finished")

	return report, nil
}

func (s *Service) refreshOne(ctx context.Context, fund *domain.Fund) error {
	record, err := s.fetchValid(ctx, fund.SchemeCode)
	if err != nil {
		s.Logger.Warn().Err(err).Str("scheme_code", fund.SchemeCode).Msg("Skipping fund in NAV refresh")
		return err
	}

	if _, err := s.FundRepo.UpdateNAV(ctx, fund.ID, record.NAV.Decimal); err != nil {
		s.Logger.Error().Err(err).Str("scheme_code", fund.SchemeCode).Msg("Failed to update fund nav")
		return fmt.Errorf("failed to update nav: %w", err)
	}
	return nil
}

// failureReason condenses err into the report's short reason text
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRecord):
		return domain.ErrInvalidRecord.Error()
	case errors.Is(err, domain.ErrFetchFailed):
		return domain.ErrFetchFailed.Error()
	default:
		return err.Error()
	}
}
