package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cartwise/backend/internal/domain"
)

// OptimizationServiceConfig holds configuration for the optimization service
type OptimizationServiceConfig struct {
	FetchWorkers              int
	SearchTimeout             time.Duration
	ConsiderAlternatives      bool
	AlternativeScoreTolerance float64
	EnableDebugLogging        bool
}

// OptimizationService turns a shopping list into a multi-store purchase plan.
// Flow: load items -> search offers per item -> match best offer -> choose stores -> summarize
type OptimizationService struct {
	items                domain.LineItemRepository
	watcher              domain.ListWatcher
	searcher             domain.OfferSearcher
	matcher              *OfferMatcher
	optimizer            *CombinationOptimizer
	fetchWorkers         int
	considerAlternatives bool
	alternativeTolerance float64
	log                  zerolog.Logger
}

// fetchResult is the outcome of one per-item catalog search
type fetchResult struct {
	offers []domain.CatalogOffer
	err    error
}

// NewOptimizationService creates a new optimization service with dependencies.
// If items also implements domain.ListWatcher, Watch re-runs on list changes.
func NewOptimizationService(
	items domain.LineItemRepository,
	searcher domain.OfferSearcher,
	merchants domain.MerchantDirectory,
	config OptimizationServiceConfig,
	log zerolog.Logger,
) *OptimizationService {
	fetchWorkers := config.FetchWorkers
	if fetchWorkers <= 0 {
		fetchWorkers = 4
	}

	s := &OptimizationService{
		items:                items,
		searcher:             searcher,
		matcher:              NewOfferMatcher(MatchConfig{EnableDebugLogging: config.EnableDebugLogging}, log),
		optimizer:            NewCombinationOptimizer(merchants, config.SearchTimeout, log),
		fetchWorkers:         fetchWorkers,
		considerAlternatives: config.ConsiderAlternatives,
		alternativeTolerance: config.AlternativeScoreTolerance,
		log:                  log.With().Str("component", "optimization_service").Logger(),
	}
	if watcher, ok := items.(domain.ListWatcher); ok {
		s.watcher = watcher
	}
	return s
}

// Matcher exposes the offer matcher used by the service
func (s *OptimizationService) Matcher() *OfferMatcher {
	return s.matcher
}

// Optimize builds the optimization report for a list. It never fails: any error
// or panic during the run yields the empty report.
func (s *OptimizationService) Optimize(ctx context.Context, listID string) (report *domain.OptimizationReport) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("list_id", listID).Interface("panic", r).Msg("Optimization panicked")
			report = domain.EmptyReport()
		}
	}()

	report, err := s.optimize(ctx, listID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.log.Debug().Str("list_id", listID).Msg("Optimization cancelled")
		} else {
			s.log.Error().Err(err).Str("list_id", listID).Msg("Optimization failed")
		}
		return domain.EmptyReport()
	}

	s.log.Info().
		Str("list_id", listID).
		Int("found", len(report.FoundItems)).
		Int("not_found", len(report.NotFoundItems)).
		Int("stores", len(report.Assignments)).
		Float64("savings", report.TotalSavings).
		Dur("took", time.Since(started)).
		Msg("Optimization complete")

	return report
}

func (s *OptimizationService) optimize(ctx context.Context, listID string) (*domain.OptimizationReport, error) {
	items, err := s.items.GetLineItemsForList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("loading line items: %w", err)
	}
	if len(items) == 0 {
		return domain.EmptyReport(), nil
	}

	fetched := s.fetchOffers(ctx, items)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := []domain.MatchResult{}
	notFound := []domain.MatchResult{}
	for i, item := range items {
		match := s.matchItem(item, fetched[i])
		if match.IsAvailable {
			found = append(found, match)
		} else {
			notFound = append(notFound, match)
		}
	}

	combination, err := s.optimizer.OptimalCombination(ctx, found)
	if err != nil {
		return nil, fmt.Errorf("choosing stores: %w", err)
	}
	// an item served from an alternative reports that offer, not its original best
	found = combination.Matches

	currentTotal := 0.0
	for _, item := range items {
		currentTotal += item.TotalPrice
	}
	notFoundTotal := 0.0
	for _, match := range notFound {
		notFoundTotal += match.Item.TotalPrice
	}

	optimizedTotal := combination.TotalCost + notFoundTotal
	savings := currentTotal - optimizedTotal
	if savings < 0 {
		savings = 0
	}

	return &domain.OptimizationReport{
		Assignments:          combination.Assignments,
		TotalOptimizedCost:   optimizedTotal,
		CurrentTotalCost:     currentTotal,
		TotalSavings:         savings,
		ItemDistribution:     combination.ItemDistribution,
		CompletionPercentage: 100 * float64(len(found)) / float64(len(items)),
		FoundItems:           found,
		NotFoundItems:        notFound,
		Algorithm:            combination.Algorithm,
	}, nil
}

// fetchOffers searches the catalog for every item with at most fetchWorkers
// requests in flight. Each result slot is written by exactly one goroutine; a
// failed or panicking search only affects its own item.
func (s *OptimizationService) fetchOffers(ctx context.Context, items []domain.LineItem) []fetchResult {
	results := make([]fetchResult, len(items))

	var g errgroup.Group
	g.SetLimit(s.fetchWorkers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Str("item", item.Name).Interface("panic", r).Msg("Offer search panicked, item left unmatched")
					results[i] = fetchResult{err: fmt.Errorf("offer search panicked: %v", r)}
				}
			}()
			if err := ctx.Err(); err != nil {
				results[i] = fetchResult{err: err}
				return nil
			}
			offers, err := s.searcher.SearchOffers(ctx, item.Name)
			if err != nil {
				s.log.Warn().Err(err).Str("item", item.Name).Msg("Offer search failed, item left unmatched")
			}
			results[i] = fetchResult{offers: offers, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// matchItem resolves one line item against its fetched offers
func (s *OptimizationService) matchItem(item domain.LineItem, fetched fetchResult) domain.MatchResult {
	match := domain.MatchResult{Item: item}
	if fetched.err != nil || len(fetched.offers) == 0 {
		return match
	}

	best, score := s.matcher.findBest(item, fetched.offers)
	if best == nil {
		return match
	}

	match.BestOffer = best
	match.IsAvailable = true
	match.PotentialSavings = potentialSavings(item, best)
	if s.considerAlternatives {
		match.Alternatives = s.matcher.FindAlternatives(item, fetched.offers, best, score, s.alternativeTolerance)
	}
	return match
}

// Watch emits a report for the list immediately and again after every change
// to the list's items. A change that arrives while a run is in flight cancels
// that run and starts a new one. The channel is closed when ctx ends.
func (s *OptimizationService) Watch(ctx context.Context, listID string) <-chan *domain.OptimizationReport {
	out := make(chan *domain.OptimizationReport, 1)

	go func() {
		defer close(out)

		var changes <-chan struct{}
		if s.watcher != nil {
			ch, unsubscribe := s.watcher.Subscribe(listID)
			defer unsubscribe()
			changes = ch
		}

		pending := true
		for {
			if pending {
				pending = false

				runCtx, cancelRun := context.WithCancel(ctx)
				done := make(chan *domain.OptimizationReport, 1)
				go func() { done <- s.Optimize(runCtx, listID) }()

				select {
				case <-ctx.Done():
					cancelRun()
					return
				case _, ok := <-changes:
					cancelRun()
					if !ok {
						changes = nil
					}
					pending = true
					continue
				case report := <-done:
					cancelRun()
					select {
					case out <- report:
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				pending = true
			}
		}
	}()

	return out
}
