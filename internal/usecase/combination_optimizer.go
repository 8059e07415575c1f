package usecase

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartwise/backend/internal/domain"
)

// ctxCheckInterval is how many search states are expanded between context checks
const ctxCheckInterval = 256

// CombinationResult is the store plan chosen for the matched line items.
// Matches mirrors the input matches in order, with every available match
// resolved to the offer its assignment actually uses.
type CombinationResult struct {
	Assignments      []*domain.StoreAssignment
	ItemDistribution map[string]*domain.StoreAssignment
	Matches          []domain.MatchResult
	TotalCost        float64
	Algorithm        string
}

// CombinationOptimizer assigns every matched line item to one merchant so that
// the number of distinct merchants is minimal, then the total cost is minimal.
type CombinationOptimizer struct {
	merchants     domain.MerchantDirectory
	searchTimeout time.Duration
	log           zerolog.Logger
}

// NewCombinationOptimizer creates a combination optimizer. A zero searchTimeout
// lets the exact search run until the caller's context ends.
func NewCombinationOptimizer(merchants domain.MerchantDirectory, searchTimeout time.Duration, log zerolog.Logger) *CombinationOptimizer {
	return &CombinationOptimizer{
		merchants:     merchants,
		searchTimeout: searchTimeout,
		log:           log.With().Str("component", "combination_optimizer").Logger(),
	}
}

// storeCandidate is one merchant a line-item group can be bought from
type storeCandidate struct {
	merchantID  string
	merchantIdx int
	offer       domain.CatalogOffer
	// memberOffers holds the offer each group member gets at this merchant
	memberOffers []domain.CatalogOffer
	cost         float64
}

// itemGroup is the set of matched line items sharing a name
type itemGroup struct {
	name       string
	members    []domain.MatchResult
	positions  []int // index of each member in the input matches
	candidates []storeCandidate
}

// OptimalCombination chooses one merchant per distinct line-item name.
// Unavailable matches are ignored. The search is exact; if it exceeds the
// configured timeout a greedy consolidation is used instead. Cancellation of
// ctx itself is returned as an error.
func (o *CombinationOptimizer) OptimalCombination(ctx context.Context, matches []domain.MatchResult) (*CombinationResult, error) {
	groups, merchantCount := buildItemGroups(matches)
	if len(groups) == 0 {
		return &CombinationResult{
			Assignments:      []*domain.StoreAssignment{},
			ItemDistribution: map[string]*domain.StoreAssignment{},
			Matches:          append([]domain.MatchResult{}, matches...),
			Algorithm:        domain.AlgorithmOptimal,
		}, nil
	}

	searchCtx := ctx
	if o.searchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, o.searchTimeout)
		defer cancel()
	}

	algorithm := domain.AlgorithmOptimal
	search := newCombinationSearch(searchCtx, groups)
	choices, err := search.run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, domain.ErrSearchTimeout) {
			return nil, err
		}
		o.log.Warn().
			Int("groups", len(groups)).
			Int("merchants", merchantCount).
			Int("states", search.expanded).
			Dur("timeout", o.searchTimeout).
			Msg("Combination search timed out, using greedy consolidation")
		choices = greedyChoices(groups)
		algorithm = domain.AlgorithmGreedyFallback
	}

	result := o.assemble(groups, choices, matches)
	result.Algorithm = algorithm

	o.log.Debug().
		Int("groups", len(groups)).
		Int("stores", len(result.Assignments)).
		Float64("total_cost", result.TotalCost).
		Int("states", search.expanded).
		Str("algorithm", algorithm).
		Msg("Combination chosen")

	return result, nil
}

// buildItemGroups groups available matches by line-item name in order of first
// appearance and builds each group's merchant candidates: the best offers'
// merchants first, then alternatives, one per merchant, sorted by price.
func buildItemGroups(matches []domain.MatchResult) ([]itemGroup, int) {
	var groups []itemGroup
	groupIdx := make(map[string]int)
	for pos, match := range matches {
		if !match.IsAvailable || match.BestOffer == nil {
			continue
		}
		idx, ok := groupIdx[match.Item.Name]
		if !ok {
			idx = len(groups)
			groupIdx[match.Item.Name] = idx
			groups = append(groups, itemGroup{name: match.Item.Name})
		}
		groups[idx].members = append(groups[idx].members, match)
		groups[idx].positions = append(groups[idx].positions, pos)
	}

	merchantIdx := make(map[string]int)
	for gi := range groups {
		group := &groups[gi]

		var offers []domain.CatalogOffer
		for _, member := range group.members {
			offers = append(offers, *member.BestOffer)
		}
		for _, member := range group.members {
			offers = append(offers, member.Alternatives...)
		}

		seen := make(map[string]bool)
		for _, offer := range offers {
			if seen[offer.MerchantID] {
				continue
			}
			seen[offer.MerchantID] = true

			idx, ok := merchantIdx[offer.MerchantID]
			if !ok {
				idx = len(merchantIdx)
				merchantIdx[offer.MerchantID] = idx
			}

			candidate := storeCandidate{
				merchantID:  offer.MerchantID,
				merchantIdx: idx,
				offer:       offer,
			}
			for _, member := range group.members {
				memberOffer := offerAtMerchant(member, offer.MerchantID, offer)
				candidate.memberOffers = append(candidate.memberOffers, memberOffer)
				candidate.cost += memberOffer.Price
			}
			group.candidates = append(group.candidates, candidate)
		}

		sort.SliceStable(group.candidates, func(i, j int) bool {
			return group.candidates[i].offer.Price < group.candidates[j].offer.Price
		})
	}

	return groups, len(merchantIdx)
}

// offerAtMerchant returns the member's own offer at merchantID, or fallback
// when the member has none there.
func offerAtMerchant(member domain.MatchResult, merchantID string, fallback domain.CatalogOffer) domain.CatalogOffer {
	if member.BestOffer != nil && member.BestOffer.MerchantID == merchantID {
		return *member.BestOffer
	}
	for _, alt := range member.Alternatives {
		if alt.MerchantID == merchantID {
			return alt
		}
	}
	return fallback
}

// merchantSet is an immutable bitset of merchant indices
type merchantSet []uint64

func (s merchantSet) with(idx int) merchantSet {
	word := idx / 64
	size := max(len(s), word+1)
	next := make(merchantSet, size)
	copy(next, s)
	next[word] |= 1 << uint(idx%64)
	return next
}

func (s merchantSet) count() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// key canonicalizes the set for use in a map, ignoring trailing empty words
func (s merchantSet) key() string {
	end := len(s)
	for end > 0 && s[end-1] == 0 {
		end--
	}
	buf := make([]byte, 8*end)
	for i := 0; i < end; i++ {
		binary.LittleEndian.PutUint64(buf[i*8:], s[i])
	}
	return string(buf)
}

type searchKey struct {
	index int
	used  string
}

// searchOutcome is the best completion found from a state: the final store
// count, the cost of the remaining groups and the candidate chosen here.
type searchOutcome struct {
	stores int
	cost   float64
	choice int
}

// combinationSearch is a memoized exhaustive search over (group index,
// merchants already used). It lives for a single OptimalCombination call.
type combinationSearch struct {
	ctx      context.Context
	groups   []itemGroup
	memo     map[searchKey]searchOutcome
	expanded int
}

func newCombinationSearch(ctx context.Context, groups []itemGroup) *combinationSearch {
	return &combinationSearch{
		ctx:    ctx,
		groups: groups,
		memo:   make(map[searchKey]searchOutcome),
	}
}

// run solves the whole problem and returns the chosen candidate index per group
func (s *combinationSearch) run() ([]int, error) {
	if _, err := s.solve(0, nil); err != nil {
		return nil, err
	}

	choices := make([]int, len(s.groups))
	var used merchantSet
	for i := range s.groups {
		outcome, ok := s.memo[searchKey{index: i, used: used.key()}]
		if !ok {
			return nil, fmt.Errorf("combination search: missing state for group %d", i)
		}
		choices[i] = outcome.choice
		used = used.with(s.groups[i].candidates[outcome.choice].merchantIdx)
	}
	return choices, nil
}

func (s *combinationSearch) solve(index int, used merchantSet) (searchOutcome, error) {
	if index == len(s.groups) {
		return searchOutcome{stores: used.count(), choice: -1}, nil
	}

	key := searchKey{index: index, used: used.key()}
	if outcome, ok := s.memo[key]; ok {
		return outcome, nil
	}

	s.expanded++
	if s.expanded%ctxCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return searchOutcome{}, domain.ErrSearchTimeout
			}
			return searchOutcome{}, err
		}
	}

	best := searchOutcome{stores: -1, choice: -1}
	for i, candidate := range s.groups[index].candidates {
		rest, err := s.solve(index+1, used.with(candidate.merchantIdx))
		if err != nil {
			return searchOutcome{}, err
		}
		cost := candidate.cost + rest.cost
		if best.stores < 0 || rest.stores < best.stores || (rest.stores == best.stores && cost < best.cost) {
			best = searchOutcome{stores: rest.stores, cost: cost, choice: i}
		}
	}

	s.memo[key] = best
	return best, nil
}

// greedyChoices picks, group by group, the cheapest candidate at a merchant that
// is already used, or the cheapest candidate overall when none is.
func greedyChoices(groups []itemGroup) []int {
	choices := make([]int, len(groups))
	used := make(map[string]bool)
	for gi, group := range groups {
		choice := 0
		for i, candidate := range group.candidates {
			if used[candidate.merchantID] {
				choice = i
				break
			}
		}
		choices[gi] = choice
		used[group.candidates[choice].merchantID] = true
	}
	return choices
}

// assemble turns the per-group choices into store assignments sorted by item
// count descending, then total cost ascending.
func (o *CombinationOptimizer) assemble(groups []itemGroup, choices []int, matches []domain.MatchResult) *CombinationResult {
	byMerchant := make(map[string]*domain.StoreAssignment)
	var assignments []*domain.StoreAssignment
	distribution := make(map[string]*domain.StoreAssignment, len(groups))
	resolved := append([]domain.MatchResult{}, matches...)

	for gi, group := range groups {
		candidate := group.candidates[choices[gi]]

		assignment, ok := byMerchant[candidate.merchantID]
		if !ok {
			assignment = &domain.StoreAssignment{
				MerchantID:   candidate.merchantID,
				MerchantName: o.merchants.DisplayName(candidate.merchantID),
				LogoURL:      o.merchants.LogoURL(candidate.merchantID),
				Items:        []domain.MatchResult{},
			}
			byMerchant[candidate.merchantID] = assignment
			assignments = append(assignments, assignment)
		}

		for mi, member := range group.members {
			chosen := withChosenOffer(member, candidate.memberOffers[mi])
			resolved[group.positions[mi]] = chosen
			assignment.Items = append(assignment.Items, chosen)
			assignment.ItemCount++
			assignment.TotalCost += candidate.memberOffers[mi].Price
		}
		distribution[group.name] = assignment
	}

	sort.SliceStable(assignments, func(i, j int) bool {
		if assignments[i].ItemCount != assignments[j].ItemCount {
			return assignments[i].ItemCount > assignments[j].ItemCount
		}
		return assignments[i].TotalCost < assignments[j].TotalCost
	})

	total := 0.0
	for _, assignment := range assignments {
		total += assignment.TotalCost
	}

	return &CombinationResult{
		Assignments:      assignments,
		ItemDistribution: distribution,
		Matches:          resolved,
		TotalCost:        total,
	}
}

// withChosenOffer returns a copy of the match resolved to the given offer
func withChosenOffer(match domain.MatchResult, offer domain.CatalogOffer) domain.MatchResult {
	if match.BestOffer != nil && *match.BestOffer == offer {
		return match
	}
	chosen := offer
	match.BestOffer = &chosen
	match.PotentialSavings = potentialSavings(match.Item, &chosen)
	return match
}

// potentialSavings is how much cheaper the offer is than the item's current
// total price, or zero when it is not cheaper.
func potentialSavings(item domain.LineItem, offer *domain.CatalogOffer) float64 {
	if offer == nil || offer.Price <= 0 {
		return 0
	}
	if savings := item.TotalPrice - offer.Price; savings > 0 {
		return savings
	}
	return 0
}
