package engine

import "sort"

// PointsFunc computes the points a feature is worth
type PointsFunc func(f *Feature, t *FeatureTracker) int

// DistributeFunc computes the full per-player award for a feature when a
// flat majority split does not fit
type DistributeFunc func(f *Feature, t *FeatureTracker, complete bool) map[string]int

// ScoringRule scores one feature type. Applies narrows the rule to features
// carrying a given attribute; a nil Applies matches every feature of Type.
type ScoringRule struct {
	Name       string
	Type       SegmentType
	Applies    func(f *Feature) bool
	Complete   PointsFunc
	Incomplete PointsFunc
	Distribute DistributeFunc
}

func (r *ScoringRule) matches(f *Feature) bool {
	return r.Type == f.Type && (r.Applies == nil || r.Applies(f))
}

// BaseRules are the rules used when no expansion overrides a feature
var BaseRules = []ScoringRule{
	{
		Name:       "road",
		Type:       Road,
		Complete:   func(f *Feature, _ *FeatureTracker) int { return f.TileCount },
		Incomplete: func(f *Feature, _ *FeatureTracker) int { return f.TileCount },
	},
	{
		Name:       "city",
		Type:       City,
		Complete:   func(f *Feature, _ *FeatureTracker) int { return (f.TileCount + f.PennantCount) * 2 },
		Incomplete: func(f *Feature, _ *FeatureTracker) int { return f.TileCount + f.PennantCount },
	},
	{
		Name:       "cloister",
		Type:       Cloister,
		Complete:   func(_ *Feature, _ *FeatureTracker) int { return 9 },
		Incomplete: func(f *Feature, _ *FeatureTracker) int { return f.TileCount },
	},
	{
		Name:       "field",
		Type:       Field,
		Complete:   farmPoints,
		Incomplete: farmPoints,
	},
}

func farmPoints(f *Feature, t *FeatureTracker) int {
	return t.AdjacentCompletedCities(f) * 3
}

// RuleSet maps a feature type to its candidate rules in lookup order
type RuleSet map[SegmentType][]ScoringRule

// NewRuleSet orders the rules of the listed expansions ahead of the base
// rules. Unknown expansion ids are skipped.
func NewRuleSet(expansions []string) RuleSet {
	rs := make(RuleSet)
	for _, id := range expansions {
		exp, ok := GetExpansion(id)
		if !ok {
			continue
		}
		for _, rule := range exp.Rules {
			rs[rule.Type] = append(rs[rule.Type], rule)
		}
	}
	for _, rule := range BaseRules {
		rs[rule.Type] = append(rs[rule.Type], rule)
	}
	return rs
}

// Lookup returns the first rule matching f, or nil
func (rs RuleSet) Lookup(f *Feature) *ScoringRule {
	candidates := rs[f.Type]
	for i := range candidates {
		if candidates[i].matches(f) {
			return &candidates[i]
		}
	}
	return nil
}

// MeepleWeight is the majority weight of a meeple kind
func MeepleWeight(kind MeepleKind) int {
	switch kind {
	case NormalMeeple:
		return 1
	case BigMeeple:
		return 2
	default:
		return 0
	}
}

// majorityHolders returns the players with the highest meeple weight on f
func majorityHolders(f *Feature) []string {
	weights := make(map[string]int)
	for _, m := range f.Meeples {
		if w := MeepleWeight(m.Kind); w > 0 {
			weights[m.PlayerID] += w
		}
	}

	best := 0
	for _, w := range weights {
		best = max(best, w)
	}
	if best == 0 {
		return nil
	}

	var holders []string
	for id, w := range weights {
		if w == best {
			holders = append(holders, id)
		}
	}
	sort.Strings(holders)
	return holders
}

// DistributeMajority gives points to every majority holder of f. Ties share
// the full amount.
func DistributeMajority(f *Feature, points int) map[string]int {
	if points == 0 {
		return nil
	}
	holders := majorityHolders(f)
	if len(holders) == 0 {
		return nil
	}
	scores := make(map[string]int, len(holders))
	for _, id := range holders {
		scores[id] = points
	}
	return scores
}

// scoreFeature returns the per-player award for f under rules
func scoreFeature(f *Feature, t *FeatureTracker, rules RuleSet, complete bool) map[string]int {
	rule := rules.Lookup(f)
	if rule == nil {
		return nil
	}
	if rule.Distribute != nil {
		return rule.Distribute(f, t, complete)
	}
	points := rule.Incomplete
	if complete {
		points = rule.Complete
	}
	return DistributeMajority(f, points(f, t))
}

func newScoreEvent(f *Feature, scores map[string]int, endGame bool) ScoreEvent {
	return ScoreEvent{
		FeatureID:   f.ID,
		FeatureType: f.Type,
		Scores:      scores,
		Tiles:       f.Tiles(),
		IsEndGame:   endGame,
	}
}

// ScoreCompletedFeatures builds events for features completed mid-game.
// Features already scored or not complete are skipped.
func ScoreCompletedFeatures(ids []string, t *FeatureTracker, rules RuleSet) []ScoreEvent {
	var events []ScoreEvent
	for _, id := range ids {
		f := t.Feature(id)
		if f == nil || !f.Complete || f.Scored {
			continue
		}
		if scores := scoreFeature(f, t, rules, true); len(scores) > 0 {
			events = append(events, newScoreEvent(f, scores, false))
		}
	}
	return events
}

// ScoreRemainingFeatures builds end-game events for every unscored feature
// that still holds meeples. Fields come last.
func ScoreRemainingFeatures(t *FeatureTracker, rules RuleSet) []ScoreEvent {
	var events, farms []ScoreEvent
	for _, f := range t.Features() {
		if f.Scored || len(f.Meeples) == 0 {
			continue
		}
		scores := scoreFeature(f, t, rules, f.Complete)
		if len(scores) == 0 {
			continue
		}
		if f.Type == Field {
			farms = append(farms, newScoreEvent(f, scores, true))
			continue
		}
		events = append(events, newScoreEvent(f, scores, true))
	}
	return append(events, farms...)
}

// ApplyScoreEvents returns a copy of players with the events credited
func ApplyScoreEvents(players []Player, events []ScoreEvent) []Player {
	updated := clonePlayers(players)
	for _, event := range events {
		for id, points := range event.Scores {
			if i := playerIndex(updated, id); i >= 0 {
				updated[i].Score += points
			}
		}
	}
	return updated
}

// DistributeCommodities hands the trade goods of a completed city to its
// majority holders. Every holder receives the full set.
func DistributeCommodities(f *Feature) map[string]map[Commodity]int {
	if f.Type != City || !f.Complete || len(f.Commodities) == 0 {
		return nil
	}
	holders := majorityHolders(f)
	if len(holders) == 0 {
		return nil
	}
	out := make(map[string]map[Commodity]int, len(holders))
	for _, id := range holders {
		goods := make(map[Commodity]int, len(f.Commodities))
		for c, n := range f.Commodities {
			goods[c] = n
		}
		out[id] = goods
	}
	return out
}

// TraderBonus awards TraderBonusPoints points per commodity to the players holding
// the most of it
func TraderBonus(players []Player) []ScoreEvent {
	var events []ScoreEvent
	for _, c := range Commodities {
		most := 0
		for _, p := range players {
			most = max(most, p.Commodities[c])
		}
		if most == 0 {
			continue
		}
		scores := make(map[string]int)
		for _, p := range players {
			if p.Commodities[c] == most {
				scores[p.ID] = TraderBonusPoints
			}
		}
		events = append(events, ScoreEvent{
			FeatureID:   "trader_bonus_" + string(c),
			FeatureType: City,
			Scores:      scores,
			Tiles:       []Coordinate{},
			IsEndGame:   true,
		})
	}
	return events
}
