package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Expansion ids known to the engine
const (
	InnsCathedrals    = "inns-cathedrals"
	InnsCathedralsC31 = "inns-cathedrals-c31"
	TradersBuilders   = "traders-builders"
	DragonFairy       = "dragon-fairy"
)

// Expansion bundles the rule overrides and extra meeples of a game expansion
type Expansion struct {
	ID          string        `json:"id"`
	Version     string        `json:"version,omitempty"`
	Description string        `json:"description"`
	BigMeeples  int           `json:"big_meeples"`
	Pigs        int           `json:"pigs"`
	TradeGoods  bool          `json:"trade_goods"`
	Rules       []ScoringRule `json:"-"`
}

var (
	expansionsMu sync.RWMutex
	expansions   = make(map[string]*Expansion)
)

// RegisterExpansion makes an expansion available by id
func RegisterExpansion(exp *Expansion) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("expansion id is required")
	}
	expansionsMu.Lock()
	defer expansionsMu.Unlock()
	if _, exists := expansions[exp.ID]; exists {
		return fmt.Errorf("expansion %q already registered", exp.ID)
	}
	expansions[exp.ID] = exp
	return nil
}

// GetExpansion looks up a registered expansion
func GetExpansion(id string) (*Expansion, bool) {
	expansionsMu.RLock()
	defer expansionsMu.RUnlock()
	exp, ok := expansions[id]
	return exp, ok
}

// ListExpansions returns every registered expansion ordered by id
func ListExpansions() []*Expansion {
	expansionsMu.RLock()
	defer expansionsMu.RUnlock()
	list := make([]*Expansion, 0, len(expansions))
	for _, exp := range expansions {
		list = append(list, exp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// activeExpansions resolves ids to registered expansions, skipping unknown ones
func activeExpansions(ids []string) []*Expansion {
	var list []*Expansion
	for _, id := range ids {
		if exp, ok := GetExpansion(id); ok {
			list = append(list, exp)
		}
	}
	return list
}

func hasInn(f *Feature) bool       { return f.HasInn }
func hasCathedral(f *Feature) bool { return f.HasCathedral }

// innRoad and cathedralCity share their complete scores across editions
var (
	innRoadComplete = func(f *Feature, _ *FeatureTracker) int { return f.TileCount * 2 }
	cathedralCity   = func(f *Feature, _ *FeatureTracker) int { return (f.TileCount + f.PennantCount) * 3 }
	scoresNothing   = func(_ *Feature, _ *FeatureTracker) int { return 0 }
)

// pigFarm scores a field for its majority holders; holders who also keep a
// pig there earn 4 per completed city instead of 3.
func pigFarm(f *Feature, t *FeatureTracker, _ bool) map[string]int {
	holders := majorityHolders(f)
	if len(holders) == 0 {
		return nil
	}
	cities := t.AdjacentCompletedCities(f)
	if cities == 0 {
		return nil
	}

	pigs := make(map[string]bool)
	for _, m := range f.Meeples {
		if m.Kind == Pig {
			pigs[m.PlayerID] = true
		}
	}

	scores := make(map[string]int, len(holders))
	for _, id := range holders {
		perCity := 3
		if pigs[id] {
			perCity = 4
		}
		scores[id] = cities * perCity
	}
	return scores
}

func init() {
	builtin := []*Expansion{
		{
			ID:          InnsCathedrals,
			Description: "Inns double complete roads, cathedrals triple complete cities; both score nothing when unfinished",
			BigMeeples:  1,
			Rules: []ScoringRule{
				{Name: "inn-road", Type: Road, Applies: hasInn, Complete: innRoadComplete, Incomplete: scoresNothing},
				{Name: "cathedral-city", Type: City, Applies: hasCathedral, Complete: cathedralCity, Incomplete: scoresNothing},
			},
		},
		{
			ID:          InnsCathedralsC31,
			Version:     "C3.1",
			Description: "Inns & Cathedrals where unfinished inn roads and cathedral cities keep their base value",
			BigMeeples:  1,
			Rules: []ScoringRule{
				{Name: "inn-road", Type: Road, Applies: hasInn, Complete: innRoadComplete,
					Incomplete: func(f *Feature, _ *FeatureTracker) int { return f.TileCount }},
				{Name: "cathedral-city", Type: City, Applies: hasCathedral, Complete: cathedralCity,
					Incomplete: func(f *Feature, _ *FeatureTracker) int { return f.TileCount + f.PennantCount }},
			},
		},
		{
			ID:          TradersBuilders,
			Description: "Trade goods for completed cities, trader bonus at game end, pigs on farms",
			BigMeeples:  1,
			Pigs:        1,
			TradeGoods:  true,
			Rules: []ScoringRule{
				{Name: "pig-farm", Type: Field, Complete: farmPoints, Incomplete: farmPoints, Distribute: pigFarm},
			},
		},
		{
			ID:          DragonFairy,
			Version:     "C3.1",
			Description: "Dragon and fairy tiles; scoring follows the base rules",
		},
	}
	for _, exp := range builtin {
		if err := RegisterExpansion(exp); err != nil {
			panic(err)
		}
	}
}
