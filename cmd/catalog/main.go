// Command catalog checks tile catalogs and plays simulated matches with them.
//
//	catalog validate catalogs/*.json
//	catalog stats base
//	catalog simulate --games 50 --players 3 --expansions traders-builders
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/krueger80/carcassonne-ai-sub001/game/config"
	"github.com/krueger80/carcassonne-ai-sub001/game/engine"
)

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:    "dir",
		Usage:   "catalog directory",
		Value:   "catalogs",
		Sources: cli.EnvVars("CATALOG_DIR"),
	}

	return &cli.Command{
		Name:  "catalog",
		Usage: "inspect tile catalogs",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check catalog files for structural errors",
				ArgsUsage: "[file.json ...]",
				Flags:     []cli.Flag{dirFlag},
				Action:    runValidate,
			},
			{
				Name:      "stats",
				Usage:     "summarise the tiles in a catalog",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{dirFlag},
				Action:    runStats,
			},
			{
				Name:  "simulate",
				Usage: "play random matches and report score spread",
				Flags: []cli.Flag{
					dirFlag,
					&cli.StringFlag{Name: "catalog", Value: "base", Usage: "catalog name"},
					&cli.StringSliceFlag{Name: "expansions", Usage: "expansion ids to enable"},
					&cli.IntFlag{Name: "games", Value: 10, Usage: "number of matches"},
					&cli.IntFlag{Name: "players", Value: 2, Usage: "players per match"},
					&cli.Uint64Flag{Name: "seed", Usage: "shuffle seed, 0 for a random one"},
				},
				Action: runSimulate,
			},
		},
	}
}

// ValidationResult is the outcome of checking one catalog file
type ValidationResult struct {
	File  string
	Valid bool
	Err   error
	Tiles int
	Types int
}

func validateFile(path string) ValidationResult {
	result := ValidationResult{File: path}
	catalog, err := engine.LoadCatalogFile(path)
	if err != nil {
		result.Err = err
		return result
	}
	result.Valid = true
	result.Tiles = catalog.TotalTiles()
	result.Types = len(catalog.Tiles)
	return result
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(cmd.String("dir"), "*.json"))
		if err != nil {
			return err
		}
		files = matches
	}
	if len(files) == 0 {
		return cli.Exit("no catalog files found", 1)
	}

	out := writer(cmd)
	failed := 0
	for _, file := range files {
		r := validateFile(file)
		if !r.Valid {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", file, r.Err)
			continue
		}
		fmt.Fprintf(out, "✓ %s: %d tiles, %d types\n", file, r.Tiles, r.Types)
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d catalogs invalid", failed, len(files)), 1)
	}
	return nil
}

// CatalogStats counts what a catalog puts into the bag
type CatalogStats struct {
	Name       string
	Expansion  string
	Types      int
	Tiles      int
	Segments   map[engine.SegmentType]int
	Pennants   int
	Inns       int
	Cathedrals int
	Goods      map[engine.Commodity]int
}

// collectStats weighs every segment feature by the tile count
func collectStats(catalog *engine.CatalogFile) CatalogStats {
	stats := CatalogStats{
		Name:      catalog.Name,
		Expansion: catalog.Expansion,
		Types:     len(catalog.Tiles),
		Tiles:     catalog.TotalTiles(),
		Segments:  make(map[engine.SegmentType]int),
		Goods:     make(map[engine.Commodity]int),
	}
	for _, def := range catalog.Tiles {
		for _, seg := range def.Segments {
			stats.Segments[seg.Type] += def.Count
			if seg.HasPennant {
				stats.Pennants += def.Count
			}
			if seg.HasInn {
				stats.Inns += def.Count
			}
			if seg.HasCathedral {
				stats.Cathedrals += def.Count
			}
			if seg.Commodity != "" {
				stats.Goods[seg.Commodity] += def.Count
			}
		}
	}
	return stats
}

func runStats(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return cli.Exit("usage: catalog stats <name>", 1)
	}

	manager, err := config.NewManager(cmd.String("dir"))
	if err != nil {
		return err
	}
	catalog, err := manager.LoadCatalog(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("load %s: %w", cmd.Args().First(), err)
	}

	printStats(writer(cmd), collectStats(catalog))
	return nil
}

func printStats(out io.Writer, stats CatalogStats) {
	fmt.Fprintf(out, "Catalog: %s\n", stats.Name)
	if stats.Expansion != "" {
		fmt.Fprintf(out, "Expansion: %s\n", stats.Expansion)
	}
	fmt.Fprintf(out, "Tiles: %d (%d types)\n", stats.Tiles, stats.Types)
	for _, t := range []engine.SegmentType{engine.City, engine.Road, engine.Field, engine.Cloister} {
		fmt.Fprintf(out, "  %-9s %d\n", t, stats.Segments[t])
	}
	fmt.Fprintf(out, "Pennants: %d\n", stats.Pennants)
	if stats.Inns > 0 || stats.Cathedrals > 0 {
		fmt.Fprintf(out, "Inns: %d, cathedrals: %d\n", stats.Inns, stats.Cathedrals)
	}
	for _, c := range engine.Commodities {
		if n := stats.Goods[c]; n > 0 {
			fmt.Fprintf(out, "Goods %s: %d\n", c, n)
		}
	}
}

// seededSource adapts a PCG generator to the bag's RandomSource
type seededSource struct {
	rng *rand.Rand
}

func newSeededSource(seed uint64) *seededSource {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	return s.rng.IntN(n)
}

// SimulationReport aggregates random matches
type SimulationReport struct {
	Games     int
	Turns     int
	Discarded int
	Scores    []int
	Wins      map[int]int
}

// Average returns the mean final score over all players
func (r *SimulationReport) Average() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	total := 0
	for _, s := range r.Scores {
		total += s
	}
	return float64(total) / float64(len(r.Scores))
}

// buildConfig merges expansion catalogs into the base definitions
func buildConfig(manager *config.Manager, catalogName string, expansions []string, players int) (*engine.GameConfig, error) {
	base, err := manager.LoadCatalog(catalogName)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", catalogName, err)
	}

	defs := append([]*engine.TileDefinition{}, base.Tiles...)
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		seen[def.ID] = true
	}
	for _, id := range expansions {
		extra, err := manager.LoadCatalog(id)
		if err != nil {
			continue
		}
		for _, def := range extra.Tiles {
			if !seen[def.ID] {
				seen[def.ID] = true
				defs = append(defs, def)
			}
		}
	}

	names := make([]string, players)
	for i := range names {
		names[i] = fmt.Sprintf("Bot %d", i+1)
	}

	return &engine.GameConfig{PlayerNames: names, Definitions: defs, Expansions: expansions}, nil
}

// playRandomMatch drives one engine to the end with uniformly random choices
func playRandomMatch(cfg *engine.GameConfig, rng *rand.Rand) (*engine.GameState, int, error) {
	e, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, 0, err
	}

	turns := 0
	for !e.IsGameOver() {
		if !e.DrawTile() {
			return nil, turns, fmt.Errorf("draw rejected in phase %s", e.GetState().TurnPhase)
		}
		if e.IsGameOver() {
			break
		}

		placements := e.ValidPlacements()
		if len(placements) == 0 {
			return nil, turns, fmt.Errorf("drawn tile %s has nowhere to go", e.GetState().CurrentTile.DefinitionID)
		}
		p := placements[rng.IntN(len(placements))]
		want := p.Rotations[rng.IntN(len(p.Rotations))]
		for e.GetState().CurrentTile.Rotation != want {
			e.RotateTile()
		}
		if !e.PlaceTile(p.Coordinate) {
			return nil, turns, fmt.Errorf("placement at %s rejected", engine.CoordKey(p.Coordinate))
		}

		placed := false
		if options := e.MeepleOptions(); len(options) > 0 && rng.IntN(2) == 0 {
			opt := options[rng.IntN(len(options))]
			placed = e.PlaceMeeple(opt.SegmentID, opt.Kinds[rng.IntN(len(opt.Kinds))])
		}
		if !placed {
			e.SkipMeeple()
		}
		e.EndTurn()
		turns++
	}

	return e.GetState(), turns, nil
}

// simulate plays games matches and collects final scores
func simulate(cfg *engine.GameConfig, games int, seed uint64) (*SimulationReport, error) {
	report := &SimulationReport{Wins: make(map[int]int)}
	rng := rand.New(rand.NewPCG(seed, seed+1))

	for g := 0; g < games; g++ {
		run := *cfg
		run.Random = newSeededSource(rng.Uint64())

		final, turns, err := playRandomMatch(&run, rng)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", g+1, err)
		}

		report.Games++
		report.Turns += turns
		report.Discarded += len(final.DiscardedTiles)
		best, bestSeat := -1, 0
		for i, p := range final.Players {
			report.Scores = append(report.Scores, p.Score)
			if p.Score > best {
				best, bestSeat = p.Score, i
			}
		}
		report.Wins[bestSeat]++
	}
	return report, nil
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	players := int(cmd.Int("players"))
	if players < engine.MinPlayers || players > engine.MaxPlayers {
		return cli.Exit(fmt.Sprintf("players must be between %d and %d", engine.MinPlayers, engine.MaxPlayers), 1)
	}
	games := int(cmd.Int("games"))
	if games <= 0 {
		return cli.Exit("games must be positive", 1)
	}

	manager, err := config.NewManager(cmd.String("dir"))
	if err != nil {
		return err
	}
	cfg, err := buildConfig(manager, cmd.String("catalog"), cmd.StringSlice("expansions"), players)
	if err != nil {
		return err
	}

	seed := cmd.Uint64("seed")
	if seed == 0 {
		seed = rand.Uint64()
	}

	report, err := simulate(cfg, games, seed)
	if err != nil {
		return err
	}
	printReport(writer(cmd), report, seed, cfg.Expansions)
	return nil
}

func printReport(out io.Writer, r *SimulationReport, seed uint64, expansions []string) {
	fmt.Fprintf(out, "Seed: %d\n", seed)
	if len(expansions) > 0 {
		fmt.Fprintf(out, "Expansions: %s\n", strings.Join(expansions, ", "))
	}
	fmt.Fprintf(out, "Games: %d, turns per game: %.1f, discarded tiles: %d\n",
		r.Games, float64(r.Turns)/float64(r.Games), r.Discarded)

	scores := append([]int(nil), r.Scores...)
	sort.Ints(scores)
	fmt.Fprintf(out, "Scores: min %d, median %d, max %d, mean %.1f\n",
		scores[0], scores[len(scores)/2], scores[len(scores)-1], r.Average())

	seats := make([]int, 0, len(r.Wins))
	for seat := range r.Wins {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	for _, seat := range seats {
		fmt.Fprintf(out, "  seat %d won %d\n", seat+1, r.Wins[seat])
	}
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
