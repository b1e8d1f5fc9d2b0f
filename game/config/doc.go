// Package config manages the tile catalogs matches are dealt from.
//
// A catalog is a JSON file in the catalogs directory listing tile
// definitions: segments, the 12 edge positions each segment touches,
// intra-tile adjacencies and copy counts. Exactly one base catalog
// definition is flagged as the starting tile. Expansion catalogs carry an
// "expansion" id and add tiles to a base catalog when that expansion is
// enabled for a match.
//
// Available catalogs:
//   - base: the 72-tile base game
//   - inns-cathedrals: inns on roads and cathedrals in cities
//   - traders-builders: cities carrying wine, wheat and cloth
//
// Usage:
//
//	manager, err := config.NewManager("catalogs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	base := manager.GetDefault()
//	extra, err := manager.LoadCatalog("inns-cathedrals")
//	infos, err := manager.ListCatalogs()
//
// Catalogs are validated on load; invalid files are skipped by
// ListCatalogs and reported as ErrInvalidCatalog by LoadCatalog.
package config
