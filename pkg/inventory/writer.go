package inventory

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Build assembles this repository's inventory from discovered routes and
// functions, sorted by path.
func Build(repo string, now time.Time, entries ...map[string]*wiring.RouteEntry) wiring.APIInventory {
	inv := wiring.APIInventory{
		SchemaVersion: SchemaVersion,
		Repo:          repo,
		GeneratedAt:   wiring.Timestamp(now),
		Routes:        make([]wiring.RouteDefinition, 0),
	}
	for _, m := range entries {
		for _, e := range m {
			def := e.RouteDefinition
			def.Methods = wiring.SortMethods(def.Methods)
			inv.Routes = append(inv.Routes, def)
		}
	}
	sort.Slice(inv.Routes, func(i, j int) bool { return inv.Routes[i].Path < inv.Routes[j].Path })
	return inv
}

// Marshal renders an inventory as indented JSON with a trailing newline
func Marshal(inv wiring.APIInventory) ([]byte, error) {
	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding inventory: %w", err)
	}
	return append(data, '\n'), nil
}
