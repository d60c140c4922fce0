package scraper

import (
	"fmt"
	"sort"

	"github.com/jmcruz/skins-arb/internal/adapters"
)

// Factory builds one adapter against the shared collaborators.
type Factory func(*adapters.Deps) adapters.Adapter

// registry is the compile-time table of source tag to adapter factory.
// Adding a marketplace means adding a row here.
//
//nolint:gochecknoglobals // compile-time registry
var registry = map[string]Factory{
	"skinport":     adapters.NewSkinport,
	"waxpeer":      adapters.NewWaxpeer,
	"csdeals":      adapters.NewCSDeals,
	"marketcsgo":   adapters.NewMarketCSGO,
	"cstrade":      adapters.NewCSTrade,
	"lisskins":     adapters.NewLisSkins,
	"white":        adapters.NewWhite,
	"bitskins":     adapters.NewBitskins,
	"shadowpay":    adapters.NewShadowpay,
	"skindeck":     adapters.NewSkindeck,
	"empire":       adapters.NewEmpire,
	"tradeit":      adapters.NewTradeIt,
	"skinout":      adapters.NewSkinOut,
	"manncostore":  adapters.NewManncoStore,
	"rapidskins":   adapters.NewRapidSkins,
	"steammarket":  adapters.NewSteamMarket,
	"steamlisting": adapters.NewSteamListing,
	"steamnameids": adapters.NewSteamNameIDs,
}

// Sources returns all registered source tags, sorted.
func Sources() []string {
	out := make([]string, 0, len(registry))
	for tag := range registry {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Build instantiates adapters for the requested tags, or for every enabled
// registered source when tags is empty.
func Build(tags []string, deps *adapters.Deps) ([]adapters.Adapter, error) {
	if len(tags) == 0 {
		for _, tag := range Sources() {
			sc, ok := deps.Config.Source(tag)
			if !ok || sc.Enabled {
				tags = append(tags, tag)
			}
		}
	}

	out := make([]adapters.Adapter, 0, len(tags))
	for _, tag := range tags {
		factory, ok := registry[tag]
		if !ok {
			return nil, fmt.Errorf("unknown source %q (known: %v)", tag, Sources())
		}
		out = append(out, factory(deps))
	}
	return out, nil
}

// ExpandGroup resolves a named group from config into source tags.
func ExpandGroup(groups map[string][]string, name string) ([]string, error) {
	tags, ok := groups[name]
	if !ok {
		return nil, fmt.Errorf("unknown scraper group %q", name)
	}
	return tags, nil
}
