package relay

import (
	"fmt"

	"github.com/tinyland-inc/kakehashi/pkg/config"
)

// RouteKind identifies which side of a pairing a source channel sits
// on.
type RouteKind int

const (
	// RouteSelf is a channel paired with itself: translate in place,
	// direction chosen per message by detected language.
	RouteSelf RouteKind = iota
	// RouteForward is the Japanese-side source of a two-channel pair.
	RouteForward
	// RouteReverse is the English-side source of a two-channel pair.
	RouteReverse
)

// Route is the routing decision for one source channel.
type Route struct {
	TargetChannel string
	Kind          RouteKind
}

// Router is the static routing table, built once from configuration.
// Self and forward entries take precedence over derived reverse
// entries when a channel would otherwise appear twice.
type Router struct {
	routes map[string]Route
}

func NewRouter(pairings []config.Pairing) (*Router, error) {
	routes := make(map[string]Route, len(pairings)*2)

	for _, p := range pairings {
		if _, dup := routes[p.Source]; dup {
			return nil, fmt.Errorf("channel %s is a source in more than one pairing", p.Source)
		}
		if p.Source == p.Target {
			routes[p.Source] = Route{TargetChannel: p.Source, Kind: RouteSelf}
			continue
		}
		routes[p.Source] = Route{TargetChannel: p.Target, Kind: RouteForward}
	}

	// Reverse entries are derived, so an explicit entry wins.
	for _, p := range pairings {
		if p.Source == p.Target {
			continue
		}
		if _, exists := routes[p.Target]; exists {
			continue
		}
		routes[p.Target] = Route{TargetChannel: p.Source, Kind: RouteReverse}
	}

	return &Router{routes: routes}, nil
}

// Resolve returns the route for a source channel, if any.
func (r *Router) Resolve(channelID string) (Route, bool) {
	route, ok := r.routes[channelID]
	return route, ok
}

// Monitored reports whether a channel participates in any pairing.
func (r *Router) Monitored(channelID string) bool {
	_, ok := r.routes[channelID]
	return ok
}

// Channels lists every monitored channel ID. Order is unspecified.
func (r *Router) Channels() []string {
	out := make([]string, 0, len(r.routes))
	for id := range r.routes {
		out = append(out, id)
	}
	return out
}
