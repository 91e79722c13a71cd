package workflow

import (
	"net/url"
	"strings"

	"podcast-app/internal/apperr"
)

// Transition is one allowed move between modes. PreserveData and SyncRSS are
// the defaults a caller should offer for the move.
type Transition struct {
	From         Mode `json:"from"`
	To           Mode `json:"to"`
	PreserveData bool `json:"preserveData"`
	SyncRSS      bool `json:"syncRSS"`
}

var transitionTable = map[Mode][]Transition{
	ModeManual: {
		{From: ModeManual, To: ModeRSS, PreserveData: false, SyncRSS: true},
		{From: ModeManual, To: ModeHybrid, PreserveData: true, SyncRSS: true},
	},
	ModeRSS: {
		{From: ModeRSS, To: ModeManual, PreserveData: true, SyncRSS: false},
		{From: ModeRSS, To: ModeHybrid, PreserveData: true, SyncRSS: false},
	},
	ModeHybrid: {
		{From: ModeHybrid, To: ModeManual, PreserveData: true, SyncRSS: false},
		{From: ModeHybrid, To: ModeRSS, PreserveData: false, SyncRSS: true},
	},
}

// AvailableTransitions returns the outbound edges of mode. Unknown modes have none.
func AvailableTransitions(mode Mode) []Transition {
	edges := transitionTable[mode]
	out := make([]Transition, len(edges))
	copy(out, edges)
	return out
}

func FindTransition(from, to Mode) (Transition, bool) {
	for _, t := range transitionTable[from] {
		if t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// ValidateTransition checks a move without executing it. rssURL is the URL that
// would be on record after the move (supplied or existing); it only matters for
// targets that sync from a feed.
func ValidateTransition(from, to Mode, rssURL string) error {
	if err := ValidateEdge(from, to); err != nil {
		return err
	}
	if to == ModeRSS || to == ModeHybrid {
		return ValidateFeedURL(rssURL)
	}
	return nil
}

// ValidateEdge checks only the edge table: known modes, no self-transition.
func ValidateEdge(from, to Mode) error {
	if _, ok := ParseMode(string(from)); !ok {
		return apperr.Validation("Invalid source mode %q", from)
	}
	if _, ok := ParseMode(string(to)); !ok {
		return apperr.Validation("Invalid target mode %q", to)
	}
	if from == to {
		return apperr.Validation("Podcast is already in %s mode", to)
	}
	if _, ok := FindTransition(from, to); !ok {
		return apperr.Validation("Transition from %s to %s is not allowed", from, to)
	}
	return nil
}

// ValidateFeedURL requires a non-empty absolute http(s) URL.
func ValidateFeedURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apperr.Validation("RSS URL is required for RSS and hybrid modes")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.Validation("RSS URL must be an absolute http(s) URL")
	}
	return nil
}
