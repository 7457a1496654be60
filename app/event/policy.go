package event

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/denizkarakus123/EventHive-backend/app/database"
)

// Source channels a candidate can originate from.
const (
	ChannelSocial = "social"
	ChannelMail   = "mail"
)

// MatchPolicy decides whether a candidate duplicates an existing event that
// shares its start instant.
type MatchPolicy string

const (
	// PolicyExact requires name and location-or-link to be exactly equal.
	PolicyExact MatchPolicy = "exact"
	// PolicyLenient matches name and location-or-link by case-insensitive
	// substring containment.
	PolicyLenient MatchPolicy = "lenient"
)

// PolicyForChannel maps a source channel to its duplicate-matching policy:
// social posts dedup exactly, mail-sourced candidates leniently.
func PolicyForChannel(channel string) MatchPolicy {
	if channel == ChannelMail {
		return PolicyLenient
	}
	return PolicyExact
}

var foldCaser = cases.Fold()

func (p MatchPolicy) Matches(existing database.Event, name, locationOrLink string) bool {
	existingLoc := existing.Location
	if existingLoc == "" {
		existingLoc = existing.Link
	}

	switch p {
	case PolicyLenient:
		return containsFold(existing.Name, name) && containsFold(existingLoc, locationOrLink)
	default:
		return existing.Name == name && existingLoc == locationOrLink
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(foldCaser.String(haystack), foldCaser.String(needle))
}
