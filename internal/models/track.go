package models

import "encoding/json"

// Track says which table an application lives in.
type Track int

const (
	TrackPolicy Track = iota
	TrackClaim
)

// ParseTrack maps the applicationtype field onto a Track. Only "claim" selects
// the claim track; empty and legacy values stay on the policy track.
func ParseTrack(applicationType string) Track {
	if applicationType == "claim" {
		return TrackClaim
	}
	return TrackPolicy
}

func (t Track) String() string {
	if t == TrackClaim {
		return "claim"
	}
	return "policy"
}

func (t Track) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
