package service

import (
	"github.com/mosaicnetworks/halo/src/party"
)

// Member is the JSON representation of a space member.
type Member struct {
	Key        string `json:"key"`
	Role       string `json:"role"`
	Issuer     string `json:"issuer"`
	Credential string `json:"credential"`
}

// NewMember ...
func NewMember(m *party.MemberInfo) Member {
	return Member{
		Key:        m.Key.Hex(),
		Role:       m.Assertion.Role.String(),
		Issuer:     m.Credential.Issuer.Hex(),
		Credential: m.Credential.ID.Hex(),
	}
}

// Feed is the JSON representation of an admitted feed.
type Feed struct {
	Key         string `json:"key"`
	Identity    string `json:"identity"`
	Device      string `json:"device"`
	Designation string `json:"designation"`
	Parent      string `json:"parent"`
	Genesis     bool   `json:"genesis"`
	Credential  string `json:"credential"`
}

// NewFeed ...
func NewFeed(f *party.FeedInfo) Feed {
	return Feed{
		Key:         f.Key.Hex(),
		Identity:    f.Assertion.IdentityKey.Hex(),
		Device:      f.Assertion.DeviceKey.Hex(),
		Designation: f.Assertion.Designation.String(),
		Parent:      f.Parent.Hex(),
		Genesis:     f.IsGenesis(),
		Credential:  f.Credential.ID.Hex(),
	}
}
