package party

import (
	"fmt"

	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
	"github.com/sirupsen/logrus"
)

// PartyStateMachine validates credentials for one space and applies them to
// its member and feed state machines. It goes from uninitialized to active
// when the first valid PartyGenesis credential is applied.
type PartyStateMachine struct {
	spaceKey keys.PublicKey
	verifier credentials.Verifier

	genesis     *credentials.Credential
	credentials []*credentials.Credential
	applied     map[keys.PublicKey]struct{}

	members *MemberStateMachine
	feeds   *FeedStateMachine

	logger *logrus.Entry
}

// NewPartyStateMachine returns an empty state machine for spaceKey. A nil
// verifier selects credentials.DefaultVerifier.
func NewPartyStateMachine(spaceKey keys.PublicKey, verifier credentials.Verifier, logger *logrus.Entry) *PartyStateMachine {
	if verifier == nil {
		verifier = credentials.DefaultVerifier
	}

	return &PartyStateMachine{
		spaceKey: spaceKey,
		verifier: verifier,
		applied:  make(map[keys.PublicKey]struct{}),
		members:  NewMemberStateMachine(spaceKey),
		feeds:    NewFeedStateMachine(spaceKey),
		logger:   logger.WithField("space", spaceKey.String()),
	}
}

// Process applies c, recorded on fromFeed, and reports whether it was
// accepted. Rejections are logged and leave the state untouched.
func (p *PartyStateMachine) Process(c *credentials.Credential, fromFeed keys.PublicKey) bool {
	if c == nil {
		p.logger.WithField("feed", fromFeed.String()).Warn("Nil credential")
		return false
	}

	err := p.Apply(c, fromFeed)
	if err == nil {
		return true
	}

	fields := logrus.Fields{
		"credential": c.ID.String(),
		"type":       c.Type(),
		"issuer":     c.Issuer.String(),
		"subject":    c.Subject.String(),
		"feed":       fromFeed.String(),
	}

	switch {
	case IsStateErr(err, DuplicateCredential):
		p.logger.WithFields(fields).Debug("Credential already applied")
	case IsStateErr(err, VerificationFailed):
		p.logger.WithFields(fields).WithError(err).Warn("Invalid credential")
	default:
		p.logger.WithFields(fields).WithError(err).Warn("Credential rejected")
	}

	return false
}

// Apply is like Process but returns the reason for a rejection as a
// StateErr.
func (p *PartyStateMachine) Apply(c *credentials.Credential, fromFeed keys.PublicKey) error {
	if c == nil {
		return NewStateErr(VerificationFailed, keys.ZeroKey, "nil credential")
	}

	// The same credential may be written by more than one peer.
	if _, ok := p.applied[c.ID]; ok {
		return NewStateErr(DuplicateCredential, c.ID, "credential already applied")
	}

	res := p.verifier.Verify(c)
	if !res.OK() {
		return NewStateErr(VerificationFailed, c.ID, fmt.Sprintf("%v", res.Errors))
	}

	switch assertion := c.Assertion.(type) {
	case *credentials.PartyGenesis:
		if err := p.checkGenesis(c, assertion); err != nil {
			return err
		}
		p.genesis = c

	case *credentials.PartyMember:
		if err := p.checkMember(c, assertion); err != nil {
			return err
		}
		p.members.Process(c)

	case *credentials.AdmittedFeed:
		if err := p.checkFeed(c, assertion); err != nil {
			return err
		}
		p.feeds.Process(c, fromFeed)

	case *credentials.AuthorizedDevice:
		// Device authorizations are only consumed as delegation chains.

	default:
		panic(fmt.Sprintf("party state machine: unhandled assertion %T", c.Assertion))
	}

	p.credentials = append(p.credentials, c)
	p.applied[c.ID] = struct{}{}

	p.logger.WithFields(logrus.Fields{
		"credential": c.ID.String(),
		"type":       c.Type(),
		"subject":    c.Subject.String(),
	}).Debug("Credential applied")

	return nil
}

func (p *PartyStateMachine) checkGenesis(c *credentials.Credential, a *credentials.PartyGenesis) error {
	if p.genesis != nil {
		return NewStateErr(GenesisExists, c.ID, "space already has a genesis credential")
	}
	if c.Issuer != p.spaceKey || c.Subject != p.spaceKey {
		return NewStateErr(InvalidGenesis, c.ID, "genesis must be issued by and about the space key")
	}
	if a.SpaceKey != p.spaceKey {
		return NewStateErr(WrongSpace, c.ID, fmt.Sprintf("assertion is for space %s", a.SpaceKey))
	}
	return nil
}

func (p *PartyStateMachine) checkMember(c *credentials.Credential, a *credentials.PartyMember) error {
	if p.genesis == nil {
		return NewStateErr(NoGenesis, c.ID, "space has no genesis credential")
	}
	if a.SpaceKey != p.spaceKey {
		return NewStateErr(WrongSpace, c.ID, fmt.Sprintf("assertion is for space %s", a.SpaceKey))
	}
	if !p.canInviteMembers(c.Issuer) {
		return NewStateErr(Unauthorized, c.ID, fmt.Sprintf("issuer %s requires role %s", c.Issuer, credentials.RoleAdmin))
	}
	if p.members.Has(c.Subject) {
		return NewStateErr(DuplicateMember, c.ID, fmt.Sprintf("member %s already exists", c.Subject))
	}
	return nil
}

func (p *PartyStateMachine) checkFeed(c *credentials.Credential, a *credentials.AdmittedFeed) error {
	if p.genesis == nil {
		return NewStateErr(NoGenesis, c.ID, "space has no genesis credential")
	}
	if a.SpaceKey != p.spaceKey {
		return NewStateErr(WrongSpace, c.ID, fmt.Sprintf("assertion is for space %s", a.SpaceKey))
	}
	if !p.canAdmitFeeds(c.Issuer) {
		return NewStateErr(Unauthorized, c.ID, fmt.Sprintf("issuer %s requires role %s", c.Issuer, credentials.RoleWriter))
	}
	if p.feeds.Has(c.Subject) {
		return NewStateErr(DuplicateFeed, c.ID, fmt.Sprintf("feed %s already exists", c.Subject))
	}
	return nil
}

// The space key may always invite members. Otherwise ADMIN is required.
func (p *PartyStateMachine) canInviteMembers(issuer keys.PublicKey) bool {
	return issuer == p.spaceKey || p.members.HasRole(issuer, credentials.RoleAdmin)
}

// Admitting feeds requires WRITER. ADMIN alone is not enough.
func (p *PartyStateMachine) canAdmitFeeds(issuer keys.PublicKey) bool {
	return p.members.HasRole(issuer, credentials.RoleWriter)
}

// SpaceKey ...
func (p *PartyStateMachine) SpaceKey() keys.PublicKey {
	return p.spaceKey
}

// IsActive reports whether a genesis credential has been accepted.
func (p *PartyStateMachine) IsActive() bool {
	return p.genesis != nil
}

// GenesisCredential returns the accepted genesis credential, or nil.
func (p *PartyStateMachine) GenesisCredential() *credentials.Credential {
	return p.genesis
}

// Credentials returns every accepted credential in the order it was applied.
func (p *PartyStateMachine) Credentials() []*credentials.Credential {
	res := make([]*credentials.Credential, len(p.credentials))
	copy(res, p.credentials)
	return res
}

// Members returns the admitted members in admission order.
func (p *PartyStateMachine) Members() []*MemberInfo {
	return p.members.Members()
}

// Feeds returns the admitted feeds in admission order.
func (p *PartyStateMachine) Feeds() []*FeedInfo {
	return p.feeds.Feeds()
}

// MemberStateMachine exposes the member sub-machine, mainly to subscribe to
// OnMemberAdmitted.
func (p *PartyStateMachine) MemberStateMachine() *MemberStateMachine {
	return p.members
}

// FeedStateMachine exposes the feed sub-machine, mainly to subscribe to
// OnFeedAdmitted.
func (p *PartyStateMachine) FeedStateMachine() *FeedStateMachine {
	return p.feeds
}
