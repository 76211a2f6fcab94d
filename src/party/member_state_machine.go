package party

import (
	"fmt"

	"github.com/mosaicnetworks/halo/src/common"
	"github.com/mosaicnetworks/halo/src/credentials"
	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

// MemberInfo describes an identity admitted into a space.
type MemberInfo struct {
	Key        keys.PublicKey
	Credential *credentials.Credential
	Assertion  *credentials.PartyMember
}

// MemberStateMachine tracks the members of one space and their roles.
type MemberStateMachine struct {
	spaceKey keys.PublicKey
	members  map[keys.PublicKey]*MemberInfo
	order    []keys.PublicKey

	// OnMemberAdmitted is emitted after a member is inserted.
	OnMemberAdmitted common.Event[*MemberInfo]
}

// NewMemberStateMachine ...
func NewMemberStateMachine(spaceKey keys.PublicKey) *MemberStateMachine {
	return &MemberStateMachine{
		spaceKey: spaceKey,
		members:  make(map[keys.PublicKey]*MemberInfo),
	}
}

// Process admits the subject of c. c must carry a PartyMember assertion for
// this space and its subject must not be a member yet; the caller checks
// authorization beforehand. Violations panic.
func (m *MemberStateMachine) Process(c *credentials.Credential) *MemberInfo {
	assertion, ok := c.Assertion.(*credentials.PartyMember)
	if !ok {
		panic(fmt.Sprintf("member state machine: unexpected assertion %q", c.Type()))
	}
	if assertion.SpaceKey != m.spaceKey {
		panic(fmt.Sprintf("member state machine: credential for space %s processed by %s",
			assertion.SpaceKey, m.spaceKey))
	}
	if m.Has(c.Subject) {
		panic(fmt.Sprintf("member state machine: member already exists: %s", c.Subject))
	}

	info := &MemberInfo{
		Key:        c.Subject,
		Credential: c,
		Assertion:  assertion,
	}
	m.members[c.Subject] = info
	m.order = append(m.order, c.Subject)

	m.OnMemberAdmitted.Emit(info)

	return info
}

// Get ...
func (m *MemberStateMachine) Get(key keys.PublicKey) (*MemberInfo, bool) {
	info, ok := m.members[key]
	return info, ok
}

// Has ...
func (m *MemberStateMachine) Has(key keys.PublicKey) bool {
	_, ok := m.members[key]
	return ok
}

// GetRoles returns the roles held by key, or an empty slice if key is not a
// member.
func (m *MemberStateMachine) GetRoles(key keys.PublicKey) []credentials.Role {
	info, ok := m.members[key]
	if !ok {
		return []credentials.Role{}
	}
	return []credentials.Role{info.Assertion.Role}
}

// HasRole ...
func (m *MemberStateMachine) HasRole(key keys.PublicKey, role credentials.Role) bool {
	for _, r := range m.GetRoles(key) {
		if r == role {
			return true
		}
	}
	return false
}

// Members returns the members in admission order.
func (m *MemberStateMachine) Members() []*MemberInfo {
	res := make([]*MemberInfo, len(m.order))
	for i, k := range m.order {
		res[i] = m.members[k]
	}
	return res
}

// Len ...
func (m *MemberStateMachine) Len() int {
	return len(m.order)
}
