package credentials

import (
	"reflect"
	"testing"

	"github.com/mosaicnetworks/halo/src/crypto/keys"
)

func TestCredentialMarshal(t *testing.T) {
	keyring := keys.NewKeyring()
	_, _, genesis := NewTestSpace(t, keyring)

	for i, c := range genesis {
		data, err := c.Marshal()
		if err != nil {
			t.Fatalf("err: %v", err)
		}

		decoded, err := UnmarshalCredential(data)
		if err != nil {
			t.Fatalf("err: %v", err)
		}

		if !reflect.DeepEqual(c, decoded) {
			t.Fatalf("credential %d should be %v, not %v", i, c, decoded)
		}

		data2, err := decoded.Marshal()
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if string(data) != string(data2) {
			t.Fatalf("encoding of credential %d is not stable:\n%s\n%s", i, data, data2)
		}
	}
}

func TestCredentialAuthority(t *testing.T) {
	keyring := keys.NewKeyring()
	spaceKey, agent, genesis := NewTestSpace(t, keyring)

	direct, ok := genesis[0].Authority().(Direct)
	if !ok {
		t.Fatalf("genesis should have direct authority, not %T", genesis[0].Authority())
	}
	if direct.Key != spaceKey {
		t.Fatalf("direct key should be %s, not %s", spaceKey, direct.Key)
	}

	delegated, ok := genesis[3].Authority().(Delegated)
	if !ok {
		t.Fatalf("admitted feed should have delegated authority, not %T", genesis[3].Authority())
	}
	if delegated.SigningKey != agent.DeviceKey {
		t.Fatalf("signing key should be %s, not %s", agent.DeviceKey, delegated.SigningKey)
	}
	if delegated.Proof.ID != genesis[2].ID {
		t.Fatalf("delegation proof should be the device credential")
	}
}

func TestComputeID(t *testing.T) {
	keyring := keys.NewKeyring()
	_, agent, _ := NewTestSpace(t, keyring)

	c := agent.DeviceCredential
	if !c.HasID() {
		t.Fatalf("created credentials should have an id")
	}

	id, err := ComputeID(c)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if id != c.ID {
		t.Fatalf("id should be %s, not %s", c.ID, id)
	}

	// Clearing the id does not change the computed id.
	cp := *c
	cp.ID = keys.ZeroKey
	id2, err := ComputeID(&cp)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if id2 != c.ID {
		t.Fatalf("id should not depend on the id field")
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleWriter, RoleReader} {
		parsed, err := ParseRole(r.String())
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if parsed != r {
			t.Fatalf("role should be %v, not %v", r, parsed)
		}
	}

	if _, err := ParseRole("OWNER"); err == nil {
		t.Fatalf("ParseRole should fail on unknown roles")
	}
}
