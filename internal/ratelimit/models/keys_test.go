package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "general:1.2.3.4", Key(KeyPrefixGeneral, "1.2.3.4"))
	assert.Equal(t, "login:ip:1.2.3.4", Key(KeyPrefixLoginIP, "1.2.3.4"))
}

func TestLoginUserIPSubject(t *testing.T) {
	assert.Equal(t, "alice_1.2.3.4", LoginUserIPSubject("alice", "1.2.3.4"))

	// The underscore join is ambiguous for usernames containing
	// underscores. The format predates this implementation and is pinned
	// here so a change shows up as a deliberate test update, not a silent
	// key migration.
	assert.Equal(t,
		LoginUserIPSubject("bob_1", "2.3.4.5"),
		LoginUserIPSubject("bob", "1_2.3.4.5"),
	)
}
