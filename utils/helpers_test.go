package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateInviteCode()
		assert.Len(t, code, inviteCodeLength)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune(inviteCodeChars, ch),
				"unexpected character %q in code %s", ch, code)
		}
		seen[code] = true
	}
	// 36^6 codes; 100 draws colliding en masse would mean a broken source.
	assert.Greater(t, len(seen), 90)
}
