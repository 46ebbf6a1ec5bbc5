package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomCredentialLength(t *testing.T) {
	for _, n := range []int{1, 16, 64, 100} {
		cred := RandomCredential(n)
		assert.Len(t, cred, n)
	}
}

func TestRandomCredentialAlphabet(t *testing.T) {
	cred := RandomCredential(256)
	for _, r := range cred {
		assert.True(t, strings.ContainsRune(credentialAlphabet, r),
			"unexpected character %q", r)
	}
}

func TestRandomCredentialLongerThanAlphabet(t *testing.T) {
	// 有放回抽取：长度可以超过字符集大小
	cred := RandomCredential(len(credentialAlphabet) * 2)
	assert.Len(t, cred, len(credentialAlphabet)*2)
}

func TestRandomCredentialUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		cred := RandomCredential(16)
		_, dup := seen[cred]
		assert.False(t, dup, "duplicate credential %s", cred)
		seen[cred] = struct{}{}
	}
}

func TestRandomCredentialZeroLength(t *testing.T) {
	assert.Equal(t, "", RandomCredential(0))
	assert.Equal(t, "", RandomCredential(-1))
}

func TestEnsureCredentials(t *testing.T) {
	inbox := &Inbox{}
	inbox.EnsureCredentials(16, 16)
	assert.Len(t, inbox.Login, 16)
	assert.Len(t, inbox.Password, 16)
}

func TestEnsureCredentialsIdempotent(t *testing.T) {
	inbox := &Inbox{Login: "preset-login", Password: "preset-password"}
	inbox.EnsureCredentials(16, 16)
	assert.Equal(t, "preset-login", inbox.Login)
	assert.Equal(t, "preset-password", inbox.Password)

	// 只预置了一个字段时，另一个仍会生成
	inbox = &Inbox{Login: "preset-login"}
	inbox.EnsureCredentials(16, 16)
	assert.Equal(t, "preset-login", inbox.Login)
	assert.Len(t, inbox.Password, 16)
}

func TestInboxPageCount(t *testing.T) {
	cases := []struct {
		count    int
		pageSize int
		want     int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{125, 50, 3},
		{126, 50, 3},
		{151, 50, 4},
		{10, 0, 0},
	}
	for _, tc := range cases {
		inbox := &Inbox{MessageCount: tc.count}
		assert.Equal(t, tc.want, inbox.PageCount(tc.pageSize),
			"count=%d pageSize=%d", tc.count, tc.pageSize)
	}
}
