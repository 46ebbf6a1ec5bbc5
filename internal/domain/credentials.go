package domain

import (
	"math/rand"
)

// credentialAlphabet 凭证字符集：大小写字母加数字。
const credentialAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCredential 生成指定长度的随机凭证字符串。
// 每一位都在字符集上独立抽取（有放回），因此长度不受字符集大小限制。
func RandomCredential(length int) string {
	if length <= 0 {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = credentialAlphabet[rand.Intn(len(credentialAlphabet))]
	}
	return string(out)
}
