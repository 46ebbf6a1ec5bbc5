package broker

import (
	"fmt"
	"strings"
)

// Codec 负责构造与解析分层路由键。
//
// 具体键形如 <namespace>.<userID>.<token>，用于发布；
// 通配模式形如 <namespace>.<userID>.*，用于订阅该用户的全部通知。
// 路由键是通知投递唯一的授权边界：不同用户的模式永不匹配彼此的具体键。
type Codec struct {
	Namespace string
}

// ConcreteKey 构造发布用的具体路由键。token 由发布方自行选择，
// 对订阅方没有语义。
func (c Codec) ConcreteKey(userID, token string) string {
	return fmt.Sprintf("%s.%s.%s", c.Namespace, userID, token)
}

// WildcardPattern 构造订阅用的通配模式，匹配该用户任意 token 的具体键。
func (c Codec) WildcardPattern(userID string) string {
	return fmt.Sprintf("%s.%s.*", c.Namespace, userID)
}

// UserID 从具体路由键中解析用户 ID。键格式不符时返回 ok=false。
func (c Codec) UserID(key string) (string, bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != c.Namespace {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Match 按 AMQP topic 语义判断模式是否匹配路由键：
// '*' 匹配恰好一个词，'#' 匹配零个或多个词，词以 '.' 分隔。
func Match(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	if len(pattern) == 0 {
		return len(key) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(key); i++ {
			if matchWords(pattern[1:], key[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(key) > 0 && matchWords(pattern[1:], key[1:])
	default:
		return len(key) > 0 && pattern[0] == key[0] && matchWords(pattern[1:], key[1:])
	}
}
