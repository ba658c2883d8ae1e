package cli

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`(ghp_|gho_|github_pat_|ghs_|ghu_)\S+`)

// secretName은 값이 비밀일 가능성이 높은 환경변수 이름이다.
var secretName = regexp.MustCompile(`(?i)(TOKEN|SECRET|PASSW(OR)?D|CREDENTIAL|API_?KEY|PRIVATE_KEY|AUTH)`)

// MaskTokens는 GitHub 토큰 패턴을 마스킹한다.
func MaskTokens(s string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		for _, prefix := range []string{"github_pat_", "ghp_", "gho_", "ghs_", "ghu_"} {
			if strings.HasPrefix(match, prefix) {
				return prefix + "****"
			}
		}
		return match
	})
}

// MaskEnviron은 NAME=value 목록에서 비밀로 보이는 값을 가린다.
// 이름이 비밀처럼 보이면 값 전체를, 아니면 값 안의 토큰만 가린다.
func MaskEnviron(environ []string) []string {
	out := make([]string, len(environ))
	for i, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		switch {
		case !ok:
			out[i] = kv
		case secretName.MatchString(name) && value != "":
			out[i] = name + "=****"
		default:
			out[i] = name + "=" + MaskTokens(value)
		}
	}
	return out
}
