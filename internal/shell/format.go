package shell

import (
	"fmt"
	"strings"

	"github.com/hbjs97/direnv-instant/internal/envdiff"
)

// Format은 diff를 d 셸에서 실행 가능한 대입/해제 문장으로 변환한다.
// 셸 식별자가 아닌 이름은 건너뛴다. 변경이 없으면 빈 문자열이다.
func Format(diff envdiff.Diff, d Dialect) (string, error) {
	s, err := syntaxFor(d)
	if err != nil {
		return "", fmt.Errorf("shell.Format: %w", err)
	}

	var b strings.Builder
	for _, c := range diff.Changes() {
		if !namePattern.MatchString(c.Name) {
			continue
		}
		if c.Unset {
			b.WriteString(s.unset(c.Name))
		} else {
			b.WriteString(s.export(c.Name, c.Value))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// FormatSessionVars는 비동기 로드의 결과 파일 경로와 세대를 내보내는 문장을 만든다.
func FormatSessionVars(d Dialect, path, generation string) (string, error) {
	s, err := syntaxFor(d)
	if err != nil {
		return "", fmt.Errorf("shell.FormatSessionVars: %w", err)
	}
	return s.export(EnvFileVar, path) + "\n" + s.export(GenerationVar, generation) + "\n", nil
}

// FormatClearSessionVars는 세션 변수를 해제하는 문장을 만든다.
// 결과를 한 번 소비한 뒤 반복 폴링이 아무것도 하지 않도록 한다.
func FormatClearSessionVars(d Dialect) (string, error) {
	s, err := syntaxFor(d)
	if err != nil {
		return "", fmt.Errorf("shell.FormatClearSessionVars: %w", err)
	}
	return s.unset(EnvFileVar) + "\n" + s.unset(GenerationVar) + "\n", nil
}
