package config

import (
	"os"
	"strings"
)

// substituteEnvVars replaces ${NAME} with the value of the environment
// variable NAME. Bare $NAME is left alone so passwords may contain '$'.
// An unterminated reference is kept as written.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.IndexByte(content[start:], '}')
		if end == -1 {
			break
		}
		end += start
		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
