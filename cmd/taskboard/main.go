package main

import (
	"os"
	"strings"

	"taskboard/internal/cli"
)

// Persistent flags that take a separate value token.
var valueFlags = map[string]bool{
	"--dir":       true,
	"--format":    true,
	"--log-level": true,
}

func isTaskID(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "t-") && len(s) > len("t-")
}

// rewriteTaskShortcut turns `taskboard [flags] <task-id>` into
// `taskboard [flags] tasks show <task-id>`. Cobra would otherwise treat the id
// as an unknown subcommand.
func rewriteTaskShortcut(argv []string) []string {
	at := -1
scan:
	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) {
				at = i + 1
			}
		case strings.HasPrefix(a, "-"):
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		default:
			at = i
		}
		break scan
	}
	if at < 0 || !isTaskID(argv[at]) {
		return argv
	}
	out := make([]string, 0, len(argv)+2)
	out = append(out, argv[:at]...)
	out = append(out, "tasks", "show")
	return append(out, argv[at:]...)
}

func main() {
	os.Args = rewriteTaskShortcut(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
