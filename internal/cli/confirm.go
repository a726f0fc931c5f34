package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/aidanlsb/linkq/internal/ui"
)

// canPrompt reports whether an interactive yes/no question can be asked.
func canPrompt() bool {
	if isJSONOutput() {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

// confirmOverwrite asks before replacing path. It answers no when there is
// no terminal to ask on.
func confirmOverwrite(path string) bool {
	if !canPrompt() {
		return false
	}
	fmt.Printf("%s already exists. Overwrite? %s ", path, ui.Hint("[y/N]"))
	response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
