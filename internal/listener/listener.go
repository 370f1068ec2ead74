package listener

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

const Prompt = "flyto> "

var rl *readline.Instance
var mu sync.Mutex
var holdAsync bool
var heldLines []string

func Init(historyFile string) error {
	var err error
	rl, err = readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	return err
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("fly"),
	readline.PcItem("check"),
	readline.PcItem("status"),
	readline.PcItem("cancel"),
	readline.PcItem("targets"),
	readline.PcItem("vehicle"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if rl != nil {
		_ = rl.Close()
		rl = nil
	}
}

// BeginInteractive holds asynchronous output until EndInteractive so that a
// question is not interleaved with mission updates.
func BeginInteractive() {
	mu.Lock()
	holdAsync = true
	mu.Unlock()
}

func EndInteractive() {
	mu.Lock()
	defer mu.Unlock()
	holdAsync = false
	for _, s := range heldLines {
		printAboveUnlocked(s)
	}
	heldLines = nil
}

func printAboveUnlocked(s string) {
	if rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = rl.Write([]byte("\r\n" + s + "\r\n"))
	rl.Refresh()
}

func PrintAbove(s string) {
	mu.Lock()
	defer mu.Unlock()
	printAboveUnlocked(s)
}

// GetInput reads one line. The error is readline.ErrInterrupt on Ctrl-C and
// io.EOF on Ctrl-D.
func GetInput() (string, error) {
	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func getConfirmation(prompt string) (string, error) {
	mu.Lock()
	old := rl.Config.Prompt
	rl.SetPrompt(prompt)
	mu.Unlock()

	line, err := rl.Readline()

	mu.Lock()
	rl.SetPrompt(old)
	mu.Unlock()
	return strings.TrimSpace(strings.ToLower(line)), err
}

func AsyncPrintln(s string) {
	mu.Lock()
	defer mu.Unlock()
	if holdAsync {
		heldLines = append(heldLines, s)
		return
	}
	printAboveUnlocked(s)
}

// AskYesNo repeats the question until it gets an answer. Interrupts count
// as no.
func AskYesNo(question string) bool {
	BeginInteractive()
	defer EndInteractive()

	PrintAbove(question + " [y/n]")

	for {
		ans, err := getConfirmation("> ")
		if err != nil {
			return false
		}
		if yes, ok := parseYesNo(ans); ok {
			return yes
		}
		PrintAbove("Please answer y/n.")
	}
}

func parseYesNo(ans string) (bool, bool) {
	switch ans {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	}
	return false, false
}
