package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ergochat/readline"

	"github.com/eraeco/rod"
	"github.com/eraeco/rod/graph"
	"github.com/eraeco/rod/store"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("get"),
	readline.PcItem("put"),
	readline.PcItem("set"),
	readline.PcItem("follow"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showNode(h *rod.Handle) {
	node := h.Node()
	jsn, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		return
	}
	fmt.Println(string(jsn))
}

var ErrBadScalar = errors.New("want a JSON scalar: null, bool, number or string")

// parseScalar reads a field value from the command line: a JSON
// scalar, with the usual wire conventions for binary and references.
func parseScalar(text string) (graph.Value, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "null":
		return graph.EmptyValue(), nil
	case text == "true":
		return graph.BoolValue(true), nil
	case text == "false":
		return graph.BoolValue(false), nil
	case strings.HasPrefix(text, "\""):
		var s string
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return graph.Value{}, err
		}
		return graph.StringValue(s), nil
	case strings.HasPrefix(text, "@"):
		id, err := graph.IDFromString(text[1:])
		if err != nil {
			return graph.Value{}, err
		}
		return graph.RefValue(id), nil
	default:
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return graph.IntValue(i), nil
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return graph.FloatValue(f), nil
		}
		return graph.Value{}, ErrBadScalar
	}
}

const usage = `commands:
  get <key>                  fetch (or materialize) the node at key
  put <key> <json-node>      merge a wire-json node in under key
  set <key> <field> <value>  set one field (value: scalar or @id)
  follow <key> <field>       follow a reference field
  exit`

func main() {
	dir := "./data"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	fs, err := store.NewFsStore(dir)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	eng, err := rod.Open(fs, rod.Options{})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer func() { _ = eng.Close() }()

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/rod.history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	ctx := context.Background()
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		cmd, rest, _ := strings.Cut(line, " ")
		if err := run(ctx, eng, cmd, rest); err != nil {
			if err == errQuit {
				break
			}
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
	}
}

var errQuit = errors.New("quit")

func run(ctx context.Context, eng *rod.Engine, cmd, rest string) error {
	switch cmd {
	case "":
		return nil
	case "exit", "quit":
		return errQuit
	case "help":
		fmt.Println(usage)
		return nil
	case "get":
		h, err := eng.Get(ctx, strings.TrimSpace(rest))
		if err != nil {
			return err
		}
		showNode(h)
		return nil
	case "put":
		key, jsn, ok := strings.Cut(strings.TrimSpace(rest), " ")
		if !ok {
			return errors.New("usage: put <key> <json-node>")
		}
		var node graph.Node
		if err := json.Unmarshal([]byte(jsn), &node); err != nil {
			return err
		}
		return eng.Put(ctx, key, node)
	case "set":
		args := strings.SplitN(strings.TrimSpace(rest), " ", 3)
		if len(args) != 3 {
			return errors.New("usage: set <key> <field> <value>")
		}
		v, err := parseScalar(args[2])
		if err != nil {
			return err
		}
		h, err := eng.Get(ctx, args[0])
		if err != nil {
			return err
		}
		h.Set(args[1], v)
		return h.Save(ctx, args[0])
	case "follow":
		key, field, ok := strings.Cut(strings.TrimSpace(rest), " ")
		if !ok {
			return errors.New("usage: follow <key> <field>")
		}
		h, err := eng.Get(ctx, key)
		if err != nil {
			return err
		}
		target, err := h.Follow(ctx, field)
		if err != nil {
			return err
		}
		showNode(target)
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}
