package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/drpcorg/indra"
	"github.com/drpcorg/indra/catalog"
	"github.com/drpcorg/indra/schema"
	"github.com/drpcorg/indra/utils"
	"github.com/ergochat/readline"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("create"),
	readline.PcItem("drop"),
	readline.PcItem("show"),
	readline.PcItem("related"),
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

const usage = `create <id> <label> <prop>[,<prop>...]
drop <id>
show
related <changed-labels> <unchanged-labels> <changed-props>   (comma lists, - for none)
exit | quit`

// inertProxy exists so a catalog can be inspected without real engines.
type inertProxy struct {
	id  uint64
	ref schema.Ref
}

func (p inertProxy) Id() uint64              { return p.id }
func (p inertProxy) Schema() schema.Ref      { return p.ref }
func (p inertProxy) State() indra.IndexState { return indra.StateOnline }

func (p inertProxy) Apply(context.Context, indra.EntityUpdate) error { return nil }

func parseIds(arg string) ([]uint32, error) {
	if arg == "-" || arg == "" {
		return nil, nil
	}
	parts := strings.Split(arg, ",")
	ids := make([]uint32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad id %q", p)
		}
		ids = append(ids, uint32(n))
	}
	return ids, nil
}

func create(cat *catalog.Catalog, ref *indra.MapRef, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: create <id> <label> <prop>[,<prop>...]")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	label, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return err
	}
	props, err := parseIds(args[2])
	if err != nil {
		return err
	}
	sref, err := schema.NewRef(uint32(label), props...)
	if err != nil {
		return err
	}
	if err = cat.Put(id, sref); err != nil {
		return err
	}
	ref.Modify(func(m *indra.IndexMap) {
		m.Insert(id, inertProxy{id: id, ref: sref})
	})
	fmt.Printf("index %d %s\n", id, sref.String())
	return nil
}

func drop(cat *catalog.Catalog, ref *indra.MapRef, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: drop <id>")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	if err = cat.Delete(id); err != nil {
		return err
	}
	removed := false
	ref.Modify(func(m *indra.IndexMap) {
		_, removed = m.Remove(id)
	})
	if !removed {
		fmt.Printf("index %d was not registered\n", id)
	}
	return nil
}

func show(ref *indra.MapRef) {
	snap := ref.Current()
	ids := make([]uint64, 0, snap.Size())
	for id := range snap.Ids() {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fmt.Printf("snapshot v%d, %d indexes\n", snap.Version(), snap.Size())
	for _, id := range ids {
		proxy, _ := snap.ById(id)
		fmt.Printf("  %d\t%s\t%c\n", id, proxy.Schema().String(), proxy.State())
	}
}

func related(ref *indra.MapRef, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: related <changed-labels> <unchanged-labels> <changed-props>")
	}
	changed, err := parseIds(args[0])
	if err != nil {
		return err
	}
	unchanged, err := parseIds(args[1])
	if err != nil {
		return err
	}
	props, err := parseIds(args[2])
	if err != nil {
		return err
	}
	for _, sref := range ref.Current().RelatedIndexes(changed, unchanged, props).Refs() {
		fmt.Printf("  %s\n", sref.String())
	}
	return nil
}

func main() {
	if len(os.Args) != 2 {
		_, _ = fmt.Fprintln(os.Stderr, "Usage: indra <catalog-dir>")
		os.Exit(-2)
	}

	log := utils.NewDefaultLogger(slog.LevelWarn)
	cat, err := catalog.Open(os.Args[1], catalog.Options{Logger: log})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	initial, err := cat.Bootstrap(func(id uint64, ref schema.Ref) indra.IndexProxy {
		return inertProxy{id: id, ref: ref}
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	mref := indra.NewMapRef(initial, log)

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     "/tmp/indra_readline.tmp",
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

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		args := strings.Split(line, " ")
		cmd := args[0]
		args = args[1:]
		err = nil
		switch cmd {
		case "help":
			fmt.Println(usage)
		case "create":
			err = create(cat, mref, args)
		case "drop":
			err = drop(cat, mref, args)
		case "show", "list":
			show(mref)
		case "related":
			err = related(mref, args)
		case "exit", "quit":
			ex := 0
			if err = cat.Close(); err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err.Error())
				ex = -1
			}
			os.Exit(ex)
		default:
			_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
		}

		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error executing %s: %s\n", cmd, err.Error())
		}
	}
	_ = cat.Close()
}
