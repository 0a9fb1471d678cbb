// Command kvinspect is a REPL for poking at a kvstore data directory
// directly, without going through the TCP wire protocol.
//
// Usage:
//
//	kvinspect [opts] <data-dir>
//
// Commands (in REPL):
//
//	put <key> <value>   Insert or overwrite an entry
//	get <key>           Retrieve an entry by key
//	del <key>           Delete an entry
//	len                 Count live entries across all shards
//	status              Show per-shard bookkeeping
//	flush               Synchronously persist every shard
//	help                Show this help
//	exit / quit / q     Exit
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/joshuapassos/shardkv/pkg/kvstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kvinspect: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("kvinspect", flag.ContinueOnError)

	shardSizeMB := fs.Int64("shard-size-mb", 64, "size in MiB of each shard's mapped region")
	numShards := fs.Int("shards", 16, "number of shards; must be a power of two")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kvinspect [options] <data-dir>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()

		return fmt.Errorf("missing data directory")
	}

	st, err := kvstore.Open(fs.Arg(0), uint64(*shardSizeMB)*1024*1024, *numShards)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	repl := &repl{store: st}

	return repl.run()
}

type repl struct {
	store *kvstore.Store
	line  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".kvinspect_history")
}

func (r *repl) run() error {
	r.line = liner.NewLiner()
	defer r.line.Close()

	r.line.SetCtrlCAborts(true)
	r.line.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}

	fmt.Println("kvinspect - kvstore REPL")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.line.Prompt("kvinspect> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.line.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "put":
			r.cmdPut(args)

		case "get":
			r.cmdGet(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "len", "count":
			r.cmdLen()

		case "status":
			r.cmdStatus()

		case "flush":
			r.cmdFlush()

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *repl) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *repl) completer(line string) []string {
	commands := []string{"put", "get", "del", "delete", "len", "count", "status", "flush", "help", "exit", "quit", "q"}

	var completions []string

	lower := strings.ToLower(line)

	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *repl) printHelp() {
	fmt.Println(`Commands:
  put <key> <value>   Insert or overwrite an entry
  get <key>           Retrieve an entry by key
  del <key>           Delete an entry
  len                 Count live entries across all shards
  status              Show per-shard bookkeeping
  flush               Synchronously persist every shard
  help                Show this help
  exit / quit / q     Exit`)
}

func (r *repl) cmdPut(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: put <key> <value>")

		return
	}

	if err := r.store.Put([]byte(args[0]), []byte(strings.Join(args[1:], " "))); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (r *repl) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: get <key>")

		return
	}

	value, ok, err := r.store.Get([]byte(args[0]))
	if err != nil {
		fmt.Printf("error: %v\n", err)

		return
	}

	if !ok {
		fmt.Println("(not found)")

		return
	}

	fmt.Printf("%s\n", value)
}

func (r *repl) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: del <key>")

		return
	}

	if err := r.store.Delete([]byte(args[0])); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (r *repl) cmdLen() {
	fmt.Println(r.store.Len())
}

func (r *repl) cmdStatus() {
	for _, s := range r.store.Stats() {
		fmt.Printf("shard=%d keys=%d live=%d offset_free=%d total_size=%d\n",
			s.Shard, s.Keys, s.LiveKeys, s.OffsetFree, s.TotalSize)
	}
}

func (r *repl) cmdFlush() {
	if err := r.store.Flush(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
