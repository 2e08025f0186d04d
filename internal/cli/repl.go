package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/rollcache/internal/config"
	"github.com/calvinalkan/rollcache/internal/store"
	"github.com/calvinalkan/rollcache/pkg/rollcache"
)

const historyFileName = ".rollc_history"

var (
	errUsage       = errors.New("usage")
	errNoSuchField = errors.New("field must be code, name or price")
	errNoSuchKey   = errors.New("no pending change matches key")
	errAmbiguous   = errors.New("key prefix matches more than one change")
)

var replCommands = []string{
	"get", "ls", "add", "set", "rm", "edit", "drop",
	"pending", "view", "window", "flush", "refresh", "stats",
	"help", "exit", "quit", "q",
}

// lineReader yields one input line per Prompt call and io.EOF at the end.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// plainReader reads lines from a non-interactive input.
type plainReader struct {
	scanner *bufio.Scanner
}

func (r *plainReader) Prompt(string) (string, error) {
	if !r.scanner.Scan() {
		err := r.scanner.Err()
		if err != nil {
			return "", err
		}

		return "", io.EOF
	}

	return r.scanner.Text(), nil
}

func (*plainReader) AppendHistory(string) {}

func (*plainReader) Close() error { return nil }

// linerReader is a line editor on the controlling terminal with history.
type linerReader struct {
	state   *liner.State
	history string
}

func newLinerReader(history string) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(completeCommand)

	if history != "" {
		f, err := os.Open(history)
		if err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}

	return &linerReader{state: state, history: history}
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}

	return line, err
}

func (r *linerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

func (r *linerReader) Close() error {
	if r.history != "" {
		f, err := os.Create(r.history)
		if err == nil {
			_, _ = r.state.WriteHistory(f)
			_ = f.Close()
		}
	}

	return r.state.Close()
}

func completeCommand(line string) []string {
	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range replCommands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func newLineReader(in io.Reader, env map[string]string) lineReader {
	if f, ok := in.(*os.File); ok && f == os.Stdin && isTerminal(f.Fd()) {
		history := ""
		if home := env["HOME"]; home != "" {
			history = filepath.Join(home, historyFileName)
		}

		return newLinerReader(history)
	}

	if in == nil {
		in = strings.NewReader("")
	}

	return &plainReader{scanner: bufio.NewScanner(in)}
}

// ReplCmd returns the repl command.
func ReplCmd(cfg config.Config, env map[string]string, in io.Reader, logOut io.Writer) *Command {
	return &Command{
		Usage: "repl",
		Short: "Browse and edit interactively",
		Long: "Start an interactive session over one cache. Edits stay pending until flush, " +
			"so the session shows the merged view of window rows and pending additions.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return withSession(ctx, cfg, logOut, func(s *session) error {
				r := &repl{s: s, o: o, in: newLineReader(in, env)}

				return errors.Join(r.run(ctx), r.in.Close())
			})
		},
	}
}

type repl struct {
	s  *session
	o  *IO
	in lineReader
}

func (r *repl) run(ctx context.Context) error {
	outer := r.s.cache.OuterLimits()
	r.o.Printf("rollc repl (%d rows, page_size=%d, max_window=%d)\n",
		outer.Length, r.s.cache.PageSize(), r.s.cache.MaxWindow())
	r.o.Println("Type 'help' for available commands.")

	for {
		err := ctx.Err()
		if err != nil {
			return err
		}

		line, err := r.in.Prompt("rollc> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r.in.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		if cmd == "exit" || cmd == "quit" || cmd == "q" {
			break
		}

		err = r.dispatch(ctx, cmd, parts[1:])
		if err != nil {
			r.o.Error(err)
		}
	}

	r.o.WarnPending(r.s.cache.PendingLen())

	return nil
}

func (r *repl) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		r.printHelp()

		return nil
	case "get":
		return r.cmdGet(ctx, args)
	case "ls":
		return r.cmdLs(ctx, args)
	case "add":
		return r.cmdAdd(args)
	case "set":
		return r.cmdSet(ctx, args)
	case "rm":
		return r.cmdRm(ctx, args)
	case "edit":
		return r.cmdEdit(args)
	case "drop":
		return r.cmdDrop(args)
	case "pending":
		r.cmdPending()

		return nil
	case "view":
		r.cmdView()

		return nil
	case "window":
		r.cmdWindow()

		return nil
	case "flush":
		n := r.s.cache.PendingLen()

		err := r.s.flush(ctx)
		if err != nil {
			return err
		}

		r.o.Printf("flushed %d changes (%d rows)\n", n, r.s.cache.OuterLimits().Length)

		return nil
	case "refresh":
		err := r.s.cache.Refresh(ctx)
		if err != nil {
			return err
		}

		r.cmdWindow()

		return nil
	case "stats":
		return writeMetrics(r.o.Out(), "products", r.s.cache)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

func (r *repl) printHelp() {
	r.o.Println(`Commands:
  get <row>...                  Print rows, fetching pages as needed
  ls [from] [limit]             List rows in order
  add <code> <name...> <price>  Stage a new product
  set <row> <field> <value...>  Stage a change to a row (field: code, name, price)
  rm <row>                      Stage deletion of a row
  edit <key> <field> <value...> Change a pending change by ledger key
  drop <key>                    Discard a pending change
  pending                       List pending changes in the order made
  view                          List window rows followed by pending additions
  window                        Show window, table limits and view size
  flush                         Write pending changes and reload
  refresh                       Reload the window from the database
  stats                         Print cache metrics
  help                          Show this help
  exit / quit / q               Leave

Keys may be given as any unique prefix.`)
}

func (r *repl) cmdGet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: get <row>...", errUsage)
	}

	for _, arg := range args {
		row, err := parseRow(arg)
		if err != nil {
			return err
		}

		p, err := r.s.cache.Get(ctx, row)
		if err != nil {
			return err
		}

		r.o.Println(formatRow(row, p))
	}

	return nil
}

func (r *repl) cmdLs(ctx context.Context, args []string) error {
	from, limit := 0, defaultLsLimit

	if len(args) > 0 {
		n, err := parseRow(args[0])
		if err != nil {
			return err
		}

		from = n
	}

	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: limit must be a positive integer", errUsage)
		}

		limit = n
	}

	end := min(r.s.cache.OuterLimits().Last(), from+limit-1)

	for row := from; row <= end; row++ {
		p, err := r.s.cache.Get(ctx, row)
		if err != nil {
			return err
		}

		r.o.Println(formatRow(row, p))
	}

	return nil
}

func (r *repl) cmdAdd(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: add <code> <name...> <price>", errUsage)
	}

	cents, err := parsePrice(args[len(args)-1])
	if err != nil {
		return err
	}

	key := r.s.cache.Add(store.Product{
		Code:       args[0],
		Name:       strings.Join(args[1:len(args)-1], " "),
		PriceCents: cents,
	})

	r.o.Println("pending", key)

	return nil
}

func (r *repl) cmdSet(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: set <row> <field> <value...>", errUsage)
	}

	row, err := parseRow(args[0])
	if err != nil {
		return err
	}

	current, err := r.current(ctx, row)
	if err != nil {
		return err
	}

	updated, err := setField(current, args[1], strings.Join(args[2:], " "))
	if err != nil {
		return err
	}

	key, err := r.s.cache.UpdateAt(ctx, row, updated)
	if err != nil {
		return err
	}

	if _, ok := r.s.cache.Pending(key); !ok {
		r.o.Println("row", row, "unchanged")

		return nil
	}

	r.o.Println("pending", key)

	return nil
}

// current returns the row as the session sees it: a pending update's new
// value if there is one, else the database row.
func (r *repl) current(ctx context.Context, row int) (store.Product, error) {
	for _, change := range r.s.cache.Changes() {
		if change.Row == row && change.HasNew {
			return change.New, nil
		}
	}

	return r.s.cache.Get(ctx, row)
}

func (r *repl) cmdRm(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rm <row>", errUsage)
	}

	row, err := parseRow(args[0])
	if err != nil {
		return err
	}

	key, err := r.s.cache.DeleteAt(ctx, row)
	if err != nil {
		return err
	}

	r.o.Println("pending", key)

	return nil
}

func (r *repl) cmdEdit(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: edit <key> <field> <value...>", errUsage)
	}

	change, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	base := change.New
	if !change.HasNew {
		base = change.Old
	}

	updated, err := setField(base, args[1], strings.Join(args[2:], " "))
	if err != nil {
		return err
	}

	err = r.s.cache.Set(change.Key, updated)
	if err != nil {
		return err
	}

	if _, ok := r.s.cache.Pending(change.Key); !ok {
		r.o.Println("dropped", change.Key, "(no longer a change)")

		return nil
	}

	r.o.Println("pending", change.Key)

	return nil
}

func (r *repl) cmdDrop(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: drop <key>", errUsage)
	}

	change, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	if change.Kind == rollcache.ChangeInsert {
		err = r.s.cache.Remove(change.Key)
	} else {
		err = r.s.cache.Set(change.Key, change.Old)
	}

	if err != nil {
		return err
	}

	r.o.Println("dropped", change.Key)

	return nil
}

// lookup finds the pending change whose key starts with prefix.
func (r *repl) lookup(prefix string) (rollcache.Change[store.Product], error) {
	var (
		found rollcache.Change[store.Product]
		n     int
	)

	for _, change := range r.s.cache.Changes() {
		if strings.HasPrefix(change.Key.String(), prefix) {
			found = change
			n++
		}
	}

	switch n {
	case 0:
		return found, fmt.Errorf("%w: %s", errNoSuchKey, prefix)
	case 1:
		return found, nil
	default:
		return found, fmt.Errorf("%w: %s", errAmbiguous, prefix)
	}
}

func (r *repl) cmdPending() {
	changes := r.s.cache.Changes()
	if len(changes) == 0 {
		r.o.Println("no pending changes")

		return
	}

	for _, change := range changes {
		row := "-"
		if change.Row >= 0 {
			row = strconv.Itoa(change.Row)
		}

		value := change.New
		if !change.HasNew {
			value = change.Old
		}

		r.o.Printf("%s\t%s\t%s\t%s\t%s\t%s\n",
			change.Key, change.Kind, row, value.Code, value.Name, formatPrice(value.PriceCents))
	}
}

func (r *repl) cmdView() {
	for pos, p := range r.s.cache.All() {
		if pos.From == rollcache.FromLedger {
			r.o.Printf("+\t%s\t%s\t%s\t%s\n", pos.Key, p.Code, p.Name, formatPrice(p.PriceCents))

			continue
		}

		r.o.Println(formatRow(pos.Index, p))
	}
}

func (r *repl) cmdWindow() {
	c := r.s.cache
	r.o.Printf("window=%s outer=%s size=%d pending=%d\n", c.Window(), c.OuterLimits(), c.Size(), c.PendingLen())
}

// setField returns p with the named field replaced by value.
func setField(p store.Product, field, value string) (store.Product, error) {
	switch strings.ToLower(field) {
	case "code":
		p.Code = value
	case "name":
		p.Name = value
	case "price":
		cents, err := parsePrice(value)
		if err != nil {
			return store.Product{}, err
		}

		p.PriceCents = cents
	default:
		return store.Product{}, fmt.Errorf("%w, got %q", errNoSuchField, field)
	}

	return p, nil
}
