package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

// FlagGroup is a family of on/off flags sharing a prefix, like -W or -F.
type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// Parse accepts --name[=v], -name[=v] for multi-letter flags, and -x[v]
// for shorthands. A lone "-" is an argument.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
			continue
		}

		body := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		name, value, hasValue := strings.Cut(body, "=")
		flag, ok := f.flags[name]
		if !ok && !strings.HasPrefix(arg, "--") {
			if sh, found := f.shorthands[arg[1:2]]; found {
				flag, name = sh, arg[1:2]
				value, hasValue = arg[2:], len(arg) > 2
				ok = true
			}
		}
		if !ok {
			return fmt.Errorf("unknown flag: %s", arg)
		}

		if _, isBool := flag.Value.(*boolValue); isBool {
			if !hasValue || flag.Shorthand == name {
				value = ""
			}
			if err := flag.Value.Set(value); err != nil {
				return err
			}
			continue
		}
		if !hasValue {
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s", arg)
			}
			i++
			value = arguments[i]
		}
		if err := flag.Value.Set(value); err != nil {
			return err
		}
	}
	return nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintf(os.Stderr, "Usage: %s %s\nRun '%s --help' for all available options and flags.\n", a.Name, a.Synopsis, a.Name)
		return err
	}
	if help {
		a.WriteHelp(os.Stdout, terminalWidth())
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

// WriteHelp renders the full help page wrapped to width columns.
func (a *App) WriteHelp(w io.Writer, width int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n    %s %s\n", a.Name, a.Synopsis)
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n    Description\n")
		for _, line := range wrapText(a.Description, width-8) {
			fmt.Fprintf(&sb, "        %s\n", line)
		}
	}
	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n    Authors: %s", strings.Join(a.Authors, ", "))
		if a.Repository != "" {
			fmt.Fprintf(&sb, " <%s>", a.Repository)
		}
		sb.WriteString("\n")
	}

	var options []*Flag
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			grouped[e.Prefix+e.Name], grouped[e.Prefix+"no-"+e.Name] = true, true
		}
	}
	for _, flag := range a.FlagSet.flags {
		if !grouped[flag.Name] {
			options = append(options, flag)
		}
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })

	left := 0
	for _, flag := range options {
		left = max(left, len(flagString(flag)))
	}
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			left = max(left, len(e.Name))
		}
	}

	sb.WriteString("\n    Options\n")
	for _, flag := range options {
		usage := flag.Usage
		if _, isBool := flag.Value.(*boolValue); !isBool && flag.DefValue != "" && flag.DefValue != "[]" {
			usage += fmt.Sprintf(" |%s|", flag.DefValue)
		}
		writeEntry(&sb, width, left, flagString(flag), usage)
	}

	for _, g := range a.FlagSet.flagGroups {
		fmt.Fprintf(&sb, "\n    %s\n", g.Name)
		prefix := g.Flags[0].Prefix
		writeEntry(&sb, width, left, fmt.Sprintf("-%s<name>", prefix), "Enable a specific "+g.GroupType)
		writeEntry(&sb, width, left, fmt.Sprintf("-%sno-<name>", prefix), "Disable a specific "+g.GroupType)
		if g.AvailableFlagsHeader != "" {
			fmt.Fprintf(&sb, "    %s\n", g.AvailableFlagsHeader)
		}
		entries := append([]FlagGroupEntry(nil), g.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			state := "|-|"
			if e.Enabled != nil && *e.Enabled {
				state = "|x|"
			}
			writeEntry(&sb, width, left, e.Name, e.Usage+" "+state)
		}
	}
	fmt.Fprint(w, sb.String())
}

func flagString(flag *Flag) string {
	_, isBool := flag.Value.(*boolValue)
	arg := ""
	if !isBool && flag.ExpectedType != "" {
		arg = " <" + flag.ExpectedType + ">"
	}
	if flag.Shorthand != "" {
		return fmt.Sprintf("-%s%s, --%s%s", flag.Shorthand, arg, flag.Name, arg)
	}
	return "--" + flag.Name + arg
}

func writeEntry(sb *strings.Builder, width, left int, name, usage string) {
	const indent = "        "
	lines := wrapText(usage, width-len(indent)-left-1)
	if len(lines) == 0 {
		lines = []string{""}
	}
	fmt.Fprintf(sb, "%s%-*s %s\n", indent, left, name, lines[0])
	for _, l := range lines[1:] {
		fmt.Fprintf(sb, "%s%s %s\n", indent, strings.Repeat(" ", left), l)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth < 10 {
		maxWidth = 10
	}
	var lines []string
	var cur strings.Builder
	for _, word := range words {
		if cur.Len() > 0 && cur.Len()+1+len(word) > maxWidth {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
