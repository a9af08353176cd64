package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/gmini/pkg/cli"
)

type Feature int

const (
	FeatForLoops Feature = iota
	FeatByRef
	FeatContinue
	FeatCComments
	FeatCount
)

type Warning int

const (
	WarnUnreachableCode Warning = iota
	WarnShadow
	WarnEmptyBody
	WarnExtra
	WarnPedantic
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Target describes the machine the assembly is emitted for.
type Target struct {
	Name           string
	WordSize       int
	Suffix         string   // instruction width suffix, "l" or "q"
	Regs           []string // allocatable registers, Regs[0] carries results
	CallerSaved    []string // registers a callee may clobber
	CalleeSaved    []string // registers saved by every prologue
	SP, BP         string
	SignExtend     string // widens the accumulator into the dividend pair
	StackAlignment int
	CCFlags        []string
}

var targets = map[string]Target{
	"i386": {
		Name: "i386", WordSize: 4, Suffix: "l",
		Regs:           []string{"%eax", "%ebx", "%ecx", "%edx", "%esi", "%edi"},
		CallerSaved:    []string{"%eax", "%ecx", "%edx"},
		CalleeSaved:    []string{"%ebx", "%esi", "%edi"},
		SP:             "%esp",
		BP:             "%ebp",
		SignExtend:     "cltd",
		StackAlignment: 16,
		CCFlags:        []string{"-m32"},
	},
	"amd64": {
		Name: "amd64", WordSize: 8, Suffix: "q",
		Regs:           []string{"%rax", "%rbx", "%rcx", "%rdx", "%rsi", "%rdi"},
		CallerSaved:    []string{"%rax", "%rcx", "%rdx", "%rsi", "%rdi"},
		CalleeSaved:    []string{"%rbx", "%rsi", "%rdi"},
		SP:             "%rsp",
		BP:             "%rbp",
		SignExtend:     "cqto",
		StackAlignment: 16,
	},
}

// TargetNames lists the accepted -t values.
func TargetNames() []string { return []string{"i386", "amd64"} }

type Config struct {
	Features     map[Feature]Info
	Warnings     map[Warning]Info
	FeatureMap   map[string]Feature
	WarningMap   map[string]Warning
	GOOS         string
	GOARCH       string
	Target       Target
	SymbolPrefix string
	WordSize     int

	warnDefaults []bool
	featDefaults []bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatForLoops:  {"for-loops", true, "Allow C-style `for (init; test; step)` loops."},
		FeatByRef:     {"by-ref", true, "Allow `&` by-reference parameters."},
		FeatContinue:  {"continue", true, "Allow the `continue` statement."},
		FeatCComments: {"c-comments", true, "Recognize C-style '//' line comments."},
	}

	warnings := map[Warning]Info{
		WarnUnreachableCode: {"unreachable-code", true, "Warn about code that will never be executed."},
		WarnShadow:          {"shadow", false, "Warn when a declaration hides a parameter or outer local."},
		WarnEmptyBody:       {"empty-body", true, "Warn about loops whose body is an empty statement."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings."},
		WarnPedantic:        {"pedantic", false, "Issue all warnings, including stylistic ones."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	cfg.Target = targets["i386"]
	cfg.WordSize = cfg.Target.WordSize
	return cfg
}

// SetTarget configures the compiler for an operating system and machine.
// An empty target selects i386.
func (c *Config) SetTarget(goos, goarch, target string) error {
	c.GOOS, c.GOARCH = goos, goarch
	if target == "" {
		target = "i386"
	}
	t, ok := targets[target]
	if !ok {
		return fmt.Errorf("unsupported target '%s'. Supported: %s", target, strings.Join(TargetNames(), ", "))
	}
	c.Target = t
	c.WordSize = t.WordSize
	c.SymbolPrefix = ""
	if goos == "darwin" {
		c.SymbolPrefix = "_"
	}
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool {
	if c.Warnings[wt].Enabled {
		return true
	}
	return c.Warnings[WarnPedantic].Enabled && wt != WarnPedantic
}

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		}
	} else if f, ok := c.FeatureMap[name]; ok {
		c.SetFeature(f, enable)
	}
}

// ProcessDirectiveFlags applies a whitespace separated list such as
// "-Wall -Fno-continue".
func (c *Config) ProcessDirectiveFlags(flagStr string) {
	fields := strings.Fields(flagStr)
	for _, flag := range fields {
		if flag == "-Wall" || flag == "-Wno-all" {
			c.applyFlag(flag)
		}
	}
	for _, flag := range fields {
		if flag != "-Wall" && flag != "-Wno-all" {
			c.applyFlag(flag)
		}
	}
}

// SetupFlagGroups registers -W and -F flag groups on fs. The returned
// entries are indexed by Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warnings, features []cli.FlagGroupEntry) {
	warnings = make([]cli.FlagGroupEntry, WarnCount)
	c.warnDefaults = make([]bool, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		c.warnDefaults[i] = info.Enabled
		enabled, disabled := info.Enabled, false
		warnings[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	features = make([]cli.FlagGroupEntry, FeatCount)
	c.featDefaults = make([]bool, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		c.featDefaults[i] = info.Enabled
		enabled, disabled := info.Enabled, false
		features[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warning Flags:", warnings)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature flag", "Available feature flags:", features)
	return warnings, features
}

// ApplyFlagGroups copies the group entries the user actually toggled back
// into the configuration. A -Wno-/-Fno- flag wins over its positive form.
func (c *Config) ApplyFlagGroups(warnings, features []cli.FlagGroupEntry) {
	for i, entry := range warnings {
		if entry.Enabled != nil && i < len(c.warnDefaults) && *entry.Enabled != c.warnDefaults[i] {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range features {
		if entry.Enabled != nil && i < len(c.featDefaults) && *entry.Enabled != c.featDefaults[i] {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
