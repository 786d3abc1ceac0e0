package shell

// Flag types understood by the parser.
const (
	FlagString = "string"
	FlagBool   = "bool"
	FlagInt    = "int"
)

// Arguments contains the parsed arguments of a command.
type Arguments struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags, keyed by flag name
	Flags map[string]any

	// Raw unparsed arguments (for custom parsing)
	Raw []string
}

// FlagSet defines the expected flags for a command.
type FlagSet struct {
	Flags map[string]*Flag
}

// Flag represents a single command-line flag.
type Flag struct {
	Name        string `json:"name"`              // e.g., "recursive"
	Short       string `json:"short"`             // Single-char shorthand (e.g., "r")
	Type        string `json:"type"`              // "string", "bool" or "int"
	Default     any    `json:"default,omitempty"` // Default value
	Required    bool   `json:"required"`          // Must be provided
	Description string `json:"description"`       // Help text
}

// NewFlagSet indexes flags by their name.
func NewFlagSet(flags ...*Flag) *FlagSet {
	set := &FlagSet{
		Flags: make(map[string]*Flag, len(flags)),
	}
	for _, flag := range flags {
		set.Flags[flag.Name] = flag
	}
	return set
}

func (a *Arguments) Bool(name string) bool {
	value, _ := a.Flags[name].(bool)
	return value
}

func (a *Arguments) String(name string) string {
	value, _ := a.Flags[name].(string)
	return value
}

func (a *Arguments) Int(name string) int64 {
	value, _ := a.Flags[name].(int64)
	return value
}
