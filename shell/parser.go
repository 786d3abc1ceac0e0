package shell

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses raw arguments against a command's flag set.
type Parser struct {
	flagSet *FlagSet
}

func NewParser(flagSet *FlagSet) *Parser {
	if flagSet == nil {
		flagSet = NewFlagSet()
	}
	return &Parser{
		flagSet: flagSet,
	}
}

func (p *Parser) Parse(raw []string) (*Arguments, error) {
	args := &Arguments{
		Args:  make([]string, 0, len(raw)),
		Flags: make(map[string]any),
		Raw:   raw,
	}

	for flagName, flag := range p.flagSet.Flags {
		if flag.Default != nil {
			args.Flags[flagName] = flag.Default
		}
	}

	shortToName := make(map[string]string)
	for flagName, flag := range p.flagSet.Flags {
		if flag.Short != "" {
			shortToName[flag.Short] = flagName
		}
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			args.Args = append(args.Args, raw[i+1:]...)
			break
		}

		if strings.HasPrefix(arg, "--") {
			key, value, hasValue := parseLongFlag(arg)
			flag, exists := p.flagSet.Flags[key]
			if !exists {
				return nil, fmt.Errorf("%w: --%s", ErrUnknownFlag, key)
			}

			switch {
			case flag.Type == FlagBool && !hasValue:
				args.Flags[flag.Name] = true
				continue
			case !hasValue && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-"):
				value = raw[i+1]
				i++
			case !hasValue:
				return nil, fmt.Errorf("%w: --%s", ErrMissingValue, key)
			}

			coerced, err := coerce(value, flag.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: --%s", err, key)
			}
			args.Flags[flag.Name] = coerced
			continue
		}

		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			shortFlags := arg[1:]

			for j, shortChar := range shortFlags {
				shortStr := string(shortChar)
				flagName, exists := shortToName[shortStr]
				if !exists {
					return nil, fmt.Errorf("%w: -%s", ErrUnknownFlag, shortStr)
				}

				flag := p.flagSet.Flags[flagName]
				if flag.Type == FlagBool {
					args.Flags[flagName] = true
					continue
				}

				var value string
				if j+1 < len(shortFlags) {
					value = shortFlags[j+1:]
				} else if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
					value = raw[i+1]
					i++
				} else {
					return nil, fmt.Errorf("%w: -%s", ErrMissingValue, shortStr)
				}

				coerced, err := coerce(value, flag.Type)
				if err != nil {
					return nil, fmt.Errorf("%w: -%s", err, shortStr)
				}
				args.Flags[flagName] = coerced
				break
			}
			continue
		}

		args.Args = append(args.Args, arg)
	}

	for flagName, flag := range p.flagSet.Flags {
		if !flag.Required {
			continue
		}
		if _, ok := args.Flags[flagName]; !ok {
			if flag.Short != "" {
				return nil, fmt.Errorf("%w: -%s / --%s", ErrRequiredFlag, flag.Short, flag.Name)
			}
			return nil, fmt.Errorf("%w: --%s", ErrRequiredFlag, flag.Name)
		}
	}

	return args, nil
}

func parseLongFlag(arg string) (key, value string, hasValue bool) {
	arg = strings.TrimPrefix(arg, "--")
	if idx := strings.Index(arg, "="); idx >= 0 {
		return arg[:idx], arg[idx+1:], true
	}
	return arg, "", false
}

func coerce(value string, typ string) (any, error) {
	switch typ {
	case FlagInt:
		v, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return nil, ErrInvalidValue
		}
		return v, nil
	case FlagBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, ErrInvalidValue
		}
		return v, nil
	default:
		return value, nil
	}
}

// Split breaks a command line into pipeline stages of words. Single quotes
// keep their content literally, double quotes allow backslash escapes, and
// an unquoted '|' separates stages.
func Split(line string) ([][]string, error) {
	var (
		stages  [][]string
		words   []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	flushWord := func() {
		if inWord {
			words = append(words, word.String())
			word.Reset()
			inWord = false
		}
	}

	for _, r := range line {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == '|':
			flushWord()
			if len(words) == 0 {
				return nil, ErrEmptyPipelineStage
			}
			stages = append(stages, words)
			words = nil
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flushWord()
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}

	flushWord()
	if len(words) == 0 {
		if len(stages) > 0 {
			return nil, ErrEmptyPipelineStage
		}
		return nil, nil
	}
	return append(stages, words), nil
}
