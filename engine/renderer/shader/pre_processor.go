// pre_processor.go implements the shader variant pre-processor. It resolves #ifdef / #ifndef /
// #else / #endif blocks against a define set and substitutes ${NAME} tokens with define values, so
// one embedded source expands into every variant. The same pass runs for WGSL, which has no
// preprocessor of its own, and for GLSL, where the defines are additionally injected as #define
// lines after the #version directive.
package shader

import (
	"fmt"
	"sort"
	"strings"
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct{}

// PreProcessor expands conditional shader source for a concrete define set.
type PreProcessor interface {
	// Process resolves all conditional blocks in source against defines and replaces every
	// ${NAME} token with the value of NAME. Lines starting with other '#' directives (such as
	// #version) pass through untouched.
	//
	// If the first directive of the source is #version, one "#define NAME VALUE" line per define
	// is inserted directly after it.
	//
	// Parameters:
	//   - source: the raw shader source
	//   - defines: define name to value; presence alone satisfies #ifdef
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error naming the offending line for unbalanced blocks or undefined tokens
	Process(source string, defines map[string]string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{}
}

// block tracks one open conditional.
type block struct {
	// parentActive is whether the enclosing scope emits lines.
	parentActive bool
	// taken is whether the #ifdef/#ifndef branch condition held.
	taken bool
	// inElse is set once #else has been seen.
	inElse bool
}

func (b block) active() bool {
	if !b.parentActive {
		return false
	}
	if b.inElse {
		return !b.taken
	}
	return b.taken
}

func (p *preProcessor) Process(source string, defines map[string]string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []block

	active := func() bool {
		if len(stack) == 0 {
			return true
		}
		return stack[len(stack)-1].active()
	}

	versionSeen := false
	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		directive, arg := splitDirective(trimmed)

		switch directive {
		case "#ifdef", "#ifndef":
			if arg == "" {
				return "", fmt.Errorf("line %d: %s requires a name", lineNo, directive)
			}
			_, defined := defines[arg]
			stack = append(stack, block{
				parentActive: active(),
				taken:        defined == (directive == "#ifdef"),
			})
		case "#else":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #else without #ifdef", lineNo)
			}
			top := &stack[len(stack)-1]
			if top.inElse {
				return "", fmt.Errorf("line %d: duplicate #else", lineNo)
			}
			top.inElse = true
		case "#endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif without #ifdef", lineNo)
			}
			stack = stack[:len(stack)-1]
		default:
			if !active() {
				continue
			}
			expanded, err := substitute(line, defines)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", lineNo, err)
			}
			out = append(out, expanded)

			if directive == "#version" && !versionSeen && len(stack) == 0 {
				versionSeen = true
				out = append(out, defineLines(defines)...)
			}
		}
	}

	if len(stack) != 0 {
		return "", fmt.Errorf("unterminated #ifdef block (%d open)", len(stack))
	}
	return strings.Join(out, "\n"), nil
}

// splitDirective returns the leading '#' word of a trimmed line and its first argument.
func splitDirective(trimmed string) (string, string) {
	if !strings.HasPrefix(trimmed, "#") {
		return "", ""
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[1]
}

// substitute replaces every ${NAME} token in line with its define value.
func substitute(line string, defines map[string]string) (string, error) {
	if !strings.Contains(line, "${") {
		return line, nil
	}

	var sb strings.Builder
	rest := line
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated token in %q", line)
		}
		name := rest[start+2 : start+end]
		value, ok := defines[name]
		if !ok {
			return "", fmt.Errorf("undefined token %q", name)
		}
		sb.WriteString(rest[:start])
		sb.WriteString(value)
		rest = rest[start+end+1:]
	}
}

// defineLines renders defines as sorted #define lines.
func defineLines(defines map[string]string) []string {
	names := make([]string, 0, len(defines))
	for name := range defines {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("#define %s %s", name, defines[name]))
	}
	return lines
}
