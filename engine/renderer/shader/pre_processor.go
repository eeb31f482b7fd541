// pre_processor.go implements the WGSL shader pre-processor. It resolves the
// compile-time configuration shared between host and GPU: #import lines pull
// registered struct sources into the shader, #ifdef/#else/#endif blocks select
// pipeline variants, and #{NAME} tokens are substituted with bound numeric
// defines. Every pipeline compiles its source through a pre-processor so the
// kernels can never disagree with the host-side constants.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// structRegistry maps import names to embedded WGSL struct sources.
	structRegistry map[string]string

	// defines maps token names to the numeric values substituted for #{NAME}.
	defines map[string]uint32

	// flags is the set of names considered defined by #ifdef.
	flags map[string]bool
}

// PreProcessor processes raw WGSL shader source code, resolving #import lines
// against the struct registry, evaluating #ifdef/#ifndef/#else/#endif blocks
// against the flag set, and substituting #{NAME} tokens with their bound
// numeric values.
type PreProcessor interface {
	// Process pre-processes raw WGSL shader source code. All directives are
	// consumed; the output is plain WGSL ready for module creation.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing directives
	//
	// Returns:
	//   - string: the processed WGSL shader source code
	//   - error: an error if a directive is malformed, an import is unknown,
	//     or a #{NAME} token has no bound value
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// PreProcessorOption configures a pre-processor at construction.
type PreProcessorOption func(*preProcessor)

// WithDefines binds numeric values for #{NAME} substitution. Later options
// override earlier bindings of the same name.
//
// Parameters:
//   - defines: token name to value
//
// Returns:
//   - PreProcessorOption: the option
func WithDefines(defines map[string]uint32) PreProcessorOption {
	return func(p *preProcessor) {
		for name, value := range defines {
			p.defines[name] = value
		}
	}
}

// WithFlags marks names as defined for #ifdef evaluation.
//
// Parameters:
//   - flags: the flag names to define
//
// Returns:
//   - PreProcessorOption: the option
func WithFlags(flags ...string) PreProcessorOption {
	return func(p *preProcessor) {
		for _, f := range flags {
			p.flags[f] = true
		}
	}
}

// WithStruct registers an additional struct source for #import resolution.
//
// Parameters:
//   - name: the import name
//   - source: the WGSL struct source injected for that name
//
// Returns:
//   - PreProcessorOption: the option
func WithStruct(name, source string) PreProcessorOption {
	return func(p *preProcessor) {
		p.structRegistry[name] = source
	}
}

// NewPreProcessor creates a pre-processor with an empty registry and the given
// options applied. Struct sources are registered by the packages that own the
// matching Go types, keeping the two layouts side by side.
//
// Parameters:
//   - opts: configuration options
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(opts ...PreProcessorOption) PreProcessor {
	p := &preProcessor{
		structRegistry: make(map[string]string),
		defines:        make(map[string]uint32),
		flags:          make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	// Conditional state is a stack so #ifdef blocks nest. An entry is true
	// when its branch is emitting.
	type condFrame struct {
		emitting bool
		taken    bool
	}
	var stack []condFrame

	emitting := func() bool {
		for _, f := range stack {
			if !f.emitting {
				return false
			}
		}
		return true
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "#ifdef ") || strings.HasPrefix(trimmed, "#ifndef "):
			negate := strings.HasPrefix(trimmed, "#ifndef ")
			name := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(trimmed, "#ifdef"), "#ifndef"))
			if name == "" {
				return "", fmt.Errorf("line %d: conditional directive missing a name", i+1)
			}
			on := p.flags[name] != negate
			stack = append(stack, condFrame{emitting: on, taken: on})
			continue
		case trimmed == "#else":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #else without matching #ifdef", i+1)
			}
			top := &stack[len(stack)-1]
			top.emitting = !top.taken
			continue
		case trimmed == "#endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif without matching #ifdef", i+1)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		if !emitting() {
			continue
		}

		if name, ok := strings.CutPrefix(trimmed, "#import "); ok {
			name = strings.TrimSpace(name)
			structSource, found := p.structRegistry[name]
			if !found {
				return "", fmt.Errorf("line %d: unknown #import %q", i+1, name)
			}
			expanded, err := p.substitute(structSource, i+1)
			if err != nil {
				return "", err
			}
			out = append(out, expanded)
			continue
		}

		expanded, err := p.substitute(line, i+1)
		if err != nil {
			return "", err
		}
		out = append(out, expanded)
	}

	if len(stack) != 0 {
		return "", fmt.Errorf("unterminated #ifdef block at end of source")
	}
	return strings.Join(out, "\n"), nil
}

// substitute replaces every #{NAME} token in a line with its bound value.
func (p *preProcessor) substitute(line string, lineNo int) (string, error) {
	if !strings.Contains(line, "#{") {
		return line, nil
	}
	var sb strings.Builder
	rest := line
	for {
		start := strings.Index(rest, "#{")
		if start < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			return "", fmt.Errorf("line %d: unterminated #{ token", lineNo)
		}
		name := rest[start+2 : start+end]
		value, ok := p.defines[name]
		if !ok {
			return "", fmt.Errorf("line %d: no value bound for #{%s}", lineNo, name)
		}
		sb.WriteString(rest[:start])
		sb.WriteString(strconv.FormatUint(uint64(value), 10))
		rest = rest[start+end+1:]
	}
}
