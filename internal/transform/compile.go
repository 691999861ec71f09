package transform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// StyleCompiler turns style sources into plain CSS. Plain .css files are
// validated in-process; extensions listed for the external compiler are piped
// through it (source on stdin, CSS on stdout).
type StyleCompiler struct {
	command    []string
	extensions []string
}

// NewStyleCompiler returns a compiler using command for the given extensions.
func NewStyleCompiler(command, extensions []string) *StyleCompiler {
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return &StyleCompiler{command: command, extensions: exts}
}

// Extensions lists every source extension the compiler accepts.
func (c *StyleCompiler) Extensions() []string {
	return append([]string{".css"}, c.extensions...)
}

// OutputPath maps a source path to the compiled stylesheet path.
func OutputPath(rel string) string {
	ext := path.Ext(rel)
	if strings.EqualFold(ext, ".css") {
		return rel
	}
	return strings.TrimSuffix(rel, ext) + ".css"
}

// Compile returns the CSS for rel, a slash path below root. The external
// compiler runs in the source file's directory so relative imports resolve
// next to it; an empty root keeps the current directory. Malformed input and
// compiler failures are TransformErrors.
func (c *StyleCompiler) Compile(ctx context.Context, root, rel string, src []byte) ([]byte, error) {
	ext := strings.ToLower(path.Ext(rel))
	switch {
	case ext == ".css":
	case slices.Contains(c.extensions, ext):
		out, err := c.external(ctx, root, rel, src)
		if err != nil {
			return nil, err
		}
		src = out
	default:
		return nil, errors.TransformError("unsupported style source").WithPath(rel).Build()
	}
	if err := ValidateCSS(src); err != nil {
		return nil, errors.TransformError("malformed stylesheet").WithCause(err).WithPath(rel).Build()
	}
	return src, nil
}

func (c *StyleCompiler) external(ctx context.Context, root, rel string, src []byte) ([]byte, error) {
	if len(c.command) == 0 {
		return nil, errors.TransformError("no style compiler configured").
			WithPath(rel).
			WithContext("hint", "set styles.compiler").
			UserAction().
			Build()
	}
	// #nosec G204 -- command comes from the operator's configuration file
	cmd := exec.CommandContext(ctx, c.command[0], c.command[1:]...)
	if root != "" {
		cmd.Dir = filepath.Join(root, filepath.FromSlash(path.Dir(rel)))
	}
	cmd.Stdin = bytes.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.TransformError("style compiler failed").
			WithCause(err).
			WithPath(rel).
			WithContext("stderr", strings.TrimSpace(stderr.String())).
			Build()
	}
	return stdout.Bytes(), nil
}

// ValidateCSS checks that comments and strings are terminated and that
// blocks, parentheses and brackets are balanced.
func ValidateCSS(src []byte) error {
	var stack []byte
	line := 1
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '\n':
			line++
		case '/':
			if i+1 < len(src) && src[i+1] == '*' {
				end := bytes.Index(src[i+2:], []byte("*/"))
				if end < 0 {
					return fmt.Errorf("line %d: unterminated comment", line)
				}
				line += bytes.Count(src[i:i+2+end], []byte("\n"))
				i += end + 3
			}
		case '"', '\'':
			j := i + 1
			for ; j < len(src) && src[j] != c; j++ {
				if src[j] == '\\' {
					j++
					continue
				}
				if src[j] == '\n' {
					return fmt.Errorf("line %d: unterminated string", line)
				}
			}
			if j >= len(src) {
				return fmt.Errorf("line %d: unterminated string", line)
			}
			i = j
		case '{', '(', '[':
			stack = append(stack, c)
		case '}', ')', ']':
			open := map[byte]byte{'}': '{', ')': '(', ']': '['}[c]
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return fmt.Errorf("line %d: unexpected %q", line, c)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q at end of input", stack[len(stack)-1])
	}
	return nil
}
