// Package oconfig parses collectd.conf into api.ConfigItem trees.
//
// The daemon parses its configuration itself and hands plugins the result;
// this parser exists so plugins can be configured from the same text outside
// the daemon, in tests and in the development harness. It follows the grammar
// of collectd's liboconfig:
//
//	# comment
//	LoadPlugin myplugin
//	<Plugin myplugin>
//	    Host "localhost"
//	    Port 2003
//	    Verbose true
//	    <Address "primary">
//	        Weight 1.5
//	    </Address>
//	</Plugin>
//
// Values are double-quoted strings (with \" and \\ escapes), numbers
// (decimal, exponent or 0x hex), the booleans true/false/yes/no/on/off, and
// bare words, which are read as strings. A backslash at the end of a line
// continues the statement on the next line.
package oconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"collectd.szuro.net/pkg/api"
)

// ParseError reports a syntax error and the line it occurred on.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

var numberRe = regexp.MustCompile(`^[+-]?(0[xX][0-9a-fA-F]+|[0-9]+(\.[0-9]*)?([eE][+-]?[0-9]+)?|\.[0-9]+([eE][+-]?[0-9]+)?)$`)

type frame struct {
	item api.ConfigItem
	line int
}

// Parse reads a whole configuration.
func Parse(r io.Reader) ([]api.ConfigItem, error) {
	stack := []frame{{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	startLine := 0
	var logical strings.Builder
	for scanner.Scan() {
		lineNo++
		text := strings.TrimRight(scanner.Text(), " \t\r")
		if logical.Len() == 0 {
			startLine = lineNo
		}
		if strings.HasSuffix(text, `\`) && !strings.HasSuffix(text, `\\`) {
			logical.WriteString(strings.TrimSuffix(text, `\`))
			logical.WriteByte(' ')
			continue
		}
		logical.WriteString(text)
		line := logical.String()
		logical.Reset()

		var err error
		stack, err = parseLine(stack, line, startLine)
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if logical.Len() > 0 {
		var err error
		if stack, err = parseLine(stack, logical.String(), startLine); err != nil {
			return nil, err
		}
	}
	if len(stack) > 1 {
		open := stack[len(stack)-1]
		return nil, &ParseError{Line: open.line, Msg: fmt.Sprintf("block <%s> is never closed", open.item.Key)}
	}
	return stack[0].item.Children, nil
}

// ParseString parses configuration text.
func ParseString(s string) ([]api.ConfigItem, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile parses the configuration file at path.
func ParseFile(path string) ([]api.ConfigItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	items, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

func parseLine(stack []frame, line string, lineNo int) ([]frame, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return stack, &ParseError{Line: lineNo, Msg: err.Error()}
	}
	if len(tokens) == 0 {
		return stack, nil
	}

	first := tokens[0]
	switch {
	case !first.quoted && strings.HasPrefix(first.text, "</"):
		return closeBlock(stack, tokens, lineNo)
	case !first.quoted && strings.HasPrefix(first.text, "<"):
		return openBlock(stack, tokens, lineNo)
	}

	if first.quoted {
		return stack, &ParseError{Line: lineNo, Msg: "key must not be quoted"}
	}
	item := api.ConfigItem{Key: first.text}
	for _, tok := range tokens[1:] {
		if !tok.quoted && (strings.HasPrefix(tok.text, "<") || strings.HasSuffix(tok.text, ">")) {
			return stack, &ParseError{Line: lineNo, Msg: fmt.Sprintf("unexpected %q", tok.text)}
		}
		item.Values = append(item.Values, tok.value())
	}
	top := &stack[len(stack)-1]
	top.item.Children = append(top.item.Children, item)
	return stack, nil
}

func openBlock(stack []frame, tokens []token, lineNo int) ([]frame, error) {
	last := &tokens[len(tokens)-1]
	if last.quoted || !strings.HasSuffix(last.text, ">") {
		return stack, &ParseError{Line: lineNo, Msg: "block start is missing '>'"}
	}
	last.text = strings.TrimSuffix(last.text, ">")
	key := strings.TrimPrefix(tokens[0].text, "<")
	args := tokens[1:]
	if len(tokens) == 1 {
		args = nil
	} else if last.text == "" {
		args = tokens[1 : len(tokens)-1]
	}
	if key == "" {
		return stack, &ParseError{Line: lineNo, Msg: "block without a name"}
	}

	item := api.ConfigItem{Key: key}
	for _, tok := range args {
		item.Values = append(item.Values, tok.value())
	}
	return append(stack, frame{item: item, line: lineNo}), nil
}

func closeBlock(stack []frame, tokens []token, lineNo int) ([]frame, error) {
	// </Plugin > splits into two tokens.
	if len(tokens) == 2 && !tokens[1].quoted && tokens[1].text == ">" {
		tokens = []token{{text: tokens[0].text + ">"}}
	}
	if len(tokens) != 1 || !strings.HasSuffix(tokens[0].text, ">") {
		return stack, &ParseError{Line: lineNo, Msg: "malformed block end"}
	}
	key := strings.TrimSuffix(strings.TrimPrefix(tokens[0].text, "</"), ">")
	if len(stack) == 1 {
		return stack, &ParseError{Line: lineNo, Msg: fmt.Sprintf("unexpected </%s>", key)}
	}
	open := stack[len(stack)-1]
	if open.item.Key != key {
		return stack, &ParseError{Line: lineNo, Msg: fmt.Sprintf("block <%s> closed by </%s>", open.item.Key, key)}
	}
	stack = stack[:len(stack)-1]
	parent := &stack[len(stack)-1]
	parent.item.Children = append(parent.item.Children, open.item)
	return stack, nil
}

type token struct {
	text   string
	quoted bool
}

func (t token) value() api.ConfigValue {
	if t.quoted {
		return api.StringValue(t.text)
	}
	switch strings.ToLower(t.text) {
	case "true", "yes", "on":
		return api.BooleanValue(true)
	case "false", "no", "off":
		return api.BooleanValue(false)
	}
	if numberRe.MatchString(t.text) {
		if n, ok := parseNumber(t.text); ok {
			return api.NumberValue(n)
		}
	}
	return api.StringValue(t.text)
}

func parseNumber(s string) (float64, bool) {
	unsigned := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(unsigned, "0x") || strings.HasPrefix(unsigned, "0X") {
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, false
		}
		return float64(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// tokenize splits a logical line into whitespace separated tokens, honouring
// quotes and dropping comments.
func tokenize(line string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '#':
			return tokens, nil
		case c == '"':
			s, n, err := readQuoted(line[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{text: s, quoted: true})
			i += n
		default:
			start := i
			for i < len(line) && line[i] != ' ' && line[i] != '\t' && line[i] != '"' && line[i] != '#' {
				i++
			}
			tokens = append(tokens, token{text: line[start:i]})
		}
	}
	return tokens, nil
}

// readQuoted reads a quoted string at the start of s and returns its
// unescaped content and the number of bytes consumed.
func readQuoted(s string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			i++
			b.WriteByte(s[i])
		case '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

// FindPlugin returns the <Plugin name> block for name, ignoring case.
func FindPlugin(items []api.ConfigItem, name string) (api.ConfigItem, bool) {
	for _, item := range items {
		if !strings.EqualFold(item.Key, "Plugin") || len(item.Values) == 0 {
			continue
		}
		if s, ok := item.Values[0].AsString(); ok && strings.EqualFold(s, name) {
			return item, true
		}
	}
	return api.ConfigItem{}, false
}

// LoadedPlugins returns the arguments of every LoadPlugin statement, both the
// single line form and the <LoadPlugin name> block form.
func LoadedPlugins(items []api.ConfigItem) []string {
	var names []string
	for _, item := range items {
		if !strings.EqualFold(item.Key, "LoadPlugin") || len(item.Values) == 0 {
			continue
		}
		if s, ok := item.Values[0].AsString(); ok {
			names = append(names, s)
		}
	}
	return names
}
