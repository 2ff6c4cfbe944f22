package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/botdesk/botdesk/internal/client/api"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func checkOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", format)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// prompter reads answers from the command's stdin. One reader is shared so
// buffered input is not lost between questions.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
}

// ask prints label and returns the trimmed answer, or def when it is empty.
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return def, nil
}

// confirm asks a yes/no question defaulting to no.
func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question+" [y/N]", "")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// fill asks for every flag value still empty.
func (p *prompter) fill(fields ...promptField) error {
	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		v, err := p.ask(f.label, "")
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

type promptField struct {
	label string
	dst   *string
}

// userError shows the backend's message while keeping the cause for errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// friendly turns backend and validation errors into the text a user sees.
func friendly(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &userError{msg: api.Message(err, fallback), err: err}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func activeLabel(b bool) string {
	if b {
		return "Active"
	}
	return "Inactive"
}
