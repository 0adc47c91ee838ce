// Package prompt asks the operator for vocabulary tokens the rule document
// leaves open (entries set to "prompt").
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/converter"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// InvestmentActions are the QIF investment action names offered as choices
// for ActionMap prompts.
var InvestmentActions = []string{
	"Buy", "BuyX", "Sell", "SellX", "Div", "DivX", "IntInc", "IntIncX",
	"ReinvDiv", "ReinvInt", "ReinvLg", "ReinvSh", "CGLong", "CGShort",
	"ShrsIn", "ShrsOut", "StkSplit", "MiscExp", "MiscInc", "XIn", "XOut",
}

// SecurityTypes are the common QIF security types offered for
// SecurityTypeMap prompts.
var SecurityTypes = []string{"Stock", "Mutual Fund", "Bond", "CD", "ETF", "Option", "Other"}

type line struct {
	text string
	err  error
}

// Console prompts on a terminal. Answers may be typed in full or picked by
// number from the offered choices.
type Console struct {
	out     io.Writer
	choices map[string][]string

	in    *bufio.Reader
	once  sync.Once
	lines chan line
}

// NewConsole creates a prompt reading answers from in and writing questions
// to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		out: out,
		in:  bufio.NewReader(in),
		choices: map[string][]string{
			converter.RuleActionMap:       InvestmentActions,
			converter.RuleSecurityTypeMap: SecurityTypes,
		},
	}
}

// SetChoices replaces the choices listed for a vocabulary table.
func (c *Console) SetChoices(rule string, choices []string) {
	c.choices[rule] = choices
}

// Ask shows the decision and blocks until the operator answers, input ends,
// or ctx is done. The last two return an error wrapping types.ErrCancelled.
func (c *Console) Ask(ctx context.Context, d converter.Decision) (string, error) {
	choices := c.choices[d.Rule]
	c.show(d, choices)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return "", fmt.Errorf("%w: %v", types.ErrCancelled, ctx.Err())
		case l, ok := <-c.next():
			if !ok || l.err != nil {
				return "", fmt.Errorf("%w: input closed", types.ErrCancelled)
			}
			if answer, ok := pick(l.text, choices); ok {
				return answer, nil
			}
			color.New(color.FgRed).Fprint(c.out, "Please enter a value: ")
		}
	}
}

func (c *Console) show(d converter.Decision, choices []string) {
	fmt.Fprintln(c.out)
	color.New(color.BgBlue, color.FgWhite).Fprintf(c.out, " line %d ", d.Line)
	color.New(color.BgYellow, color.FgBlack).Fprintf(c.out, " %s ", d.Rule)
	color.New(color.BgWhite, color.FgBlack).Fprintf(c.out, " %s ", d.Token)
	fmt.Fprintln(c.out)

	for i, choice := range choices {
		fmt.Fprintf(c.out, "  %2d) %s\n", i+1, choice)
	}
	color.New(color.FgGreen).Fprintf(c.out, "%s for %q: ", d.Field, d.Token)
}

// next starts the reader goroutine on first use. Lines are read one at a time
// so a cancelled Ask does not lose the following answer.
func (c *Console) next() <-chan line {
	c.once.Do(func() {
		c.lines = make(chan line)
		go func() {
			for {
				text, err := c.in.ReadString('\n')
				if err != nil && (err != io.EOF || text == "") {
					c.lines <- line{err: err}
					close(c.lines)
					return
				}
				c.lines <- line{text: text}
			}
		}()
	})
	return c.lines
}

// pick turns an answer into a token: a choice number selects that choice,
// anything else is taken literally.
func pick(text string, choices []string) (string, bool) {
	answer := strings.TrimSpace(text)
	if answer == "" {
		return "", false
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], true
	}
	return answer, true
}
