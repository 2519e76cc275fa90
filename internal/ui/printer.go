package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/muurk/retools/internal/discovery"
	"github.com/muurk/retools/internal/retools"
)

// Printer writes styled output for one-shot commands
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer writing to w (os.Stdout when nil)
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// PrintReport prints a statistics listing
func (p *Printer) PrintReport(r retools.Report) {
	p.Print(RenderReport(r, p.width, 0))
}

// PrintGateways prints discovered gateways
func (p *Printer) PrintGateways(gateways []*discovery.Gateway) {
	p.Print(RenderGateways(gateways))
}
