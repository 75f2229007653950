package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/pushchain/svm-multisig/multisigClient/config"
	"github.com/pushchain/svm-multisig/multisigClient/multisig"
	"github.com/pushchain/svm-multisig/multisigClient/workflow"
)

var operationTitles = map[string]string{
	multisig.OpCreateMultisig:     "Creating a multisig with the following parameters:",
	multisig.OpCreateTransaction:  "Preparing a token transfer transaction with the following parameters:",
	multisig.OpApprove:            "Approving a transaction with the following parameters:",
	multisig.OpExecuteTransaction: "Executing a token transfer transaction with the following parameters:",
}

type palette struct {
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	warn   lipgloss.Style
}

func newPalette(out io.Writer, color bool) palette {
	r := lipgloss.NewRenderer(out)
	if !color {
		plain := r.NewStyle()
		return palette{header: plain, label: plain, value: plain, warn: plain}
	}
	return palette{
		header: r.NewStyle().Bold(true),
		label:  r.NewStyle().Faint(true),
		value:  r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// Printer renders command results as text or JSON on stdout. Prompts go to stderr
// so JSON output stays parseable.
type Printer struct {
	format string
	out    io.Writer
	errOut io.Writer
	colors palette
}

func NewPrinter(format string, out, errOut io.Writer) Printer {
	return Printer{
		format: format,
		out:    out,
		errOut: errOut,
		colors: newPalette(out, isTerminal(out)),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p Printer) isJSON() bool { return p.format == config.OutputJSON }

// JSON pretty-prints v.
func (p Printer) JSON(v any) {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (p Printer) textf(format string, a ...any) { fmt.Fprintf(p.out, format, a...) }

func (p Printer) field(label, value string) {
	p.textf("%s %s\n", p.colors.label.Render(label+":"), p.colors.value.Render(value))
}

// Prompt tells the operator to act on an interactive signer.
func (p Printer) Prompt(msg, key string) {
	fmt.Fprintf(p.errOut, "%s (%s)\n", p.colors.warn.Render(msg), key)
}

// Result prints a built (and possibly submitted) transaction.
func (p Printer) Result(r *workflow.Result) {
	if p.isJSON() {
		p.JSON(r)
		return
	}
	title, ok := operationTitles[r.Operation]
	if !ok {
		title = r.Operation
	}
	p.textf("%s\n", p.colors.header.Render(title))
	for _, f := range r.Summary {
		p.field(f.Label, f.Value)
	}
	p.field("Nonce", r.Nonce)
	p.field("Nonce account", r.NonceAccount)

	p.textf("\nYou may now check the transaction using external tools.\nHere is the transaction data in base64:\n\n%s\n\n", r.Transport)

	p.textf("%s\n", p.colors.header.Render("Signers (submit signatures in this order):"))
	for _, s := range r.Signers {
		sig := p.colors.warn.Render("pending")
		if s.Signature != "" {
			sig = p.colors.value.Render(s.Signature)
		}
		p.textf("  [%d] %s (%s) %s\n", s.Position, s.Key, s.Role, sig)
	}
	if r.TxID != "" {
		p.textf("\n")
		p.field("Transaction submitted", r.TxID)
	}
}

// Signature prints a standalone signature.
func (p Printer) Signature(s *workflow.Signature) {
	if p.isJSON() {
		p.JSON(s)
		return
	}
	p.field("Signer", s.Key)
	p.field("Position", fmt.Sprintf("%d", s.Position))
	p.field("Nonce", s.Nonce)
	p.field("Signature", s.Signature)
}

// Submitted prints the id of a confirmed transaction.
func (p Printer) Submitted(txid string) {
	if p.isJSON() {
		p.JSON(map[string]string{"txid": txid})
		return
	}
	p.field("Transaction submitted", txid)
}

// Inspection prints a decoded transport string.
func (p Printer) Inspection(in *workflow.Inspection) {
	if p.isJSON() {
		p.JSON(in)
		return
	}
	p.field("Payer", in.Payer)
	p.field("Nonce", in.Nonce)
	if in.NonceAccount != "" {
		p.field("Nonce account", in.NonceAccount)
	} else {
		p.textf("%s\n", p.colors.warn.Render("Transaction is not anchored to a durable nonce"))
	}
	p.textf("\n%s\n", p.colors.header.Render("Instructions:"))
	for i, ix := range in.Instructions {
		p.textf("  #%d %s %s\n", i, ix.Program, p.colors.value.Render(ix.Name))
		for _, d := range ix.Details {
			p.textf("      %s %s\n", p.colors.label.Render(d.Label+":"), d.Value)
		}
	}
	p.textf("\n%s\n", p.colors.header.Render("Signers:"))
	for _, s := range in.Signers {
		p.textf("  [%d] %s (%s)\n", s.Position, s.Key, s.Role)
	}
}

// Multisig prints an on-chain multisig.
func (p Printer) Multisig(v *workflow.MultisigView) {
	if p.isJSON() {
		p.JSON(v)
		return
	}
	p.field("Multisig address", v.Address)
	p.field("Multisig PDA", v.Signer)
	p.field("Threshold", fmt.Sprintf("%d of %d", v.Threshold, len(v.Owners)))
	p.field("Owner set seqno", fmt.Sprintf("%d", v.OwnerSetSeqno))
	p.textf("%s\n", p.colors.header.Render("Owners:"))
	for _, o := range v.Owners {
		p.textf("  %s\n", o)
	}
}

// Transaction prints an on-chain proposal.
func (p Printer) Transaction(v *workflow.TransactionView) {
	if p.isJSON() {
		p.JSON(v)
		return
	}
	p.field("Transaction address", v.Address)
	p.field("Multisig address", v.Multisig)
	p.field("Program", v.ProgramID)
	if v.Amount != "" {
		p.field("Amount", v.Amount)
	}
	if v.From != "" {
		p.field("From", v.From)
		p.field("To", v.To)
	}
	p.field("Approvals", fmt.Sprintf("%d of %d required", v.Approvals, v.Threshold))
	if len(v.ApprovedBy) > 0 {
		p.field("Approved by", strings.Join(v.ApprovedBy, ", "))
	}
	if len(v.Pending) > 0 {
		p.field("Pending", strings.Join(v.Pending, ", "))
	}
	switch {
	case v.DidExecute:
		p.textf("%s\n", p.colors.warn.Render("Transaction was already executed"))
	case v.Stale:
		p.textf("%s\n", p.colors.warn.Render("Owner set changed since this transaction was proposed"))
	}
}

// ConfigWritten reports the path of a newly written config file.
func (p Printer) ConfigWritten(path string) {
	if p.isJSON() {
		p.JSON(map[string]string{"path": path})
		return
	}
	p.field("Config written", path)
}
