package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/vekoo-go1/veko-dome-v1/internal/model"
)

// MarkdownWriter outputs status reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the connection status in Markdown format.
func (w *MarkdownWriter) Write(status *model.ConnectionStatus) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, status)
	w.writeAlert(md, status)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the status table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, status *model.ConnectionStatus) {
	md.H1("Veko Dome Connection Status")
	md.PlainText("")

	rows := [][]string{
		{"Public IP", w.ipValue(status)},
		{"Tor", status.TorText},
		{"Mode", modeLine(status)},
	}

	if !status.CheckedAt.IsZero() {
		rows = append([][]string{
			{"Checked At", status.CheckedAt.Format("2006-01-02 15:04:05 MST")},
		}, rows...)
	}
	if status.Profile != "" {
		rows = append(rows, []string{"Profile", titleCaser.String(status.Profile)})
	}
	if status.PoolSize > 0 {
		rows = append(rows, []string{"Pool Size", strconv.Itoa(status.PoolSize)})
	}
	if status.DoH {
		rows = append(rows, []string{"DNS", "over HTTPS"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// ipValue formats the public IP cell.
func (w *MarkdownWriter) ipValue(status *model.ConnectionStatus) string {
	if status.PublicIP == "" || status.PublicIP == model.UnknownIP {
		return model.UnknownIP
	}
	return "`" + status.PublicIP + "`"
}

// writeAlert writes an appropriate alert based on what the check observed.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, status *model.ConnectionStatus) {
	switch {
	case status.Tor == model.TorConfirmed:
		md.Tip("Tor exit confirmed. Traffic is routed through the Tor network.")
	case status.ActiveEndpoint != "":
		md.Importantf(
			"Traffic is proxied through `%s`, but the check did not confirm a Tor exit.",
			status.ActiveEndpoint,
		)
	case status.PublicIP == "" || status.PublicIP == model.UnknownIP:
		md.Warningf("No identity could be established: every IP echo service failed.")
	default:
		md.Cautionf(
			"Direct connection. The public address `%s` is visible to every destination.",
			status.PublicIP,
		)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [Veko Dome](https://github.com/vekoo-go1/veko-dome-v1)*")
}
