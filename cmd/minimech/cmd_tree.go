package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/minimech/minimech/htmltree"
)

// nodeLabel summarizes one element for the tree dump.
func nodeLabel(el *htmltree.Element) string {
	var b strings.Builder
	b.WriteString(el.Tag)
	for _, a := range el.Attrs() {
		fmt.Fprintf(&b, " %s=%q", a.Name, a.Value)
	}
	if text := strings.Join(strings.Fields(el.Text), " "); text != "" {
		if len(text) > 40 {
			text = text[:40] + "…"
		}
		fmt.Fprintf(&b, " %q", text)
	}
	return b.String()
}

func addBranch(branch treeprint.Tree, el *htmltree.Element) {
	for _, child := range el.Children() {
		sub := branch.AddBranch(nodeLabel(child))
		addBranch(sub, child)
	}
}

func newTreeCmd() *cobra.Command {
	var userAgent string

	cmd := &cobra.Command{
		Use:   "tree <url-or-file>",
		Short: "Dump the parsed element tree",
		Long: `Parse a document and print its element structure as a tree, one
node per line with attributes and a snippet of leading text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0], userAgent)
			if err != nil {
				return err
			}
			root := treeprint.NewWithRoot(nodeLabel(doc))
			addBranch(root, doc)
			fmt.Print(root.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&userAgent, "user-agent", "A", "", "user agent to send")
	return cmd
}
