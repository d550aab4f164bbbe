package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minimech/minimech/browser"
	"github.com/minimech/minimech/css"
	"github.com/minimech/minimech/htmltree"
)

// loadDocument reads a document from a URL, a local file or stdin
// ("-").
func loadDocument(source, userAgent string) (*htmltree.Element, error) {
	if source == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return htmltree.ParseBytes(raw, ""), nil
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		b, err := browser.New(userAgent)
		if err != nil {
			return nil, fmt.Errorf("create browser: %w", err)
		}
		page, err := b.Open(source)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		return page.Document, nil
	}
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return htmltree.ParseBytes(raw, ""), nil
}

func newSelectCmd() *cobra.Command {
	var userAgent string
	var firstOnly bool
	var textOnly bool

	cmd := &cobra.Command{
		Use:   "select <url-or-file> <selector>",
		Short: "Print elements matching a CSS selector",
		Long: `Evaluate a CSS selector against a document and print every match
as HTML. The selector dialect covers tag, class and id selectors,
:contains(), and descendant and child combinators.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0], userAgent)
			if err != nil {
				return err
			}
			matches, err := css.QuerySelectorAll(doc, args[1])
			if err != nil {
				return fmt.Errorf("compile selector: %w", err)
			}
			for el := range matches {
				if textOnly {
					fmt.Println(el.TextContent())
				} else {
					fmt.Println(el.OuterHTML())
				}
				if firstOnly {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userAgent, "user-agent", "A", "", "user agent to send")
	cmd.Flags().BoolVarP(&firstOnly, "first", "1", false, "print only the first match")
	cmd.Flags().BoolVarP(&textOnly, "text", "t", false, "print normalized text content instead of HTML")
	return cmd
}
