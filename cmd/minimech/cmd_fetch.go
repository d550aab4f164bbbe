package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minimech/minimech/browser"
)

func newFetchCmd() *cobra.Command {
	var userAgent string
	var maxRedirects int
	var showBytes bool

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a page, following redirects, and print it",
		Long: `Fetch a URL the way the browser package does: cookies are kept,
and status redirects, Refresh headers and meta refresh are all
followed. The decoded document is printed as HTML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := browser.New(userAgent)
			if err != nil {
				return fmt.Errorf("create browser: %w", err)
			}
			if maxRedirects > 0 {
				b.MaxRedirects = maxRedirects
			}
			page, err := b.Open(args[0])
			if err != nil {
				return fmt.Errorf("fetch %s: %w", args[0], err)
			}
			if showBytes {
				_, err = os.Stdout.Write(page.Bytes())
				return err
			}
			fmt.Println(page.Document.OuterHTML())
			return nil
		},
	}
	cmd.Flags().StringVarP(&userAgent, "user-agent", "A", "", "user agent to send")
	cmd.Flags().IntVarP(&maxRedirects, "max-redirects", "r", 0, "redirect budget")
	cmd.Flags().BoolVar(&showBytes, "raw", false, "print the undecoded body instead of the parsed document")
	return cmd
}
