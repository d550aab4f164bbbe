package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/minimech/minimech/charset"
)

func newCharsetCmd() *cobra.Command {
	var declared string

	cmd := &cobra.Command{
		Use:   "charset [file]",
		Short: "Report the detected character encoding of a document",
		Long: `Run charset detection over a file (or stdin) and print the
canonical encoding name that would be used to decode it. An
out-of-band label, like one from a Content-Type header, can be
supplied with --declared.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if len(args) == 0 {
				raw, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			} else {
				raw, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read file: %w", err)
				}
			}
			fmt.Println(charset.Detect(raw, declared))
			return nil
		},
	}
	cmd.Flags().StringVarP(&declared, "declared", "d", "", "out-of-band encoding label")
	return cmd
}
