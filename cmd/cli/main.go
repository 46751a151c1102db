package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "crawler",
		Short: "Price-transparency crawler for Israeli grocery retailers",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newDiscoverRetailersCmd())
	root.AddCommand(newManifestCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
