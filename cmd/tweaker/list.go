package main

import (
	"fmt"
	"io"

	"github.com/windowsadmins/tweaker/pkg/catalog"
)

// printCatalog lists every category with its labels, grouped where the
// catalog defines groups.
func printCatalog(w io.Writer, reg *catalog.Registry) {
	for i, c := range reg.Categories() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s)\n", c.Title(), c.Key())

		group := ""
		for _, label := range reg.Labels(c) {
			d, err := reg.Descriptor(c, label)
			if err != nil {
				continue
			}
			if d.Group != "" && d.Group != group {
				group = d.Group
				fmt.Fprintf(w, "  %s\n", group)
			}
			indent := "  "
			if group != "" {
				indent = "    "
			}
			fmt.Fprintf(w, "%s%s\n", indent, label)
		}
	}
}
