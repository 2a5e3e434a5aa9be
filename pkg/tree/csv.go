package tree

import (
	"encoding/csv"
	"fmt"
	"io"
)

// csvHeader lists the exported per-cluster features, one row per cluster in
// pre-order.
var csvHeader = []string{
	"center_index",
	"depth",
	"cardinality",
	"radius",
	"lfd",
	"span",
	"num_children",
}

// WriteCSV writes one row per cluster of the tree, in pre-order, to w.
func (t *Tree[I, U]) WriteCSV(w io.Writer) error {
	wtr := csv.NewWriter(w)
	if err := wtr.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, c := range t.PreOrder() {
		span, _ := c.Span()
		row := []string{
			fmt.Sprintf("%d", c.centerIndex),
			fmt.Sprintf("%d", c.depth),
			fmt.Sprintf("%d", c.cardinality),
			fmt.Sprintf("%v", c.radius),
			fmt.Sprintf("%v", c.lfd),
			fmt.Sprintf("%v", span),
			fmt.Sprintf("%d", len(c.children)),
		}
		if err := wtr.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	wtr.Flush()
	return wtr.Error()
}
