package kdtree

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Info summarizes the shape of a tree.
type Info struct {
	Options Options

	Nodes      int
	Leafs      int
	EmptyLeafs int
	GeomRefs   int
	MaxDepth   int

	// Largest number of refs in a single leaf.
	MaxLeafGeoms int

	// Average number of refs per non-empty leaf.
	AvgLeafGeoms float32
}

// Collect tree statistics.
func (tree *KdTree[R]) Info() Info {
	info := Info{
		Options:  tree.opts,
		Nodes:    len(tree.nodes),
		GeomRefs: len(tree.geomRefs),
	}

	type pending struct {
		node  uint32
		depth int
	}
	stack := []pending{{0, 0}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.depth > info.MaxDepth {
			info.MaxDepth = cur.depth
		}

		node := tree.nodes[cur.node]
		if !node.IsLeaf() {
			stack = append(stack, pending{node.Offset(), cur.depth + 1}, pending{cur.node + 1, cur.depth + 1})
			continue
		}

		info.Leafs++
		count := int(node.GeomCount())
		if count == 0 {
			info.EmptyLeafs++
		}
		if count > info.MaxLeafGeoms {
			info.MaxLeafGeoms = count
		}
	}

	if full := info.Leafs - info.EmptyLeafs; full > 0 {
		info.AvgLeafGeoms = float32(info.GeomRefs) / float32(full)
	}

	return info
}

// Render info as a table.
func (info Info) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Section", "Property", "Value"})
	table.Append([]string{"Options", "Intersection cost", fmt.Sprintf("%.2f", info.Options.IsecCost)})
	table.Append([]string{"", "Traversal cost", fmt.Sprintf("%.2f", info.Options.TravCost)})
	table.Append([]string{"", "Max geoms per leaf", fmt.Sprint(info.Options.MaxGeomsPerLeaf)})
	table.Append([]string{"", "Max depth", fmt.Sprint(info.Options.MaxDepth)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Tree", "Nodes", fmt.Sprint(info.Nodes)})
	table.Append([]string{"", "Leafs", fmt.Sprintf("%d (%d empty)", info.Leafs, info.EmptyLeafs)})
	table.Append([]string{"", "Depth", fmt.Sprint(info.MaxDepth)})
	table.Append([]string{"", "Geometry refs", fmt.Sprint(info.GeomRefs)})
	table.Append([]string{"", "Geoms per leaf", fmt.Sprintf("%.2f avg, %d max", info.AvgLeafGeoms, info.MaxLeafGeoms)})
	table.SetFooter([]string{"Size", " ", fmtSize(info.Nodes, info.GeomRefs)})

	table.Render()
	return buf.String()
}

// Format the in-memory size of the node and ref lists with the appropriate
// byte/kb/mb unit.
func fmtSize(nodes, refs int) string {
	totalBytes := float32(8*nodes + 4*refs)
	switch {
	case totalBytes < 1e3:
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	case totalBytes < 1e6:
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%3.1f mb", totalBytes/1e6)
}

// Write the tree as a graphviz digraph. Internal nodes are labeled with their
// split axis and offset and leafs with their geometry count.
func (tree *KdTree[R]) WriteDot(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "digraph kdtree {")
	fmt.Fprintln(bw, "\tnode [shape=box];")
	for index, node := range tree.nodes {
		if node.IsLeaf() {
			fmt.Fprintf(bw, "\tn%d [label=\"geoms: %d\"];\n", index, node.GeomCount())
			continue
		}

		fmt.Fprintf(bw, "\tn%d [label=\"split: %s = %g\"];\n", index, node.Axis(), node.Split())
		fmt.Fprintf(bw, "\tn%d -> n%d;\n", index, index+1)
		fmt.Fprintf(bw, "\tn%d -> n%d;\n", index, node.Offset())
	}
	fmt.Fprintln(bw, "}")

	return bw.Flush()
}
