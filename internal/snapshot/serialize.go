package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// meta describes the flattened row layouts to snapshot consumers. The
// field order is part of the format and must not change.
const metaJSON = `{"node_fields":["type","name","id","self_size","edge_count","trace_node_id"],` +
	`"node_types":[["hidden","array","string","object","code","closure","regexp","number",` +
	`"native","synthetic","concatenated string","sliced string"],` +
	`"string","number","number","number","number"],` +
	`"edge_fields":["type","name_or_index","to_node"],` +
	`"edge_types":[["context","element","property","internal","hidden","shortcut","weak"],` +
	`"string_or_number","node"],` +
	`"trace_function_info_fields":["function_id","name","script_name","script_id","line","column"],` +
	`"trace_node_fields":["id","function_info_index","count","size","children"],` +
	`"sample_fields":["timestamp_us","last_assigned_id"]}`

// WriteTo serializes the built graph. Top-level keys appear in the
// order snapshot viewers expect: snapshot, nodes, edges, the empty
// trace and sample sections, then strings.
func (b *Builder) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, `{"snapshot":{"meta":%s,"node_count":%d,"edge_count":%d,"trace_function_count":0},`,
		metaJSON, len(b.nodes), len(b.edges))
	bw.WriteString("\n")

	bw.WriteString(`"nodes":[`)
	for i, n := range b.nodes {
		if i > 0 {
			bw.WriteByte(',')
			bw.WriteByte('\n')
		}
		fmt.Fprintf(bw, "%d,%d,%d,%d,%d,%d",
			n.typ, n.name, n.id, n.size, n.children, n.traceNodeID)
	}
	bw.WriteString("],\n")

	bw.WriteString(`"edges":[`)
	for i, e := range b.edges {
		if i > 0 {
			bw.WriteByte(',')
			bw.WriteByte('\n')
		}
		fmt.Fprintf(bw, "%d,%d,%d", e.typ, e.nameOrIndex, e.toNodeID)
	}
	bw.WriteString("],\n")

	bw.WriteString(`"trace_function_infos":[],` + "\n")
	bw.WriteString(`"trace_tree":[],` + "\n")
	bw.WriteString(`"samples":[],` + "\n")

	// The dummy heading entry keeps every one-based string id a direct
	// index into this array.
	bw.WriteString(`"strings":["<dummy>"`)
	for _, s := range b.strings.All() {
		bw.WriteByte(',')
		bw.WriteByte('\n')
		quoted, err := json.Marshal(s)
		if err != nil {
			return err
		}
		bw.Write(quoted)
	}
	bw.WriteString("]}")
	bw.WriteString("\n")

	return bw.Flush()
}
