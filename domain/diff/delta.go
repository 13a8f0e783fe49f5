package diff

// DeltaResult is the id-only view of a comparison, suitable for change
// feeds and event payloads where full entity bodies are dead weight.
// Unchanged ids are implicit.
type DeltaResult struct {
	NodesAdded   []string `json:"nodes_added"`
	NodesRemoved []string `json:"nodes_removed"`
	NodesChanged []string `json:"nodes_changed"`
	EdgesAdded   []string `json:"edges_added"`
	EdgesRemoved []string `json:"edges_removed"`
	EdgesChanged []string `json:"edges_changed"`
}

// IsEmpty reports whether the delta carries no changes.
func (d DeltaResult) IsEmpty() bool {
	return len(d.NodesAdded)+len(d.NodesRemoved)+len(d.NodesChanged)+
		len(d.EdgesAdded)+len(d.EdgesRemoved)+len(d.EdgesChanged) == 0
}

// Delta runs a comparison and projects it down to ids.
func Delta(before, after Snapshot, opts ...Option) DeltaResult {
	r := Compare(before, after, opts...)

	d := DeltaResult{
		NodesAdded:   make([]string, 0, len(r.NodesAdded)),
		NodesRemoved: make([]string, 0, len(r.NodesRemoved)),
		NodesChanged: make([]string, 0, len(r.NodesModified)),
		EdgesAdded:   make([]string, 0, len(r.EdgesAdded)),
		EdgesRemoved: make([]string, 0, len(r.EdgesRemoved)),
		EdgesChanged: make([]string, 0, len(r.EdgesModified)),
	}
	for _, c := range r.NodesAdded {
		d.NodesAdded = append(d.NodesAdded, c.ID)
	}
	for _, c := range r.NodesRemoved {
		d.NodesRemoved = append(d.NodesRemoved, c.ID)
	}
	for _, c := range r.NodesModified {
		d.NodesChanged = append(d.NodesChanged, c.ID)
	}
	for _, c := range r.EdgesAdded {
		d.EdgesAdded = append(d.EdgesAdded, c.ID)
	}
	for _, c := range r.EdgesRemoved {
		d.EdgesRemoved = append(d.EdgesRemoved, c.ID)
	}
	for _, c := range r.EdgesModified {
		d.EdgesChanged = append(d.EdgesChanged, c.ID)
	}
	return d
}
