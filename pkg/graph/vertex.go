package graph

// VertexInfo is the frontier record of one active vertex.
//
// VID is the global id and never changes. The edge slices are views into the
// owning fragment's arrays and must be treated as read-only. Data points into
// the fragment vertex-data array, so Compute callbacks may update the payload
// in place.
type VertexInfo struct {
	VID      VID
	LocalID  VID
	OutEdges []VID
	OutEData []EData
	InEdges  []VID
	Data     *VData
}

// OutDegree returns the number of outgoing edges materialized in the fragment.
func (v *VertexInfo) OutDegree() int {
	return len(v.OutEdges)
}

// InDegree returns the number of incoming edges materialized in the fragment.
func (v *VertexInfo) InDegree() int {
	return len(v.InEdges)
}

// Value returns the current payload, or zero for a detached record.
func (v *VertexInfo) Value() VData {
	if v.Data == nil {
		return 0
	}
	return *v.Data
}
