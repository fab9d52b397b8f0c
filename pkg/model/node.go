package model

// ResourceNode is a server with fixed totals and mutable available capacity.
type ResourceNode struct {
	ID           int `json:"id" yaml:"id"`
	TotalCPU     int `json:"total_cpu" yaml:"total_cpu"`
	TotalRAM     int `json:"total_ram" yaml:"total_ram"`
	AvailableCPU int `json:"available_cpu" yaml:"available_cpu"`
	AvailableRAM int `json:"available_ram" yaml:"available_ram"`
}

// NewResourceNode returns an idle node with all capacity available.
func NewResourceNode(id, cpu, ram int) ResourceNode {
	return ResourceNode{
		ID:           id,
		TotalCPU:     cpu,
		TotalRAM:     ram,
		AvailableCPU: cpu,
		AvailableRAM: ram,
	}
}

// Fits reports whether the node's available capacity covers cpu and ram.
func (n *ResourceNode) Fits(cpu, ram int) bool {
	return n.AvailableCPU >= cpu && n.AvailableRAM >= ram
}

// InBounds reports whether 0 <= available <= total holds for both dimensions.
func (n *ResourceNode) InBounds() bool {
	return n.AvailableCPU >= 0 && n.AvailableCPU <= n.TotalCPU &&
		n.AvailableRAM >= 0 && n.AvailableRAM <= n.TotalRAM
}

// NodeRequest carries the caller-supplied fields of a new node.
type NodeRequest struct {
	CPU int `json:"cpu" yaml:"cpu"`
	RAM int `json:"ram" yaml:"ram"`
}

// Validate checks that both totals are positive.
func (r NodeRequest) Validate() *APIError {
	var details []FieldError
	if r.CPU <= 0 {
		details = append(details, FieldError{Field: "cpu", Message: "must be positive"})
	}
	if r.RAM <= 0 {
		details = append(details, FieldError{Field: "ram", Message: "must be positive"})
	}
	if len(details) > 0 {
		return NewValidationError("invalid node", details...)
	}
	return nil
}
