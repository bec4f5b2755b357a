package types

import (
	"encoding/json"
	"strings"
)

// Group is a snapshot of a container group as reported by the groups API.
// Snapshots are authoritative only at the moment they were inspected.
type Group struct {
	Name            string
	Status          string
	NumberInstances InstanceCounts
	Routes          []string

	// Extra holds every field the orchestrator does not interpret
	Extra map[string]json.RawMessage
}

// InstanceCounts describes the scaling bounds of a group
type InstanceCounts struct {
	Desired     int `json:"Desired"`
	Min         int `json:"Min"`
	Max         int `json:"Max"`
	CurrentSize int `json:"CurrentSize"`
}

// known JSON keys of a group document
var groupKeys = map[string]bool{
	"Name":            true,
	"Status":          true,
	"NumberInstances": true,
	"Routes":          true,
}

type groupFields struct {
	Name            string         `json:"Name,omitempty"`
	Status          string         `json:"Status,omitempty"`
	NumberInstances InstanceCounts `json:"NumberInstances"`
	Routes          []string       `json:"Routes,omitempty"`
}

// UnmarshalJSON decodes the known group fields and keeps the rest in Extra
func (g *Group) UnmarshalJSON(data []byte) error {
	var fields groupFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	g.Name = fields.Name
	g.Status = fields.Status
	g.NumberInstances = fields.NumberInstances
	g.Routes = fields.Routes
	g.Extra = nil
	for k, v := range raw {
		if groupKeys[k] {
			continue
		}
		if g.Extra == nil {
			g.Extra = make(map[string]json.RawMessage)
		}
		g.Extra[k] = v
	}
	return nil
}

// MarshalJSON re-emits the group including preserved opaque fields
func (g Group) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(g.Extra)+4)
	for k, v := range g.Extra {
		out[k] = v
	}
	if g.Name != "" {
		out["Name"] = g.Name
	}
	if g.Status != "" {
		out["Status"] = g.Status
	}
	out["NumberInstances"] = g.NumberInstances
	if len(g.Routes) > 0 {
		out["Routes"] = g.Routes
	}
	return json.Marshal(out)
}

// HasRoute reports whether route is currently mapped to the group
func (g *Group) HasRoute(route string) bool {
	for _, r := range g.Routes {
		if r == route {
			return true
		}
	}
	return false
}

// StatusClass is the interpretation of a free-text group status
type StatusClass string

const (
	StatusUnreported StatusClass = "unreported"
	StatusInProgress StatusClass = "in_progress"
	StatusComplete   StatusClass = "complete"
	StatusFailed     StatusClass = "failed"
)

// Status suffixes used by the groups API
const (
	SuffixComplete   = "_COMPLETE"
	SuffixInProgress = "IN_PROGRESS"
)

// ClassifyStatus maps a status string to its class by suffix.
// Anything non-empty that is neither complete nor in progress is a failure.
func ClassifyStatus(status string) StatusClass {
	switch {
	case status == "":
		return StatusUnreported
	case strings.HasSuffix(status, SuffixComplete):
		return StatusComplete
	case strings.HasSuffix(status, SuffixInProgress):
		return StatusInProgress
	default:
		return StatusFailed
	}
}

// IsTerminal reports whether the class ends a wait
func (c StatusClass) IsTerminal() bool {
	return c == StatusComplete || c == StatusFailed
}

// Route joins a hostname and a domain the way the groups API reports routes
func Route(hostname, domain string) string {
	return hostname + "." + domain
}
