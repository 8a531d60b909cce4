package scanner

// UnknownScreen names a flow destination that is not part of the project
const UnknownScreen = "Unknown"

// DetectFlows resolves every screen's connections against the whole
// screen set. Screens without connections are absent from the result.
func DetectFlows(screens []ScreenRecord) map[string][]Flow {
	names := make(map[string]string, len(screens))
	for _, s := range screens {
		if _, seen := names[s.ID]; !seen {
			names[s.ID] = s.Name
		}
	}

	flows := make(map[string][]Flow)
	for _, s := range screens {
		if len(s.Connections) == 0 {
			continue
		}
		out := make([]Flow, 0, len(s.Connections))
		for _, c := range s.Connections {
			to, ok := names[c.DestinationID]
			if !ok || to == "" {
				to = UnknownScreen
			}
			out = append(out, Flow{From: s.Name, To: to, Trigger: c.Trigger})
		}
		flows[s.ID] = out
	}
	return flows
}

// FlowPath follows first connections from start until a screen without
// connections, an unresolved destination, or a screen already visited.
func FlowPath(p *ProjectRecord, startID string) []*ScreenRecord {
	var path []*ScreenRecord
	visited := map[string]bool{}
	for id := startID; id != "" && !visited[id]; {
		s := p.Screen(id)
		if s == nil {
			break
		}
		visited[id] = true
		path = append(path, s)
		if len(s.Connections) == 0 {
			break
		}
		id = s.Connections[0].DestinationID
	}
	return path
}
