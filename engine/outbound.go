package engine

// A decision widget descriptor handed to the external UI collaborator. The
// collaborator renders the options and reports the selection back through
// ProcessChoice with the same node ID.
type Prompt struct {
	Node        NodeID   `json:"node"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	MultiSelect bool     `json:"multiSelect,omitempty"`
}

// A titled rich notification (the embed analog).
type Summary struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// One outbound item produced by event handling: exactly one of plain text, a
// decision prompt, or a rich summary is set.
type Outbound struct {
	Text    string   `json:"text,omitempty"`
	Prompt  *Prompt  `json:"prompt,omitempty"`
	Summary *Summary `json:"summary,omitempty"`
}

func textOut(text string) Outbound {
	return Outbound{Text: text}
}

func summaryOut(title, body string) Outbound {
	return Outbound{Summary: &Summary{Title: title, Body: body}}
}
