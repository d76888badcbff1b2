package webserver

import "encoding/json"

// nullableID tells an absent field apart from an explicit null in partial
// updates, so a client can detach a reference by sending null for it.
type nullableID struct {
	set bool
	id  *uint64
}

func (n *nullableID) UnmarshalJSON(b []byte) error {
	n.set = true
	if string(b) == "null" {
		n.id = nil
		return nil
	}
	return json.Unmarshal(b, &n.id)
}
