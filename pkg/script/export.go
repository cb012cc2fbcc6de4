package script

import (
	"encoding/json"
	"io"
	"time"
)

// exportedScript is the JSON export shape: run metadata plus one object
// per command, in execution order.
type exportedScript struct {
	RunID    string            `json:"run_id"`
	Commands []exportedCommand `json:"commands"`
}

type exportedCommand struct {
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	Command   json.RawMessage `json:"command"`
	WrittenAt time.Time       `json:"written_at"`
}

// ExportJSON writes a human-readable JSON rendition of the script, for
// review and for tooling that does not speak the binary format.
func ExportJSON(w io.Writer, s *Script) error {
	out := exportedScript{RunID: s.RunID}
	for _, e := range s.Entries {
		if e.Kind == 0 {
			continue
		}
		out.Commands = append(out.Commands, exportedCommand{
			Seq:       e.Seq,
			Kind:      e.Kind.String(),
			Command:   json.RawMessage(e.Data),
			WrittenAt: time.Unix(e.Timestamp, 0).UTC(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
