package crdt

import "encoding/json"

// wireReplica is the JSON-safe mirror of Replica, used only for
// delta-queue payload encoding (state-based CRDT deltas travel as
// plain serialized snapshots, not operations).
type wireReplica struct {
	MemoryID      string       `json:"memory_id"`
	Clock         VectorClock  `json:"clock"`
	ContentLWW    LWWRegister  `json:"content"`
	SummaryL1LWW  LWWRegister  `json:"summary_l1"`
	SummaryL2LWW  LWWRegister  `json:"summary_l2"`
	SummaryL3LWW  LWWRegister  `json:"summary_l3"`
	Tags          *ORSet       `json:"tags"`
	Access        GCounter     `json:"access"`
	MaxImportance MaxRegister  `json:"max_importance"`
}

func marshalReplica(rep *Replica) ([]byte, error) {
	return json.Marshal(wireReplica{
		MemoryID:      rep.MemoryID,
		Clock:         rep.Clock,
		ContentLWW:    rep.ContentLWW,
		SummaryL1LWW:  rep.SummaryL1LWW,
		SummaryL2LWW:  rep.SummaryL2LWW,
		SummaryL3LWW:  rep.SummaryL3LWW,
		Tags:          rep.Tags,
		Access:        rep.Access,
		MaxImportance: rep.MaxImportance,
	})
}

func unmarshalReplica(data []byte) (*Replica, error) {
	var w wireReplica
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.Tags == nil {
		w.Tags = NewORSet()
	}
	if w.Access == nil {
		w.Access = GCounter{}
	}
	return &Replica{
		MemoryID:      w.MemoryID,
		Clock:         w.Clock,
		ContentLWW:    w.ContentLWW,
		SummaryL1LWW:  w.SummaryL1LWW,
		SummaryL2LWW:  w.SummaryL2LWW,
		SummaryL3LWW:  w.SummaryL3LWW,
		Tags:          w.Tags,
		Access:        w.Access,
		MaxImportance: w.MaxImportance,
	}, nil
}
