package model

// Group is an ordered sequence of records believed to describe one
// clinician. Member order follows input order.
type Group []Record

// Representative returns the first member, which all match decisions are
// made against.
func (g Group) Representative() Record {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// Clone copies the group and each member.
func (g Group) Clone() Group {
	out := make(Group, len(g))
	for i, r := range g {
		out[i] = r.Clone()
	}
	return out
}

// Result is one reconciled clinician: scored members plus their consensus.
type Result struct {
	Members   Group  `json:"members" yaml:"members"`
	Consensus Record `json:"consensus" yaml:"consensus"`
}

// WithConsensus returns the members followed by the consensus record, the
// shape persisted by callers that store consensus alongside its group.
func (r Result) WithConsensus() Group {
	out := make(Group, 0, len(r.Members)+1)
	out = append(out, r.Members...)
	return append(out, r.Consensus)
}
