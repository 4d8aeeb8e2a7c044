package mixnet

import (
	"fmt"

	"github.com/quantegrity/quantegrity/types"
)

// Tally computes table S: for every pseudonym in R, the originating serial
// is looked up through the issuance records and the revealed code matched
// against that ballot's P row. The result is recomputed on every call and
// identical across calls with no intervening casts.
//
// The cross checks are defensive invariants. Cast and Audit make them
// unreachable; a failure means the tables are corrupt and sealing must not
// proceed.
func (t *Tables) Tally() (types.Tally, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	if len(t.pool) == 0 {
		return nil, ErrNotInitialized
	}
	tally := make(types.Tally, len(t.candidates))
	for _, cand := range t.candidates {
		tally[cand.ID] = 0
	}

	seenPseudonyms := make(map[string]bool, len(t.reveals))
	for _, reveal := range t.reveals {
		if seenPseudonyms[reveal.Pseudonym.String()] {
			return nil, fmt.Errorf("%w: pseudonym %s revealed twice", ErrTallyIntegrity, reveal.Pseudonym)
		}
		seenPseudonyms[reveal.Pseudonym.String()] = true

		serial, ok := t.byPseudo[reveal.Pseudonym.String()]
		if !ok {
			return nil, fmt.Errorf("%w: pseudonym %s has no issuance record", ErrTallyIntegrity, reveal.Pseudonym)
		}
		b := t.bySerial[serial]
		if b == nil || b.state != types.BallotCast {
			return nil, fmt.Errorf("%w: reveal for non-cast ballot %s", ErrTallyIntegrity, serial)
		}
		matched := false
		for _, cc := range b.row.Codes {
			if cc.Code.Equal(reveal.Code) {
				tally[cc.Candidate]++
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: revealed code %s not in ballot %s", ErrTallyIntegrity, reveal.Code, serial)
		}
	}
	if len(t.reveals) != t.castCount {
		return nil, fmt.Errorf("%w: %d reveals for %d cast ballots", ErrTallyIntegrity, len(t.reveals), t.castCount)
	}
	return tally, nil
}
