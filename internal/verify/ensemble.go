package verify

import (
	"context"
	"fmt"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/nli"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecordWriter persists verification records
type RecordWriter interface {
	Append(record model.VerificationRecord) error
}

// VoteObserver is told about every verdict the ensemble reaches
type VoteObserver interface {
	ObserveVerdict(classifier string, pass bool)
	ObserveVote(success bool)
}

type member struct {
	id       model.ClassifierID
	verifier *ChainVerifier
}

// EnsembleVerifier runs one ChainVerifier per classifier and takes a strict
// majority of their verdicts
type EnsembleVerifier struct {
	members  []member
	position map[model.ClassifierID]int
	roster   model.Roster
	observer VoteObserver
	logger   *zap.Logger
}

// NewEnsembleVerifier builds the ensemble once. The classifier order fixes
// the position of every verdict in the records it produces.
func NewEnsembleVerifier(classifiers []nli.Classifier, threshold float64, logger *zap.Logger) (*EnsembleVerifier, error) {
	if len(classifiers) == 0 {
		return nil, fmt.Errorf("ensemble needs at least one classifier")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &EnsembleVerifier{
		members:  make([]member, 0, len(classifiers)),
		position: make(map[model.ClassifierID]int, len(classifiers)),
		roster:   make(model.Roster, 0, len(classifiers)),
		logger:   logger,
	}
	for i, c := range classifiers {
		if c.Scorer == nil {
			return nil, fmt.Errorf("classifier %s has no scorer", c.ID)
		}
		if _, dup := e.position[c.ID]; dup {
			return nil, fmt.Errorf("duplicate classifier %s", c.ID)
		}
		e.position[c.ID] = i
		e.roster = append(e.roster, c.ID)
		e.members = append(e.members, member{id: c.ID, verifier: NewChainVerifier(c.Scorer, threshold)})
	}
	return e, nil
}

// WithObserver attaches a vote observer
func (e *EnsembleVerifier) WithObserver(observer VoteObserver) *EnsembleVerifier {
	e.observer = observer
	return e
}

// Roster returns the classifier order of every record's classifications
func (e *EnsembleVerifier) Roster() model.Roster {
	roster := make(model.Roster, len(e.roster))
	copy(roster, e.roster)
	return roster
}

// Verify runs every classifier over proof and builds its record. Any
// classifier failure fails the whole proof.
func (e *EnsembleVerifier) Verify(ctx context.Context, proof model.Proof) (model.VerificationRecord, error) {
	if err := checkProof(proof); err != nil {
		return model.VerificationRecord{}, err
	}

	classifications := make([]bool, len(e.members))
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range e.members {
		g.Go(func() error {
			pass, err := m.verifier.Verify(gctx, proof)
			if err != nil {
				return fmt.Errorf("classifier %s: %w", m.id, err)
			}
			// distinct index per goroutine
			classifications[e.position[m.id]] = pass
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.VerificationRecord{}, err
	}

	success := Majority(classifications)
	if e.observer != nil {
		for i, pass := range classifications {
			e.observer.ObserveVerdict(string(e.roster[i]), pass)
		}
		e.observer.ObserveVote(success)
	}

	e.logger.Debug("proof verified",
		zap.Int("id", proof.ID),
		zap.String("prompt_type", string(proof.PromptType)),
		zap.Bools("classifications", classifications),
		zap.Bool("success", success),
	)

	return model.VerificationRecord{
		ID:              proof.ID,
		PromptType:      proof.PromptType,
		Classifications: classifications,
		Success:         success,
		Proof:           model.ProofBody{Steps: append([]string(nil), proof.Steps...)},
	}, nil
}

// WriteResult appends record to w unchanged
func (e *EnsembleVerifier) WriteResult(w RecordWriter, record model.VerificationRecord) error {
	return w.Append(record)
}

// Majority reports whether at least ceil(N/2) votes are true. An even
// roster accepts on a tie.
func Majority(votes []bool) bool {
	if len(votes) == 0 {
		return false
	}
	trues := 0
	for _, v := range votes {
		if v {
			trues++
		}
	}
	return trues >= (len(votes)+1)/2
}
