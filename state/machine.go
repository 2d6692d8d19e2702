package state

import (
	"errors"

	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/common"
)

var (
	ErrAlreadyApplying = errors.New("mint already in progress")
	ErrAlreadyMinted   = errors.New("asset already minted")
	ErrNotApplying     = errors.New("asset has no mint in progress")
	ErrNotFound        = errors.New("asset not found")
)

// Machine guards the status transitions of an asset. Every mutation is a
// single compare-and-set UPDATE; a failed CAS is classified afterwards by
// re-reading the row, so concurrent callers race safely and exactly one
// BeginApply wins.
type Machine struct {
	st *StateDB
}

func NewMachine(st *StateDB) *Machine {
	return &Machine{st: st}
}

// BeginApply moves the asset from unapplied to applying.
func (m *Machine) BeginApply(id uint64, owner string) error {
	ok, err := m.st.CompareAndSetStatus(id, owner, StatusUnapplied, StatusApplying, nil)
	if err != nil {
		return err
	}
	if ok {
		logger.WithFields(logger.Fields{
			"asset": id,
			"owner": owner,
		}).Info("mint apply started")
		return nil
	}

	return m.classify(id, owner, func(status MintStatus) error {
		switch status {
		case StatusApplying:
			return ErrAlreadyApplying
		case StatusMinted:
			return ErrAlreadyMinted
		default:
			// unapplied again means another caller won and rolled back
			// between our CAS and the re-read
			return ErrAlreadyApplying
		}
	})
}

// ConfirmMint moves the asset from applying to minted and records the
// on-chain outcome.
func (m *Machine) ConfirmMint(id uint64, owner string, outcome *MintOutcome) error {
	ok, err := m.st.CompareAndSetStatus(id, owner, StatusApplying, StatusMinted, outcome)
	if err != nil {
		return err
	}
	if ok {
		logger.WithFields(logger.Fields{
			"asset":       id,
			"owner":       owner,
			"tokenId":     outcome.TokenID,
			"blockNumber": outcome.BlockNumber,
		}).Info("mint confirmed")
		return nil
	}

	return m.classify(id, owner, func(status MintStatus) error {
		return ErrNotApplying
	})
}

// Rollback returns an applying asset to unapplied. Rolling back an asset
// that is not applying is a soft failure; callers log it and move on.
func (m *Machine) Rollback(id uint64, owner string) error {
	ok, err := m.st.CompareAndSetStatus(id, owner, StatusApplying, StatusUnapplied, nil)
	if err != nil {
		return err
	}
	if ok {
		logger.WithFields(logger.Fields{
			"asset": id,
			"owner": owner,
		}).Info("mint rolled back")
		return nil
	}

	return m.classify(id, owner, func(status MintStatus) error {
		return ErrNotApplying
	})
}

// Status returns a read-only snapshot of the asset's stage.
func (m *Machine) Status(id uint64) (MintStatus, error) {
	status, found, err := m.st.GetAssetStatus(id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	return status, nil
}

// classify re-reads the row after a failed CAS and maps what it finds to
// the caller's error. The re-read never mutates anything.
func (m *Machine) classify(id uint64, owner string, onStatus func(MintStatus) error) error {
	asset, found, err := m.st.GetAsset(id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	if asset.Owner != common.LowerAddr(owner) {
		return ErrNotFound
	}
	return onStatus(asset.Status)
}
