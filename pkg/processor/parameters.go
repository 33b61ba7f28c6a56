package processor

import (
	"fmt"
	"time"

	"github.com/nspcc-dev/network-map-service/pkg/changeset"
	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"go.uber.org/zap"
)

// createNetworkParametersTask implements spec §4.F start sequence step 2:
// if current-parameters already resolves, do nothing; otherwise store the
// template, signed, and point current-parameters at it.
func (p *Processor) createNetworkParametersTask() error {
	_, err := p.cfg.Stores.Text.Get(mapdoc.CurrentParametersKey)
	if err == nil {
		return nil // already bootstrapped
	}
	if err != store.ErrNotFound {
		return fmt.Errorf("read current-parameters pointer: %w", err)
	}

	template := mapdoc.Template(p.now())
	signed, err := mapdoc.SignNetworkParameters(template, p.cfg.Signer)
	if err != nil {
		return fmt.Errorf("sign template parameters: %w", err)
	}
	hash := signed.Hash()
	if err := p.storeSignedParameters(hash, signed); err != nil {
		return err
	}
	if err := p.cfg.Stores.Text.Put(mapdoc.CurrentParametersKey, hash.String()); err != nil {
		return fmt.Errorf("set current-parameters pointer: %w", err)
	}
	p.log.Info("bootstrapped network parameters", zap.String("hash", hash.String()), zap.Uint64("epoch", template.Epoch))
	return nil
}

func (p *Processor) storeSignedParameters(hash mapdoc.Hash, signed *mapdoc.SignedNetworkParameters) error {
	return p.cfg.Stores.Parameters.Put(hash.String(), store.EncodeEnvelope(signed.Raw, signed.Signature))
}

// currentParameters reads the current-parameters pointer and resolves it to
// a verified NetworkParameters document.
func (p *Processor) currentParameters() (mapdoc.Hash, *mapdoc.NetworkParameters, error) {
	hex, err := p.cfg.Stores.Text.Get(mapdoc.CurrentParametersKey)
	if err != nil {
		return mapdoc.Hash{}, nil, fmt.Errorf("read current-parameters pointer: %w", err)
	}
	hash, err := mapdoc.HashFromHex(hex)
	if err != nil {
		return mapdoc.Hash{}, nil, fmt.Errorf("parse current-parameters pointer: %w", err)
	}
	params, err := p.loadParameters(hash)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	return hash, params, nil
}

func (p *Processor) loadParameters(hash mapdoc.Hash) (*mapdoc.NetworkParameters, error) {
	blob, err := p.cfg.Stores.Parameters.Get(hash.String())
	if err != nil {
		return nil, fmt.Errorf("load parameters blob %s: %w", hash, err)
	}
	raw, sig, err := store.DecodeEnvelope(blob)
	if err != nil {
		return nil, err
	}
	signed := &mapdoc.SignedNetworkParameters{Raw: raw, Signature: sig}
	return signed.Verify(p.cfg.Signer)
}

// UpdateNetworkParameters enqueues spec §4.F's "updateNetworkParameters":
// transform is applied to the current parameters, the result is signed and
// stored, and either activated immediately (activation <= now, including
// the zero time, per the open-question resolution in DESIGN.md) or
// scheduled as a pending update.
func (p *Processor) UpdateNetworkParameters(transform func(*mapdoc.NetworkParameters) *mapdoc.NetworkParameters, description string, activation time.Time) <-chan error {
	return p.submit(func() error {
		return p.updateNetworkParameters(transform, description, activation)
	})
}

// ApplyChange is a convenience wrapper composing UpdateNetworkParameters
// with a pkg/changeset.Change, used by every admin operation in spec
// §4.H's table (AddNotary/RemoveNotary/AppendWhiteList/ReplaceWhiteList/
// ClearWhiteList).
func (p *Processor) ApplyChange(change changeset.Change, description string, activation time.Time) <-chan error {
	return p.UpdateNetworkParameters(func(params *mapdoc.NetworkParameters) *mapdoc.NetworkParameters {
		return changeset.Apply(params, change, p.now())
	}, description, activation)
}

func (p *Processor) updateNetworkParameters(transform func(*mapdoc.NetworkParameters) *mapdoc.NetworkParameters, description string, activation time.Time) error {
	_, current, err := p.currentParameters()
	if err != nil {
		return err
	}
	next := transform(current)

	signed, err := mapdoc.SignNetworkParameters(next, p.cfg.Signer)
	if err != nil {
		return fmt.Errorf("sign updated parameters: %w", err)
	}
	hash := signed.Hash()
	if err := p.storeSignedParameters(hash, signed); err != nil {
		return err
	}
	p.log.Info("change set applied",
		zap.Uint64("from_epoch", current.Epoch),
		zap.Uint64("to_epoch", next.Epoch),
		zap.String("description", description),
		zap.String("hash", hash.String()))

	now := p.now()
	if !activation.After(now) {
		if err := p.cfg.Stores.Text.Put(mapdoc.CurrentParametersKey, hash.String()); err != nil {
			return fmt.Errorf("advance current-parameters pointer: %w", err)
		}
		return p.createNetworkMap()
	}

	update := &mapdoc.ParametersUpdate{
		NewParametersHash: hash,
		Description:       description,
		UpdateDeadline:    activation,
	}
	if err := p.storePendingUpdate(update); err != nil {
		return err
	}
	p.scheduleNetworkMapRebuild()
	return nil
}

func (p *Processor) storePendingUpdate(update *mapdoc.ParametersUpdate) error {
	raw, err := update.Encode()
	if err != nil {
		return fmt.Errorf("encode pending update: %w", err)
	}
	if err := p.cfg.Stores.ParametersUpdate.Put(mapdoc.NextParamsUpdateKey, raw); err != nil {
		return fmt.Errorf("store pending update: %w", err)
	}
	return nil
}

func (p *Processor) loadPendingUpdate() (*mapdoc.ParametersUpdate, error) {
	raw, err := p.cfg.Stores.ParametersUpdate.GetOrNil(mapdoc.NextParamsUpdateKey)
	if err != nil {
		return nil, fmt.Errorf("load pending update: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	return mapdoc.DecodeParametersUpdate(raw)
}

func (p *Processor) clearPendingUpdate() error {
	return p.cfg.Stores.ParametersUpdate.Delete(mapdoc.NextParamsUpdateKey)
}

// applyNotaryDirectory implements the watcher's change callback (spec §4.F
// start sequence step 4): read the current JKS files, derive the notary
// set, and replace the parameters' notaries field via a single update with
// description "notaries changed".
func (p *Processor) applyNotaryDirectory() error {
	notaries, err := readNotaryDirectory(p.cfg.NotaryDir, p.cfg.NotaryPattern)
	if err != nil {
		return fmt.Errorf("read notary directory: %w", err)
	}
	return p.updateNetworkParameters(func(params *mapdoc.NetworkParameters) *mapdoc.NetworkParameters {
		next := params.Clone()
		next.Notaries = notaries
		next.Epoch = params.Epoch + 1
		next.ModifiedTime = p.now()
		return next
	}, "notaries changed", p.now().Add(p.cfg.ParamUpdateDelay))
}
