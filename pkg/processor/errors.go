package processor

import "errors"

// ErrNameConflict is returned by AddNode when a published identity name
// already maps to a different owning public key (spec §4.F "addNode",
// §9 open question: an explicit rejection, never a nil-pointer panic).
var ErrNameConflict = errors.New("processor: name-conflict")

// ErrSignatureInvalid is returned by AddNode when signature verification
// of the inbound SignedNodeInfo fails (spec §7).
var ErrSignatureInvalid = errors.New("processor: signature-invalid")

// ErrFatalBootstrap is wrapped around any error encountered establishing
// the initial NetworkParameters at Start (spec §4.F, §7): the processor
// cannot run without them, so this aborts startup.
var ErrFatalBootstrap = errors.New("processor: fatal-bootstrap")
