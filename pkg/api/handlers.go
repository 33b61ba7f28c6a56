package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nspcc-dev/network-map-service/pkg/changeset"
	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"go.uber.org/zap"
)

// handleFetchMap implements "Fetch network map" (spec §4.H): signed map
// bytes with Cache-Control: max-age=cacheTimeout.
func (a *Adapter) handleFetchMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	blob, err := a.cfg.Stores.NetworkMap.Get(mapdoc.LatestNetworkMapKey)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(a.cfg.CacheTimeout.Seconds())))
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(blob)
}

// handlePublishNode implements "Publish node" (spec §4.H): the body is a
// signed node-info envelope (store.EncodeEnvelope over the raw NodeInfo
// bytes and mapdoc.JoinSignatures of its identity signatures).
func (a *Adapter) handlePublishNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	body, err := readAll(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	signed, err := decodeSignedNodeInfo(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := <-a.cfg.Processor.AddNode(signed); err != nil {
		loggerFrom(r).Info("publish rejected", zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleAckParameters implements "Acknowledge parameters" (spec §4.H): logs
// the acknowledgement and returns 200 OK for any POST whose body is a signed
// envelope carrying a hex parameters hash; the acknowledgement is an
// informational signal, not a state mutation. Other methods get 405 and a
// malformed body gets 400.
func (a *Adapter) handleAckParameters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	body, err := readAll(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	raw, sig, err := store.DecodeEnvelope(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hash, err := mapdoc.HashFromHex(string(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	loggerFrom(r).Info("parameters acknowledged", zap.String("hash", hash.String()), zap.Int("signature_len", len(sig)))
	w.WriteHeader(http.StatusOK)
}

// handleFetchNodeInfo implements "Fetch node info" (spec §4.H).
func (a *Adapter) handleFetchNodeInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	hash, err := hashFromPath("/network-map/node-info/", r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	blob, err := a.cfg.Stores.NodeInfo.Get(hash.String())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(blob)
}

// handleFetchParameters implements "Fetch parameters" (spec §4.H).
func (a *Adapter) handleFetchParameters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	hash, err := hashFromPath("/network-map/network-parameters/", r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	blob, err := a.cfg.Stores.Parameters.Get(hash.String())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(blob)
}

// handleNotaries handles GET (list notaries) and POST (add notary) on
// /admin/api/notaries.
func (a *Adapter) handleNotaries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listNotaries(w, r)
	case http.MethodPost:
		a.postNotary(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func (a *Adapter) listNotaries(w http.ResponseWriter, r *http.Request) {
	_, params, err := a.currentParameters()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, params.Notaries)
}

// postNotary implements "Post notary (validating/non-validating)" (spec
// §4.H): body is a signed node-info envelope, the identity's distinguished
// name becomes the notary's identity; ?validating=true marks it a
// validating notary.
func (a *Adapter) postNotary(w http.ResponseWriter, r *http.Request) {
	body, err := readAll(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	signed, err := decodeSignedNodeInfo(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// Decode without signature verification: the admin API's caller is
	// trusted by virtue of reaching it (authentication/authorization is
	// an external collaborator per spec §1), and a notary's identity
	// signature isn't a self-registration the way addNode's is.
	info, err := mapdoc.DecodeNodeInfo(signed.Raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(info.Identities) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("node info has no identities"))
		return
	}
	validating := r.URL.Query().Get("validating") == "true"

	var lastErr error
	for _, id := range info.Identities {
		notary := mapdoc.NotaryInfo{Identity: id.Name, Validating: validating}
		deadline := time.Now().Add(a.cfg.ParamUpdateDelay)
		lastErr = <-a.cfg.Processor.ApplyChange(changeset.AddNotary(notary), "notary added via admin API", deadline)
		if lastErr != nil {
			break
		}
	}
	if lastErr != nil {
		writeError(w, statusFor(lastErr), lastErr)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleDeleteNotary implements "Delete notary" (spec §4.H):
// DELETE /admin/api/notaries/{nameHash}.
func (a *Adapter) handleDeleteNotary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	hash, err := hashFromPath("/admin/api/notaries/", r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	deadline := time.Now().Add(a.cfg.ParamUpdateDelay)
	if err := <-a.cfg.Processor.ApplyChange(changeset.RemoveNotary(hash), "notary removed via admin API", deadline); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleListNodes implements "List nodes" (spec §4.H): GET /admin/api/nodes.
func (a *Adapter) handleListNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	keys, err := a.cfg.Stores.NodeInfo.GetKeys()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, keys)
}

// handleDeleteNode implements "Delete node" (spec §4.H):
// DELETE /admin/api/nodes/{hash}.
func (a *Adapter) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	hash, err := hashFromPath("/admin/api/nodes/", r.URL.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := <-a.cfg.Processor.DeleteNode(hash); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleWhitelist handles GET (list), POST (append), PUT (replace), and
// DELETE (clear) on /admin/api/whitelist (spec §4.H). The request body for
// POST/PUT is plain text, one `"<fqn>:<sha256>"` entry per line.
func (a *Adapter) handleWhitelist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listWhitelist(w, r)
	case http.MethodPost:
		a.mutateWhitelist(w, r, changeset.AppendWhiteList, "whitelist appended via admin API")
	case http.MethodPut:
		a.mutateWhitelist(w, r, changeset.ReplaceWhiteList, "whitelist replaced via admin API")
	case http.MethodDelete:
		deadline := time.Now().Add(a.cfg.ParamUpdateDelay)
		if err := <-a.cfg.Processor.ApplyChange(changeset.ClearWhiteList(), "whitelist cleared via admin API", deadline); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func (a *Adapter) listWhitelist(w http.ResponseWriter, r *http.Request) {
	_, params, err := a.currentParameters()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if params.Whitelist == nil {
		writeJSON(w, map[string][]string{})
		return
	}
	out := make(map[string][]string, params.Whitelist.Len())
	for _, fqn := range params.Whitelist.FQNs() {
		hashes := params.Whitelist.Attachments(fqn)
		strs := make([]string, len(hashes))
		for i, h := range hashes {
			strs[i] = h.String()
		}
		out[fqn] = strs
	}
	writeJSON(w, out)
}

func (a *Adapter) mutateWhitelist(w http.ResponseWriter, r *http.Request, build func(map[string][]mapdoc.Hash) changeset.Change, description string) {
	body, err := readAll(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries, err := parseWhitelistBody(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	deadline := time.Now().Add(a.cfg.ParamUpdateDelay)
	if err := <-a.cfg.Processor.ApplyChange(build(entries), description, deadline); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleCurrentParameters implements "current-parameters inspection"
// (spec §6): GET /admin/api/current-parameters.
func (a *Adapter) handleCurrentParameters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	hash, params, err := a.currentParameters()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, struct {
		Hash       string                 `json:"hash"`
		Parameters *mapdoc.NetworkParameters `json:"parameters"`
	}{Hash: hash.String(), Parameters: params})
}

// handleParametersHistory implements the read-only epoch history listing:
// GET /admin/api/network-parameters/history. It walks every stored
// signed-network-parameters blob and reports each one's epoch, hash, and
// modification time, sorted by ascending epoch.
func (a *Adapter) handleParametersHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	all, err := a.cfg.Stores.Parameters.GetAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	type entry struct {
		Epoch        uint64    `json:"epoch"`
		Hash         string    `json:"hash"`
		ModifiedTime time.Time `json:"modifiedTime"`
	}
	out := make([]entry, 0, len(all))
	for key, blob := range all {
		raw, _, err := store.DecodeEnvelope(blob)
		if err != nil {
			loggerFrom(r).Warn("history: undecodable envelope", zap.String("key", key), zap.Error(err))
			continue
		}
		params, err := mapdoc.DecodeNetworkParameters(raw)
		if err != nil {
			loggerFrom(r).Warn("history: undecodable parameters", zap.String("key", key), zap.Error(err))
			continue
		}
		out = append(out, entry{Epoch: params.Epoch, Hash: key, ModifiedTime: params.ModifiedTime})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Epoch < out[j].Epoch })
	writeJSON(w, out)
}

// handleHealth implements the always-on readiness probe: GET
// /admin/api/health. It reports whether the processor's worker goroutine
// is alive and whether the last createNetworkMap rebuild succeeded.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	healthy := a.cfg.Processor != nil && a.cfg.Processor.Healthy()
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Healthy bool `json:"healthy"`
	}{Healthy: healthy})
}

func (a *Adapter) currentParameters() (mapdoc.Hash, *mapdoc.NetworkParameters, error) {
	hex, err := a.cfg.Stores.Text.Get(mapdoc.CurrentParametersKey)
	if err != nil {
		return mapdoc.Hash{}, nil, fmt.Errorf("read current-parameters pointer: %w", err)
	}
	hash, err := mapdoc.HashFromHex(hex)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	blob, err := a.cfg.Stores.Parameters.Get(hash.String())
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	raw, _, err := store.DecodeEnvelope(blob)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	params, err := mapdoc.DecodeNetworkParameters(raw)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	return hash, params, nil
}

func decodeSignedNodeInfo(body []byte) (*mapdoc.SignedNodeInfo, error) {
	raw, sigBlob, err := store.DecodeEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("decode signed node info envelope: %w", err)
	}
	sigs, err := mapdoc.SplitSignatures(sigBlob)
	if err != nil {
		return nil, fmt.Errorf("decode node info signatures: %w", err)
	}
	return &mapdoc.SignedNodeInfo{Raw: raw, Signatures: sigs}, nil
}

func parseWhitelistBody(body []byte) (map[string][]mapdoc.Hash, error) {
	entries := make(map[string][]mapdoc.Hash)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad-input: line %d: expected \"<fqn>:<sha256>\"", lineNum)
		}
		fqn := strings.TrimSpace(parts[0])
		hash, err := mapdoc.HashFromHex(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("bad-input: line %d: %w", lineNum, err)
		}
		entries[fqn] = append(entries[fqn], hash)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}
