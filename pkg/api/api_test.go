package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/nspcc-dev/network-map-service/pkg/processor"
	"github.com/nspcc-dev/network-map-service/pkg/signer"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) (*Adapter, *processor.Processor, *signer.Authority) {
	t.Helper()
	dir := t.TempDir()
	auth, err := signer.New()
	require.NoError(t, err)

	params, err := store.NewFSBlobStore(dir, mapdoc.CollectionSignedNetworkParameters)
	require.NoError(t, err)
	nodeInfo, err := store.NewFSBlobStore(dir, mapdoc.CollectionSignedNodeInfo)
	require.NoError(t, err)
	netMap, err := store.NewFSBlobStore(dir, mapdoc.CollectionSignedNetworkMap)
	require.NoError(t, err)
	paramsUpdate, err := store.NewFSBlobStore(dir, mapdoc.CollectionParametersUpdate)
	require.NoError(t, err)
	text, err := store.NewFSTextStore(dir, mapdoc.CollectionText)
	require.NoError(t, err)

	p, err := processor.New(processor.Config{
		Stores: processor.Stores{
			Parameters:       params,
			NodeInfo:         nodeInfo,
			NetworkMap:       netMap,
			ParametersUpdate: paramsUpdate,
			Text:             text,
		},
		Signer:           auth,
		VerifyIdentity:   signer.VerifyWithPublicKey,
		NotaryDir:        t.TempDir(),
		WatchInterval:    20 * time.Millisecond,
		NetworkMapDelay:  5 * time.Millisecond,
		ParamUpdateDelay: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	t.Cleanup(p.Shutdown)

	a := New(Config{
		Processor: p,
		Stores: Stores{
			Parameters:       params,
			NodeInfo:         nodeInfo,
			NetworkMap:       netMap,
			ParametersUpdate: paramsUpdate,
			Text:             text,
		},
		CacheTimeout:     2 * time.Second,
		ParamUpdateDelay: 50 * time.Millisecond,
	})
	return a, p, auth
}

func signNodeInfoBody(t *testing.T, name string) ([]byte, *mapdoc.SignedNodeInfo) {
	t.Helper()
	auth, err := signer.New()
	require.NoError(t, err)
	info := &mapdoc.NodeInfo{
		Identities: []mapdoc.NodeIdentity{{Name: name, PublicKey: auth.PublicKey()}},
		Addresses:  []string{"127.0.0.1:10000"},
	}
	raw, err := info.Encode()
	require.NoError(t, err)
	sig, err := auth.Sign(raw)
	require.NoError(t, err)
	signed := &mapdoc.SignedNodeInfo{Raw: raw, Signatures: [][]byte{sig}}
	body := store.EncodeEnvelope(raw, mapdoc.JoinSignatures(signed.Signatures))
	return body, signed
}

func TestHandleFetchMapReturnsCurrentMap(t *testing.T) {
	a, _, _ := newTestAdapter(t)

	req := httptest.NewRequest(http.MethodGet, "/network-map", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age=2")
	require.NotEmpty(t, rec.Body.Bytes())
}

func TestHandlePublishNodeThenFetchNodeInfo(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	body, signed := signNodeInfoBody(t, "CN=alice")

	req := httptest.NewRequest(http.MethodPost, "/network-map/publish", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	fetch := httptest.NewRequest(http.MethodGet, "/network-map/node-info/"+signed.Hash().String(), nil)
	fetchRec := httptest.NewRecorder()
	a.ServeHTTP(fetchRec, fetch)
	require.Equal(t, http.StatusOK, fetchRec.Code)
	require.NotEmpty(t, fetchRec.Body.Bytes())
}

func TestHandleFetchNodeInfoMissingIs404(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	var zero mapdoc.Hash

	req := httptest.NewRequest(http.MethodGet, "/network-map/node-info/"+zero.String(), nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePublishNodeNameConflictReturns409(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	body, _ := signNodeInfoBody(t, "CN=alice")

	req1 := httptest.NewRequest(http.MethodPost, "/network-map/publish", strings.NewReader(string(body)))
	rec1 := httptest.NewRecorder()
	a.ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusOK, rec1.Code)

	otherAuth, err := signer.New()
	require.NoError(t, err)
	info := &mapdoc.NodeInfo{Identities: []mapdoc.NodeIdentity{{Name: "CN=alice", PublicKey: otherAuth.PublicKey()}}}
	raw, err := info.Encode()
	require.NoError(t, err)
	sig, err := otherAuth.Sign(raw)
	require.NoError(t, err)
	conflictBody := store.EncodeEnvelope(raw, mapdoc.JoinSignatures([][]byte{sig}))

	req2 := httptest.NewRequest(http.MethodPost, "/network-map/publish", strings.NewReader(string(conflictBody)))
	rec2 := httptest.NewRecorder()
	a.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusConflict, rec2.Code)
}

func TestHandleNotariesAddAndList(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	body, _ := signNodeInfoBody(t, "CN=notary1")

	req := httptest.NewRequest(http.MethodPost, "/admin/api/notaries?validating=true", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The change is scheduled ParamUpdateDelay ahead; wait for activation.
	require.Eventually(t, func() bool {
		_, params, err := a.currentParameters()
		return err == nil && len(params.Notaries) == 1
	}, time.Second, 5*time.Millisecond)

	list := httptest.NewRequest(http.MethodGet, "/admin/api/notaries", nil)
	listRec := httptest.NewRecorder()
	a.ServeHTTP(listRec, list)
	require.Equal(t, http.StatusOK, listRec.Code)
	require.Contains(t, listRec.Body.String(), "CN=notary1")
	require.Contains(t, listRec.Body.String(), "true")
}

func TestHandleWhitelistAppendAndList(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	hash := mapdoc.HashBytes([]byte("attachment"))
	line := "com.example.Contract:" + hash.String() + "\n"

	req := httptest.NewRequest(http.MethodPost, "/admin/api/whitelist", strings.NewReader(line))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The change is scheduled ParamUpdateDelay ahead; wait for activation.
	require.Eventually(t, func() bool {
		_, params, err := a.currentParameters()
		return err == nil && params.Whitelist.Len() == 1
	}, time.Second, 5*time.Millisecond)

	list := httptest.NewRequest(http.MethodGet, "/admin/api/whitelist", nil)
	listRec := httptest.NewRecorder()
	a.ServeHTTP(listRec, list)
	require.Equal(t, http.StatusOK, listRec.Code)
	require.Contains(t, listRec.Body.String(), "com.example.Contract")
}

func TestHandleWhitelistBadInputReturns400(t *testing.T) {
	a, _, _ := newTestAdapter(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/api/whitelist", strings.NewReader("not-a-valid-line"))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCurrentParameters(t *testing.T) {
	a, _, _ := newTestAdapter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/current-parameters", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "\"hash\"")
}

func TestHandleHealthReportsStartedProcessor(t *testing.T) {
	a, _, _ := newTestAdapter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/health", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "\"healthy\":true")
}

func TestHandleParametersHistoryListsSeededEpoch(t *testing.T) {
	a, _, _ := newTestAdapter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/network-parameters/history", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "\"epoch\":1")
}

func TestHandleDeleteNode(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	body, signed := signNodeInfoBody(t, "CN=bob")

	req := httptest.NewRequest(http.MethodPost, "/network-map/publish", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	del := httptest.NewRequest(http.MethodDelete, "/admin/api/nodes/"+signed.Hash().String(), nil)
	delRec := httptest.NewRecorder()
	a.ServeHTTP(delRec, del)
	require.Equal(t, http.StatusOK, delRec.Code)
}
