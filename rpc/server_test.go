package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"pegvault/core/events"
	"pegvault/native/oracle"
	"pegvault/native/reserve"
	"pegvault/native/token"
	"pegvault/state"
	"pegvault/storage"
)

const (
	ownerHex   = "0x0000000000000000000000000000000000000001"
	custodyHex = "0x0000000000000000000000000000000000000003"
	aliceHex   = "0x000000000000000000000000000000000000000a"
	bobHex     = "0x000000000000000000000000000000000000000b"
	assetAHex  = "0x00000000000000000000000000000000000000a1"
	assetBHex  = "0x00000000000000000000000000000000000000a2"

	adminToken = "test-admin-token"
)

type serverFixture struct {
	server  *httptest.Server
	engine  *reserve.Engine
	manager *state.Manager
}

func mustAddr(t *testing.T, value string) [20]byte {
	t.Helper()
	addr, err := parseAddress(value)
	require.NoError(t, err)
	return addr
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	store := reserve.NewStore(manager)
	engine := reserve.NewEngine(store)

	engine.SetEmitter(events.NewRecorder(64))
	engine.SetCustody(mustAddr(t, custodyHex))
	engine.SetStableToken(token.NewLedger(manager, "PEG"))
	engine.SetCollateralResolver(reserve.CollateralResolverFunc(func(asset [20]byte) (reserve.CollateralAsset, error) {
		return token.NewLedger(manager, token.AssetSymbol(asset)), nil
	}))

	unit, err := oracle.ParseFixed("unit", "1")
	require.NoError(t, err)
	require.NoError(t, engine.RegisterRateSource("unit", unit))

	owner := mustAddr(t, ownerHex)
	require.NoError(t, engine.EnsureParams(reserve.Params{
		Owner:        owner,
		Beneficiary:  mustAddr(t, bobHex),
		GlobalTaxBps: 100,
	}))

	_, err = engine.RegisterReserve(owner, reserve.Reserve{
		Asset:           mustAddr(t, assetAHex),
		MintInterestBps: 500,
		BurnTaxBps:      200,
		VestingPeriod:   100,
		RateSource:      "unit",
		Whitelisted:     true,
	})
	require.NoError(t, err)

	// Fund alice with collateral for mints.
	collateral := token.NewLedger(manager, token.AssetSymbol(mustAddr(t, assetAHex)))
	require.NoError(t, collateral.Mint(mustAddr(t, aliceHex), big.NewInt(5000)))

	auth, err := NewAuthenticator(adminToken)
	require.NoError(t, err)
	srv, err := NewServer(":0", engine, events.NewRecorder(64), auth, slog.Default())
	require.NoError(t, err)

	fixture := &serverFixture{
		server:  httptest.NewServer(srv.Handler()),
		engine:  engine,
		manager: manager,
	}
	t.Cleanup(fixture.server.Close)
	return fixture
}

func (f *serverFixture) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]json.RawMessage{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func stringField(t *testing.T, payload map[string]json.RawMessage, field string) string {
	t.Helper()
	raw, ok := payload[field]
	require.True(t, ok, "missing field %q in %v", field, payload)
	var value string
	require.NoError(t, json.Unmarshal(raw, &value))
	return value
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)
	resp, payload := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", stringField(t, payload, "status"))
}

func TestMintAndQueryEndpoints(t *testing.T) {
	f := newServerFixture(t)

	resp, payload := f.do(t, http.MethodPost, "/v1/mint", "", map[string]string{
		"caller": aliceHex,
		"asset":  assetAHex,
		"amount": "1000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1000", stringField(t, payload, "totalMinted"))

	resp, payload = f.do(t, http.MethodGet, "/v1/freereserve/"+assetAHex, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "20", stringField(t, payload, "balance"))

	resp, payload = f.do(t, http.MethodGet, "/v1/vesting/"+aliceHex, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "50", stringField(t, payload, "amount"))
}

func TestMintEstimateEndpoint(t *testing.T) {
	f := newServerFixture(t)

	resp, payload := f.do(t, http.MethodPost, "/v1/mint/estimate", "", map[string]string{
		"asset":   assetAHex,
		"account": aliceHex,
		"amount":  "1000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1000", stringField(t, payload, "requiredCollateral"))
	require.Equal(t, "50", stringField(t, payload, "vestingAmount"))

	// The estimate must not have mutated anything.
	balance, err := f.engine.FreeReserveOf(mustAddr(t, assetAHex))
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}

func TestErrorMapping(t *testing.T) {
	f := newServerFixture(t)

	// Unknown reserve.
	resp, _ := f.do(t, http.MethodPost, "/v1/mint", "", map[string]string{
		"caller": aliceHex,
		"asset":  assetBHex,
		"amount": "10",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Malformed address.
	resp, _ = f.do(t, http.MethodPost, "/v1/mint", "", map[string]string{
		"caller": "nope",
		"asset":  assetAHex,
		"amount": "10",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Non-whitelisted burn.
	owner := mustAddr(t, ownerHex)
	_, err := f.engine.RegisterReserve(owner, reserve.Reserve{
		Asset:      mustAddr(t, assetBHex),
		RateSource: "unit",
	})
	require.NoError(t, err)
	resp, _ = f.do(t, http.MethodPost, "/v1/burn", "", map[string]string{
		"caller": aliceHex,
		"asset":  assetBHex,
		"amount": "10",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminAuth(t *testing.T) {
	f := newServerFixture(t)

	body := map[string]string{"asset": assetAHex, "to": bobHex, "amount": "1"}

	resp, _ := f.do(t, http.MethodPost, "/v1/admin/withdraw", "", body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/v1/admin/withdraw", "wrong-token", body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminWithdrawFlow(t *testing.T) {
	f := newServerFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/v1/mint", "", map[string]string{
		"caller": aliceHex,
		"asset":  assetAHex,
		"amount": "1000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// More than the 20 accumulated.
	resp, _ = f.do(t, http.MethodPost, "/v1/admin/withdraw", adminToken, map[string]string{
		"asset": assetAHex, "to": bobHex, "amount": "25",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, payload := f.do(t, http.MethodPost, "/v1/admin/withdraw", adminToken, map[string]string{
		"asset": assetAHex, "to": bobHex, "amount": "20",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "20", stringField(t, payload, "stableAmount"))
	receiptID := stringField(t, payload, "receiptId")
	require.NotEmpty(t, receiptID)

	resp, payload = f.do(t, http.MethodGet, "/v1/admin/withdrawals", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var receipts []receiptView
	require.NoError(t, json.Unmarshal(payload["withdrawals"], &receipts))
	require.Len(t, receipts, 1)
	require.Equal(t, receiptID, receipts[0].ReceiptID)
}

func TestAdminRegisterReserve(t *testing.T) {
	f := newServerFixture(t)

	resp, payload := f.do(t, http.MethodPost, "/v1/admin/reserves", adminToken, registerReserveRequest{
		Asset:           assetBHex,
		MintInterestBps: 100,
		RateSource:      "unit",
		Whitelisted:     true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "unit", stringField(t, payload, "rateSource"))

	resp, _ = f.do(t, http.MethodGet, fmt.Sprintf("/v1/reserves/%s", assetBHex), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
