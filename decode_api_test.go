package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/ft8ldpc/ldpc"
)

func testAPI(t *testing.T) *DecodeAPI {
	t.Helper()
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	return NewDecodeAPI(config, nil, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleDecodeRoundTrip(t *testing.T) {
	api := testAPI(t)

	payload := make([]uint8, ldpc.PayloadBits)
	payload[0] = 1
	payload[76] = 1
	cw, err := ldpc.EncodePayload(payload)
	require.NoError(t, err)

	llr := make([]float32, ldpc.CodewordBits)
	for i, b := range cw {
		if b == 0 {
			llr[i] = 4.6
		} else {
			llr[i] = -4.6
		}
	}

	rec := postJSON(t, api.HandleDecode, DecodeRequest{LLR: llr})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.CRCValid)
	assert.Equal(t, ldpc.NumChecks, resp.ChecksPassed)
	assert.Equal(t, bitsToInts(cw), resp.Codeword)
	assert.Equal(t, "log", resp.Domain)
	assert.NotEmpty(t, resp.RequestID)
	assert.InDelta(t, 4.6, resp.LLRStats.MeanMagnitude, 1e-3)
}

func TestHandleDecodeProbabilityDomain(t *testing.T) {
	api := testAPI(t)

	llr := make([]float32, ldpc.CodewordBits)
	for i := range llr {
		llr[i] = 4.6
	}
	rec := postJSON(t, api.HandleDecode, DecodeRequest{LLR: llr, Domain: "probability"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "probability", resp.Domain)
}

func TestHandleDecodeBadRequests(t *testing.T) {
	api := testAPI(t)

	rec := postJSON(t, api.HandleDecode, DecodeRequest{LLR: make([]float32, 10)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, api.HandleDecode, DecodeRequest{LLR: make([]float32, ldpc.CodewordBits), Domain: "turbo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	getRec := httptest.NewRecorder()
	api.HandleDecode(getRec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, getRec.Code)
}

func TestHandleDecodeIterationClamping(t *testing.T) {
	api := testAPI(t)

	llr := make([]float32, ldpc.CodewordBits)
	for i := range llr {
		llr[i] = 4.6
	}
	rec := postJSON(t, api.HandleDecode, DecodeRequest{LLR: llr, Iterations: 1000000})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, api.config.Decoder.MaxIterations, resp.Iterations)
}

func TestHandleEncode(t *testing.T) {
	api := testAPI(t)

	msg := make([]int, ldpc.MessageBits)
	msg[0] = 1
	rec := postJSON(t, api.HandleEncode, EncodeRequest{Message: msg})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EncodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ldpc.NumChecks, resp.ChecksPassed)
	assert.Len(t, resp.Codeword, ldpc.CodewordBits)

	// payload form appends the CRC server-side
	rec = postJSON(t, api.HandleEncode, EncodeRequest{Payload: make([]int, ldpc.PayloadBits)})
	require.Equal(t, http.StatusOK, rec.Code)

	// bad lengths, non-bit values and ambiguous bodies are rejected
	rec = postJSON(t, api.HandleEncode, EncodeRequest{Message: make([]int, 5)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	badBits := make([]int, ldpc.MessageBits)
	badBits[10] = 2
	rec = postJSON(t, api.HandleEncode, EncodeRequest{Message: badBits})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = postJSON(t, api.HandleEncode, EncodeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = postJSON(t, api.HandleEncode, EncodeRequest{
		Message: make([]int, ldpc.MessageBits),
		Payload: make([]int, ldpc.PayloadBits),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCodeInfo(t *testing.T) {
	api := testAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/code", nil)
	rec := httptest.NewRecorder()
	api.HandleCodeInfo(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CodeInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ldpc.CodewordBits, resp.CodewordBits)
	assert.Equal(t, ldpc.NumChecks, resp.ParityChecks)
}
