package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/cwsl/ft8ldpc/ldpc"
)

// DecodeAPI serves the JSON decode/encode endpoints
type DecodeAPI struct {
	config    *Config
	metrics   *DecodeMetrics
	publisher *MQTTPublisher
}

// NewDecodeAPI creates the API handler
func NewDecodeAPI(config *Config, metrics *DecodeMetrics, publisher *MQTTPublisher) *DecodeAPI {
	return &DecodeAPI{
		config:    config,
		metrics:   metrics,
		publisher: publisher,
	}
}

// DecodeRequest is a decode job: 174 log-likelihoods of zero
type DecodeRequest struct {
	LLR        []float32 `json:"llr"`
	Iterations int       `json:"iterations,omitempty"` // 0 = server default
	Domain     string    `json:"domain,omitempty"`     // "log", "probability" or "" for default
}

// LLRStats summarizes the soft-input confidence of a decode request
type LLRStats struct {
	MeanMagnitude   float64 `json:"mean_magnitude"`
	StdDevMagnitude float64 `json:"stddev_magnitude"`
	MinMagnitude    float64 `json:"min_magnitude"`
	MaxMagnitude    float64 `json:"max_magnitude"`
}

// DecodeResponse is the decode result. Bit vectors go over the wire as JSON
// arrays of 0/1, not byte slices, which encoding/json would base64
type DecodeResponse struct {
	RequestID    string   `json:"request_id"`
	Codeword     []int    `json:"codeword"`
	Message      []int    `json:"message"` // Systematic 91-bit prefix (77 payload + 14 CRC)
	ChecksPassed int      `json:"checks_passed"`
	ChecksTotal  int      `json:"checks_total"`
	Success      bool     `json:"success"`
	CRCValid     bool     `json:"crc_valid"`
	Domain       string   `json:"domain"`
	Iterations   int      `json:"iterations"` // Budget used for the attempt
	ElapsedMs    float64  `json:"elapsed_ms"`
	LLRStats     LLRStats `json:"llr_stats"`
	Timestamp    string   `json:"timestamp"`
}

// EncodeRequest carries either a 91-bit message or a 77-bit payload
// (the server appends the CRC to a payload)
type EncodeRequest struct {
	Message []int `json:"message,omitempty"`
	Payload []int `json:"payload,omitempty"`
}

// EncodeResponse is the encode result
type EncodeResponse struct {
	Codeword     []int `json:"codeword"`
	ChecksPassed int   `json:"checks_passed"`
}

func bitsToInts(bits []uint8) []int {
	out := make([]int, len(bits))
	for i, b := range bits {
		out[i] = int(b)
	}
	return out
}

func intsToBits(vals []int) ([]uint8, error) {
	bits := make([]uint8, len(vals))
	for i, v := range vals {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("bit %d is %d, want 0 or 1", i, v)
		}
		bits[i] = uint8(v)
	}
	return bits, nil
}

// CodeInfoResponse describes the fixed code for UIs
type CodeInfoResponse struct {
	Name           string `json:"name"`
	CodewordBits   int    `json:"codeword_bits"`
	MessageBits    int    `json:"message_bits"`
	PayloadBits    int    `json:"payload_bits"`
	ParityChecks   int    `json:"parity_checks"`
	MaxCheckDegree int    `json:"max_check_degree"`
	VarDegree      int    `json:"var_degree"`
	CRCBits        int    `json:"crc_bits"`
	CRCPolynomial  int    `json:"crc_polynomial"`
}

var errUnknownDomain = errors.New("domain must be \"log\" or \"probability\"")

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// runDecode applies the configured iteration and domain policy to one decode
// job. Shared between the HTTP API and the WebSocket stream.
func runDecode(config *Config, metrics *DecodeMetrics, req *DecodeRequest) (*DecodeResponse, error) {
	iters := req.Iterations
	if iters <= 0 {
		iters = config.Decoder.DefaultIterations
	}
	if iters > config.Decoder.MaxIterations {
		iters = config.Decoder.MaxIterations
	}

	domain := req.Domain
	if domain == "" {
		domain = config.Decoder.DefaultDomain
	}

	start := time.Now()
	var (
		cw    []uint8
		score int
		err   error
	)
	switch domain {
	case "log":
		cw, score, err = ldpc.DecodeLog(req.LLR, iters)
	case "probability":
		cw, score, err = ldpc.DecodeProbability(req.LLR, iters)
	default:
		return nil, errUnknownDomain
	}
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	success := score == ldpc.NumChecks
	crcValid := false
	if success {
		crcValid, _ = ldpc.CheckCRC(cw[:ldpc.MessageBits])
	}

	if metrics != nil {
		metrics.RecordDecode(domain, success, crcValid, score, elapsed)
	}

	return &DecodeResponse{
		RequestID:    uuid.New().String(),
		Codeword:     bitsToInts(cw),
		Message:      bitsToInts(cw[:ldpc.MessageBits]),
		ChecksPassed: score,
		ChecksTotal:  ldpc.NumChecks,
		Success:      success,
		CRCValid:     crcValid,
		Domain:       domain,
		Iterations:   iters,
		ElapsedMs:    float64(elapsed.Microseconds()) / 1000.0,
		LLRStats:     computeLLRStats(req.LLR),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// HandleDecode handles POST /api/decode
func (api *DecodeAPI) HandleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	resp, err := runDecode(api.config, api.metrics, &req)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if api.publisher != nil && resp.Success {
		api.publisher.PublishDecode(resp)
	}
	if DebugMode {
		log.Printf("LDPC: decode %s domain=%s score=%d/%d crc=%v in %.2fms",
			resp.RequestID, resp.Domain, resp.ChecksPassed, ldpc.NumChecks, resp.CRCValid, resp.ElapsedMs)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// computeLLRStats summarizes LLR magnitudes (decode confidence indicator)
func computeLLRStats(llr []float32) LLRStats {
	if len(llr) == 0 {
		return LLRStats{}
	}
	mags := make([]float64, len(llr))
	minMag, maxMag := -1.0, 0.0
	for i, v := range llr {
		m := float64(v)
		if m < 0 {
			m = -m
		}
		mags[i] = m
		if m > maxMag {
			maxMag = m
		}
		if minMag < 0 || m < minMag {
			minMag = m
		}
	}
	mean, std := stat.MeanStdDev(mags, nil)
	return LLRStats{
		MeanMagnitude:   mean,
		StdDevMagnitude: std,
		MinMagnitude:    minMag,
		MaxMagnitude:    maxMag,
	}
}

// HandleEncode handles POST /api/encode
func (api *DecodeAPI) HandleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	var input []int
	switch {
	case req.Message != nil && req.Payload != nil:
		writeJSONError(w, http.StatusBadRequest, "provide either message or payload, not both")
		return
	case req.Message != nil:
		input = req.Message
	case req.Payload != nil:
		input = req.Payload
	default:
		writeJSONError(w, http.StatusBadRequest, "message or payload required")
		return
	}

	bits, err := intsToBits(input)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var cw []uint8
	if req.Message != nil {
		cw, err = ldpc.Encode(bits)
	} else {
		cw, err = ldpc.EncodePayload(bits)
	}
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(EncodeResponse{
		Codeword:     bitsToInts(cw),
		ChecksPassed: ldpc.Check(cw),
	})
}

// HandleCodeInfo handles GET /api/code
func (api *DecodeAPI) HandleCodeInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(CodeInfoResponse{
		Name:           "FT8 LDPC(174,91)",
		CodewordBits:   ldpc.CodewordBits,
		MessageBits:    ldpc.MessageBits,
		PayloadBits:    ldpc.PayloadBits,
		ParityChecks:   ldpc.NumChecks,
		MaxCheckDegree: ldpc.MaxCheckDegree,
		VarDegree:      ldpc.VarDegree,
		CRCBits:        ldpc.CRCBits,
		CRCPolynomial:  ldpc.CRCPolynomial,
	})
}
