package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chazu/bfvm/vm"
)

// Request ceilings for the eval endpoints. Programs and tapes beyond
// these are a caller mistake, not a capacity to honor.
const (
	maxRequestBytes = 1 << 20
	maxEvalTape     = 1 << 24
	maxEvalOutput   = 1 << 20
)

// EvalService executes and checks programs on behalf of HTTP clients.
type EvalService struct {
	worker *RunWorker
}

// NewEvalService creates an EvalService.
func NewEvalService(worker *RunWorker) *EvalService {
	return &EvalService{worker: worker}
}

// RunRequest is the body of POST /v1/run.
type RunRequest struct {
	Program     string `json:"program"`
	Input       []byte `json:"input,omitempty"`
	TapeSize    int    `json:"tapeSize,omitempty"`
	OutputLimit int    `json:"outputLimit,omitempty"`
}

// RunResponse reports a run outcome. Failures carry the engine's stable
// code name and the program position it was detected at.
type RunResponse struct {
	Success      bool   `json:"success"`
	Output       []byte `json:"output,omitempty"`
	BytesWritten int    `json:"bytesWritten"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Position     *int   `json:"position,omitempty"`
}

// CheckRequest is the body of POST /v1/check.
type CheckRequest struct {
	Program string `json:"program"`
}

// CheckResponse reports the first malformation in a program, if any.
type CheckResponse struct {
	Ok           bool   `json:"ok"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Position     *int   `json:"position,omitempty"`
}

func (s *EvalService) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Program == "" {
		http.Error(w, "program is required", http.StatusBadRequest)
		return
	}
	if req.TapeSize < 0 || req.TapeSize > maxEvalTape {
		http.Error(w, "tapeSize out of range", http.StatusBadRequest)
		return
	}
	if req.OutputLimit < 0 || req.OutputLimit > maxEvalOutput {
		http.Error(w, "outputLimit out of range", http.StatusBadRequest)
		return
	}

	opts := vm.DefaultOptions()
	if req.TapeSize > 0 {
		opts.TapeSize = req.TapeSize
	}
	if req.OutputLimit > 0 {
		opts.OutputLimit = req.OutputLimit
	}

	value, err := s.worker.Do(func() interface{} {
		res, runErr := vm.Run([]byte(req.Program), req.Input, opts)
		if runErr != nil {
			return runResponseError(runErr)
		}
		return &RunResponse{
			Success:      true,
			Output:       res.Output,
			BytesWritten: res.BytesWritten,
		}
	})
	if err != nil {
		log.Errorf("run worker: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, value)
}

func (s *EvalService) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp := CheckResponse{Ok: true}
	if err := vm.Check([]byte(req.Program)); err != nil {
		resp.Ok = false
		resp.ErrorCode = vm.CodeOf(err).String()
		resp.ErrorMessage = err.Error()
		if pos := errorPosition(err); pos >= 0 {
			resp.Position = &pos
		}
	}
	writeJSON(w, resp)
}

func runResponseError(err error) *RunResponse {
	resp := &RunResponse{
		Success:      false,
		ErrorCode:    vm.CodeOf(err).String(),
		ErrorMessage: err.Error(),
	}
	if pos := errorPosition(err); pos >= 0 {
		resp.Position = &pos
	}
	return resp
}

// errorPosition extracts the program position from an engine error, or -1.
func errorPosition(err error) int {
	var e *vm.Error
	if errors.As(err, &e) {
		return e.Pos
	}
	return -1
}

func writeJSON(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Errorf("encode response: %v", err)
	}
}
