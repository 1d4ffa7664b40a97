package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/prxs-ai/agentkit/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/prxs-ai/agentkit", "agent")

// maxLineSize bounds a single request line.
const maxLineSize = 10 * 1024 * 1024

// Run drives the read-dispatch-write cycle until the input stream is
// exhausted. Blank lines are skipped; lines that do not decode as JSON and
// lines over maxLineSize are dropped without a response, since no correlation
// id is available for them, and the loop keeps serving. Responses are written
// one JSON line each, in request order, and are visible to a downstream
// reader before the next request is read.
func Run(ctx context.Context, in io.Reader, out io.Writer, h Handler) error {
	name := h.Describe().Name
	reader := bufio.NewReaderSize(in, 64*1024)

	for {
		line, truncated, rerr := readLine(reader)
		if truncated {
			metricskey.StatsLinesDropped.IncrCounter(1, name)
			logger.KV(xlog.DEBUG, "agent", name, "reason", "dropped_line", "err", "request line exceeds size limit")
		} else if !isBlank(line) {
			if err := handleLine(ctx, out, h, name, line); err != nil {
				return err
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return errors.Wrap(rerr, "failed to read input stream")
		}
	}
}

// readLine assembles the next input line from the reader's prefix chunks.
// A line longer than maxLineSize is consumed to its newline and reported as
// truncated, with its content discarded.
func readLine(r *bufio.Reader) (line []byte, truncated bool, err error) {
	for {
		chunk, isPrefix, rerr := r.ReadLine()
		if !truncated {
			if len(line)+len(chunk) > maxLineSize {
				line = nil
				truncated = true
			} else {
				line = append(line, chunk...)
			}
		}
		if rerr != nil {
			return line, truncated, rerr
		}
		if !isPrefix {
			return line, truncated, nil
		}
	}
}

func handleLine(ctx context.Context, out io.Writer, h Handler, name string, line []byte) error {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		metricskey.StatsLinesDropped.IncrCounter(1, name)
		logger.KV(xlog.DEBUG, "agent", name, "reason", "dropped_line", "err", err.Error())
		return nil
	}
	metricskey.StatsRequestsReceived.IncrCounter(1, name)

	resp := Dispatch(ctx, h, &req)

	bs, err := json.Marshal(resp)
	if err != nil {
		// a handler returned a result that cannot be serialized
		bs, _ = json.Marshal(NewErrorResponse(req.ID, "failed to encode result: "+err.Error()))
	}
	if _, err := out.Write(append(bs, '\n')); err != nil {
		return errors.Wrap(err, "failed to write response")
	}
	if f, ok := out.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return errors.Wrap(err, "failed to flush response")
		}
	}
	return nil
}

func isBlank(line []byte) bool {
	for _, b := range line {
		switch b {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}

// Dispatch resolves a request to exactly one response. The initialize path
// never fails; the compute path runs inside an error boundary so that no
// handler failure, including panics, escapes as anything other than a
// structured error response.
func Dispatch(ctx context.Context, h Handler, req *Request) *Response {
	switch req.Method {
	case MethodInitialize:
		return NewResultResponse(req.ID, h.Describe())
	case MethodCompute:
		name := h.Describe().Name
		started := time.Now()
		defer metricskey.PerfComputeCall.MeasureSince(started, name)

		result, err := compute(ctx, h, req.Params)
		if err != nil {
			metricskey.StatsComputeFailed.IncrCounter(1, name)
			logger.KV(xlog.DEBUG, "agent", name, "status", "compute_failed", "err", err.Error())
			return NewErrorResponse(req.ID, err.Error())
		}
		metricskey.StatsComputeSucceeded.IncrCounter(1, name)
		return NewResultResponse(req.ID, result)
	default:
		metricskey.StatsMethodNotFound.IncrCounter(1, h.Describe().Name)
		return NewErrorResponse(req.ID, ErrMethodNotFound)
	}
}

func compute(ctx context.Context, h Handler, raw json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("compute panic: %v", r)
		}
	}()

	params, err := Normalize(raw, h.Spec())
	if err != nil {
		return nil, err
	}
	return h.Compute(ctx, params)
}
