package runner_test

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/calagent/calendar"
	"github.com/petasbytes/calagent/internal/runner"
	"github.com/petasbytes/calagent/tools"
)

// fakeTransport replays responses in order, repeating the last one, and
// records every request body.
type fakeTransport struct {
	mu        sync.Mutex
	status    int
	responses []string
	bodies    [][]byte
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()

	f.mu.Lock()
	i := len(f.bodies)
	f.bodies = append(f.bodies, b)
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	body := f.responses[i]
	status := f.status
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (f *fakeTransport) requests() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.bodies...)
}

func newClient(rt http.RoundTripper) *anthropic.Client {
	c := anthropic.NewClient(
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &c
}

// newRunner wires the calendar tools over an in-memory store.
func newRunner(t *testing.T, ft *fakeTransport) (*runner.Runner, *calendar.Service) {
	t.Helper()
	svc := calendar.NewService(calendar.NewMemStore())
	return runner.New(newClient(ft), tools.Registry(svc)), svc
}

const emptyReply = `{"id":"msg_0","type":"message","role":"assistant","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`

func textReply(s string) string {
	return `{"id":"msg_t","type":"message","role":"assistant","content":[{"type":"text","text":"` + s + `"}],"stop_reason":"end_turn","usage":{"input_tokens":12,"output_tokens":3}}`
}

func toolReply(id, name, input string) string {
	return `{"id":"msg_u","type":"message","role":"assistant","content":[{"type":"tool_use","id":"` + id + `","name":"` + name + `","input":` + input + `}],"stop_reason":"tool_use","usage":{"input_tokens":20,"output_tokens":8}}`
}
