// Package clienttest provides a scripted in-memory ResourceClient for tests.
package clienttest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cuemby/groupctl/pkg/client"
	"github.com/cuemby/groupctl/pkg/types"
)

// Method names used to script and inspect calls
const (
	MethodInspect      = "Inspect"
	MethodList         = "List"
	MethodCreate       = "SubmitCreate"
	MethodDelete       = "SubmitDelete"
	MethodResize       = "SubmitResize"
	MethodMapRoute     = "SubmitMapRoute"
	MethodUnmapRoute   = "SubmitUnmapRoute"
	MethodDeleteUpdate = "DeleteUpdate"
)

// Reply is one scripted answer
type Reply struct {
	Status int
	Body   []byte
	Err    error
	Panic  interface{}
}

// Status answers with an empty body
func Status(code int) Reply {
	return Reply{Status: code}
}

// Body answers 200 with body
func Body(body string) Reply {
	return Reply{Status: 200, Body: []byte(body)}
}

// Group answers 200 with g encoded as the API would
func Group(g types.Group) Reply {
	data, err := json.Marshal(g)
	if err != nil {
		panic(err)
	}
	return Reply{Status: 200, Body: data}
}

// GroupStatus answers 200 with a group named name in the given status
func GroupStatus(name, status string, current int) Reply {
	return Group(types.Group{
		Name:            name,
		Status:          status,
		NumberInstances: types.InstanceCounts{Desired: current, Max: current, CurrentSize: current},
	})
}

// Error answers with a transport error
func Error(err error) Reply {
	return Reply{Err: err}
}

// Call records one invocation
type Call struct {
	Method  string
	Name    string
	Timeout time.Duration
	Spec    client.CreateSpec
	Force   bool
	Desired int
	Host    string
	Domain  string
}

// Fake is a ResourceClient and UpdateClient whose answers are scripted per
// method. Replies are consumed in order and the last one repeats. An
// unscripted method fails with a permanent request error.
type Fake struct {
	mu      sync.Mutex
	replies map[string][]Reply
	calls   []Call
}

// New creates an empty fake
func New() *Fake {
	return &Fake{replies: make(map[string][]Reply)}
}

// On appends replies for method
func (f *Fake) On(method string, replies ...Reply) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[method] = append(f.replies[method], replies...)
	return f
}

// Calls returns the recorded invocations of method, or all of them when
// method is empty
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times method was invoked
func (f *Fake) Count(method string) int {
	return len(f.Calls(method))
}

func (f *Fake) answer(c Call) (*client.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	queue := f.replies[c.Method]
	var r Reply
	switch len(queue) {
	case 0:
		f.mu.Unlock()
		return nil, &client.RequestError{Op: c.Method, Err: errors.New("no reply scripted")}
	case 1:
		r = queue[0]
	default:
		r = queue[0]
		f.replies[c.Method] = queue[1:]
	}
	f.mu.Unlock()

	if r.Panic != nil {
		panic(r.Panic)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &client.Response{StatusCode: r.Status, Body: r.Body}, nil
}

func (f *Fake) Inspect(ctx context.Context, name string, timeout time.Duration) (*client.Response, error) {
	return f.answer(Call{Method: MethodInspect, Name: name, Timeout: timeout})
}

func (f *Fake) List(ctx context.Context, timeout time.Duration) (*client.Response, error) {
	return f.answer(Call{Method: MethodList, Timeout: timeout})
}

func (f *Fake) SubmitCreate(ctx context.Context, spec client.CreateSpec, timeout time.Duration) (*client.Response, error) {
	return f.answer(Call{Method: MethodCreate, Name: spec.Name, Spec: spec, Timeout: timeout})
}

func (f *Fake) SubmitDelete(ctx context.Context, name string, force bool, timeout time.Duration) (*client.Response, error) {
	return f.answer(Call{Method: MethodDelete, Name: name, Force: force, Timeout: timeout})
}

func (f *Fake) SubmitResize(ctx context.Context, name string, desired int, timeout time.Duration) (*client.Response, error) {
	return f.answer(Call{Method: MethodResize, Name: name, Desired: desired, Timeout: timeout})
}

func (f *Fake) SubmitMapRoute(ctx context.Context, hostname, domain, name string, timeout time.Duration) (*client.Response, error) {
	return f.answer(Call{Method: MethodMapRoute, Name: name, Host: hostname, Domain: domain, Timeout: timeout})
}

func (f *Fake) SubmitUnmapRoute(ctx context.Context, hostname, domain, name string, timeout time.Duration) (*client.Response, error) {
	return f.answer(Call{Method: MethodUnmapRoute, Name: name, Host: hostname, Domain: domain, Timeout: timeout})
}

func (f *Fake) DeleteUpdate(ctx context.Context, name string, timeout time.Duration) (*client.Response, error) {
	return f.answer(Call{Method: MethodDeleteUpdate, Name: name, Timeout: timeout})
}

var (
	_ client.ResourceClient = (*Fake)(nil)
	_ client.UpdateClient   = (*Fake)(nil)
)
