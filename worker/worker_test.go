package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/foresturquhart/indexhook/search"
	"github.com/foresturquhart/indexhook/tasks"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks   []*asynq.Task
	options [][]asynq.Option
	err     error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.options = append(f.options, opts)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Payload: task.Payload()}, nil
}

func (f *fakeEnqueuer) Close() error {
	return nil
}

type writeCall struct {
	op    string
	index string
	id    string
}

type fakeWriter struct {
	calls []writeCall
	err   error
}

func (f *fakeWriter) Update(ctx context.Context, index string, id string, doc search.Document) error {
	f.calls = append(f.calls, writeCall{op: "update", index: index, id: id})
	return f.err
}

func (f *fakeWriter) Remove(ctx context.Context, index string, id string) error {
	f.calls = append(f.calls, writeCall{op: "remove", index: index, id: id})
	return f.err
}

type fakeIndex struct {
	docs    map[string]search.Document
	loadErr error
}

func (f *fakeIndex) ContentType() string { return "curator.person" }
func (f *fakeIndex) IndexName() string   { return "people" }

func (f *fakeIndex) Load(ctx context.Context, pk string) (search.Document, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	doc, ok := f.docs[pk]
	if !ok {
		return nil, search.ErrObjectNotFound
	}
	return doc, nil
}

func newTestProcessor(t *testing.T, idx *fakeIndex) (*Processor, *fakeWriter) {
	t.Helper()

	registry := search.NewRegistry()
	require.NoError(t, registry.Register(idx))

	writer := &fakeWriter{}
	return NewProcessor(registry, writer), writer
}

func TestProcessUpdate(t *testing.T) {
	p, writer := newTestProcessor(t, &fakeIndex{docs: map[string]search.Document{"1": {"name": "Ada"}}})

	require.NoError(t, p.Process(context.Background(), tasks.Request{Action: tasks.ActionUpdate, Identifier: "curator.person.1"}))
	assert.Equal(t, []writeCall{{op: "update", index: "people", id: "1"}}, writer.calls)
}

func TestProcessUpdateMissingObjectRemoves(t *testing.T) {
	p, writer := newTestProcessor(t, &fakeIndex{docs: map[string]search.Document{}})

	require.NoError(t, p.Process(context.Background(), tasks.Request{Action: tasks.ActionUpdate, Identifier: "curator.person.2"}))
	assert.Equal(t, []writeCall{{op: "remove", index: "people", id: "2"}}, writer.calls)
}

func TestProcessUpdateLoadError(t *testing.T) {
	p, writer := newTestProcessor(t, &fakeIndex{loadErr: errors.New("connection refused")})

	err := p.Process(context.Background(), tasks.Request{Action: tasks.ActionUpdate, Identifier: "curator.person.1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Empty(t, writer.calls)
}

func TestProcessDelete(t *testing.T) {
	p, writer := newTestProcessor(t, &fakeIndex{})

	require.NoError(t, p.Process(context.Background(), tasks.Request{Action: tasks.ActionDelete, Identifier: "curator.person.3"}))
	assert.Equal(t, []writeCall{{op: "remove", index: "people", id: "3"}}, writer.calls)
}

func TestProcessWriterErrorIsRetried(t *testing.T) {
	p, writer := newTestProcessor(t, &fakeIndex{})
	writer.err = errors.New("cluster unavailable")

	err := p.Process(context.Background(), tasks.Request{Action: tasks.ActionDelete, Identifier: "curator.person.3"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessSkipsUnrecoverable(t *testing.T) {
	p, writer := newTestProcessor(t, &fakeIndex{})

	tests := []tasks.Request{
		{Action: tasks.ActionUpdate, Identifier: "not-an-identifier"},
		{Action: tasks.ActionUpdate, Identifier: "curator.tag.1"},
		{Action: "touch", Identifier: "curator.person.1"},
	}

	for _, req := range tests {
		err := p.Process(context.Background(), req)
		assert.ErrorIs(t, err, asynq.SkipRetry, req.Identifier)
	}
	assert.Empty(t, writer.calls)
}

func TestSubmitAsync(t *testing.T) {
	client := &fakeEnqueuer{}
	w := &Worker{
		client:  client,
		options: Options{Queue: "search", MaxRetries: 3, Countdown: 2 * time.Second},
	}

	require.NoError(t, w.SubmitAsync(context.Background(), tasks.ActionDelete, "curator.person.1"))
	require.Len(t, client.tasks, 1)

	task := client.tasks[0]
	assert.Equal(t, string(tasks.TypeUpdateIndex), task.Type())

	var req tasks.Request
	require.NoError(t, json.Unmarshal(task.Payload(), &req))
	assert.Equal(t, tasks.Request{Action: tasks.ActionDelete, Identifier: "curator.person.1"}, req)

	values := map[asynq.OptionType]interface{}{}
	for _, opt := range client.options[0] {
		values[opt.Type()] = opt.Value()
	}
	assert.Equal(t, 3, values[asynq.MaxRetryOpt])
	assert.Equal(t, "search", values[asynq.QueueOpt])
	assert.Equal(t, 2*time.Second, values[asynq.ProcessInOpt])
}

func TestSubmitAsyncWithoutCountdown(t *testing.T) {
	client := &fakeEnqueuer{}
	w := &Worker{client: client, options: Options{Queue: "search"}}

	require.NoError(t, w.SubmitAsync(context.Background(), tasks.ActionUpdate, "curator.person.1"))

	for _, opt := range client.options[0] {
		assert.NotEqual(t, asynq.ProcessInOpt, opt.Type())
	}
}

func TestSubmitAsyncError(t *testing.T) {
	w := &Worker{client: &fakeEnqueuer{err: errors.New("redis down")}, options: Options{Queue: "search"}}

	err := w.SubmitAsync(context.Background(), tasks.ActionUpdate, "curator.person.1")
	assert.ErrorContains(t, err, "redis down")
}

func TestRegisterTasks(t *testing.T) {
	w := &Worker{client: &fakeEnqueuer{}}
	registry := tasks.NewRegistry()
	w.RegisterTasks(registry)

	handle, err := registry.Resolve(UpdateIndexTask)
	require.NoError(t, err)
	assert.Same(t, w, handle)
}

func TestHandleUpdateIndex(t *testing.T) {
	p, writer := newTestProcessor(t, &fakeIndex{docs: map[string]search.Document{"1": {"name": "Ada"}}})
	w := &Worker{processor: p}

	payload, err := json.Marshal(tasks.Request{Action: tasks.ActionUpdate, Identifier: "curator.person.1"})
	require.NoError(t, err)

	require.NoError(t, w.handleUpdateIndex(context.Background(), asynq.NewTask(string(tasks.TypeUpdateIndex), payload)))
	assert.Len(t, writer.calls, 1)

	err = w.handleUpdateIndex(context.Background(), asynq.NewTask(string(tasks.TypeUpdateIndex), []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
