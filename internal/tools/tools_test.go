package tools

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/HendryAvila/specforge/internal/pipeline"
	"github.com/HendryAvila/specforge/internal/spec"
	"github.com/HendryAvila/specforge/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Test doubles ---

// fakeStore is an in-memory store.Store for handler tests.
type fakeStore struct {
	docs      map[string]*spec.Specification
	versions  map[string]int64
	summaries []store.Summary
	saved     *spec.Specification
	savedVer  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]*spec.Specification{}, versions: map[string]int64{}}
}

func (f *fakeStore) Get(ctx context.Context, id string) (*spec.Specification, int64, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, 0, store.ErrNotFound
	}
	return doc.Clone(), f.versions[id], nil
}

func (f *fakeStore) Save(ctx context.Context, id string, s *spec.Specification, expectedVersion int64, meta store.Metadata) (int64, error) {
	if f.versions[id] != expectedVersion {
		return 0, store.ErrVersionConflict
	}
	f.docs[id] = s.Clone()
	f.versions[id] = expectedVersion + 1
	f.saved = s
	f.savedVer = f.versions[id]
	return f.versions[id], nil
}

func (f *fakeStore) List(ctx context.Context) ([]store.Summary, error) {
	return f.summaries, nil
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, runID, stage string, payload []byte) error {
	return nil
}

func (f *fakeStore) LatestSnapshot(ctx context.Context, runID string) (string, []byte, error) {
	return "", nil, store.ErrNotFound
}

// fakeRunner captures the pipeline request and returns a canned result.
type fakeRunner struct {
	req    pipeline.Request
	result *pipeline.Result
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) *pipeline.Result {
	f.req = req
	return f.result
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func storedDoc() *spec.Specification {
	return &spec.Specification{
		ID:     "doc1",
		Name:   "Orders",
		Domain: "commerce",
		Models: []spec.Model{spec.NewModel("Order")},
		Actions: []spec.Action{{
			ID:        "action_1",
			Name:      "CreateOrder",
			Operation: spec.OpCreate,
			Source:    spec.DataSource{Models: []spec.ModelSource{{Model: "Order"}}},
			Execution: spec.Execution{Prompt: "p"},
			Results:   spec.Results{Model: "Order"},
		}},
		Schedules: []spec.Schedule{{
			ID:        "schedule_1",
			Name:      "DailyReview",
			Operation: spec.OpUpdate,
			Source:    spec.DataSource{Models: []spec.ModelSource{{Model: "Order"}}},
			Execution: spec.Execution{Prompt: "p"},
			Results:   spec.Results{Model: "Order", IdentifierField: "id"},
			Interval:  spec.Interval{Pattern: "0 9 * * *", Active: true},
		}},
	}
}

// --- Helpers ---

func TestSplitNames(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"Order", []string{"Order"}},
		{"Order, Customer ,, ", []string{"Order", "Customer"}},
	}
	for _, c := range cases {
		if got := splitNames(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitNames(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

// --- spec_generate ---

func TestGenerateTool_RunsPipeline(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{
		Success:          true,
		State:            pipeline.RunSucceeded,
		RunID:            "run-1",
		SpecID:           "doc1",
		Version:          1,
		Score:            87,
		ValidationPassed: true,
		Spec:             storedDoc(),
	}}
	tool := NewGenerateTool(runner)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"command": "track orders",
		"spec_id": "doc1",
	}))
	if err != nil {
		t.Fatal(err)
	}

	if runner.req.Command != "track orders" || runner.req.SpecID != "doc1" {
		t.Errorf("pipeline request = %+v", runner.req)
	}
	text := resultText(res)
	for _, want := range []string{"Specification Generated", "87/100", "run-1", "passed"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateTool_RequiresCommand(t *testing.T) {
	tool := NewGenerateTool(&fakeRunner{})
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"command": "  "}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("blank command accepted")
	}
}

func TestGenerateTool_ReportsFailure(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{
		State:  pipeline.RunFailed,
		RunID:  "run-2",
		Errors: []string{"stage models failed after 3 attempts: oracle timeout"},
	}}
	tool := NewGenerateTool(runner)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"command": "x"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(res)
	if !strings.Contains(text, "Generation Failed") || !strings.Contains(text, "3 attempts") {
		t.Errorf("failure report incomplete:\n%s", text)
	}
}

// --- spec_get ---

func TestGetTool(t *testing.T) {
	st := newFakeStore()
	st.docs["doc1"] = storedDoc()
	st.versions["doc1"] = 3
	tool := NewGetTool(st)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"spec_id": "doc1"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(res)
	for _, want := range []string{"Orders", "Version 3", `"CreateOrder"`} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

func TestGetTool_NotFound(t *testing.T) {
	tool := NewGetTool(newFakeStore())
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"spec_id": "ghost"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("unknown id did not produce an error result")
	}
}

// --- spec_list ---

func TestListTool_Empty(t *testing.T) {
	tool := NewListTool(newFakeStore())
	res, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(res), "No specifications") {
		t.Errorf("empty listing = %q", resultText(res))
	}
}

func TestListTool(t *testing.T) {
	st := newFakeStore()
	st.summaries = []store.Summary{
		{ID: "doc1", Name: "Orders", Version: 2, Models: 3, Actions: 1, Schedules: 1, UpdatedAt: "2026-05-01T10:00:00Z"},
	}
	tool := NewListTool(st)

	res, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(res)
	for _, want := range []string{"doc1", "Orders", "3 models", "v2"} {
		if !strings.Contains(text, want) {
			t.Errorf("listing missing %q:\n%s", want, text)
		}
	}
}

// --- spec_delete_items ---

func TestDeleteItemsTool(t *testing.T) {
	st := newFakeStore()
	st.docs["doc1"] = storedDoc()
	st.versions["doc1"] = 1
	tool := NewDeleteItemsTool(st)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"spec_id": "doc1",
		"actions": "CreateOrder",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", resultText(res))
	}

	if st.saved == nil {
		t.Fatal("nothing saved")
	}
	if len(st.saved.Actions) != 0 {
		t.Errorf("action not removed: %+v", st.saved.Actions)
	}
	if len(st.saved.Models) != 1 || len(st.saved.Schedules) != 1 {
		t.Error("unrelated items removed")
	}
	if st.saved.ID != "doc1" {
		t.Errorf("document identity changed to %q", st.saved.ID)
	}
	if st.savedVer != 2 {
		t.Errorf("saved at version %d, want 2", st.savedVer)
	}
	if !strings.Contains(resultText(res), "1 actions") {
		t.Errorf("report = %q", resultText(res))
	}
}

func TestDeleteItemsTool_NothingToDelete(t *testing.T) {
	st := newFakeStore()
	st.docs["doc1"] = storedDoc()
	tool := NewDeleteItemsTool(st)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"spec_id": "doc1"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("empty deletion instruction accepted")
	}
}

func TestDeleteItemsTool_NotFound(t *testing.T) {
	tool := NewDeleteItemsTool(newFakeStore())
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"spec_id": "ghost",
		"models":  "Order",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("unknown id did not produce an error result")
	}
}

// --- spec_score ---

func TestScoreTool(t *testing.T) {
	st := newFakeStore()
	st.docs["doc1"] = storedDoc()
	st.versions["doc1"] = 1
	tool := NewScoreTool(st)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"spec_id": "doc1"}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(res)
	if !strings.Contains(text, "Quality Score:") {
		t.Fatalf("no score in result:\n%s", text)
	}
	// The stored document is complete and consistent; every check line
	// should be a pass.
	if strings.Contains(text, "✗") {
		t.Errorf("unexpected failing checks:\n%s", text)
	}
}

func TestScoreTool_NotFound(t *testing.T) {
	tool := NewScoreTool(newFakeStore())
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"spec_id": "ghost"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("unknown id did not produce an error result")
	}
}

// --- Definitions ---

func TestDefinitions_Named(t *testing.T) {
	st := newFakeStore()
	defs := map[string]mcp.Tool{
		"spec_generate":     NewGenerateTool(&fakeRunner{}).Definition(),
		"spec_get":          NewGetTool(st).Definition(),
		"spec_list":         NewListTool(st).Definition(),
		"spec_delete_items": NewDeleteItemsTool(st).Definition(),
		"spec_score":        NewScoreTool(st).Definition(),
	}
	for want, def := range defs {
		if def.Name != want {
			t.Errorf("definition name = %q, want %q", def.Name, want)
		}
		if def.Description == "" {
			t.Errorf("%s has no description", want)
		}
	}
}
