package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func mustRun(t *testing.T, dir string, args ...string) map[string]any {
	t.Helper()
	out, errOut, err := runCLI(t, append([]string{"--dir", dir}, args...))
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, string(errOut))
	}
	return decode(t, out)
}

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, string(b))
	}
	return env
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", env["data"])
	}
	return m
}

func addTask(t *testing.T, dir string, args ...string) string {
	t.Helper()
	env := mustRun(t, dir, append([]string{"tasks", "add"}, args...)...)
	id, _ := dataMap(t, env)["id"].(string)
	if !strings.HasPrefix(id, "t-") {
		t.Fatalf("expected generated task id, got %q", id)
	}
	return id
}

func rootIDs(t *testing.T, dir, container string) []string {
	t.Helper()
	env := mustRun(t, dir, "board")
	cs, _ := env["data"].([]any)
	for _, c := range cs {
		cm := c.(map[string]any)
		if cm["key"] != container {
			continue
		}
		var ids []string
		roots, _ := cm["roots"].([]any)
		for _, r := range roots {
			ids = append(ids, r.(map[string]any)["id"].(string))
		}
		return ids
	}
	t.Fatalf("container %q not on board", container)
	return nil
}

func TestInitCreatesConfigAndDatabase(t *testing.T) {
	dir := t.TempDir()
	d := dataMap(t, mustRun(t, dir, "init"))
	if d["createdConfig"] != true {
		t.Fatalf("expected config to be created, got %#v", d)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("expected config.yaml: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "taskboard.sqlite")); err != nil {
		t.Fatalf("expected sqlite db: %v", err)
	}
	d = dataMap(t, mustRun(t, dir, "init"))
	if d["createdConfig"] != false {
		t.Fatalf("expected existing config to be kept, got %#v", d)
	}
}

func TestConfigInitRequiresForce(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "config", "init")
	if _, _, err := runCLI(t, []string{"--dir", dir, "config", "init"}); err == nil {
		t.Fatalf("expected error when config.yaml exists")
	}
	mustRun(t, dir, "config", "init", "--force")

	cfg := dataMap(t, mustRun(t, dir, "config", "show"))
	cs, _ := cfg["containers"].([]any)
	if len(cs) != 3 {
		t.Fatalf("expected 3 default containers, got %#v", cfg["containers"])
	}
}

func TestConfigFileReplacesContainers(t *testing.T) {
	dir := t.TempDir()
	yml := "containers:\n  - key: backlog\n    label: Backlog\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	env := mustRun(t, dir, "board")
	cs, _ := env["data"].([]any)
	if len(cs) != 1 || cs[0].(map[string]any)["key"] != "backlog" {
		t.Fatalf("expected only backlog container, got %#v", env["data"])
	}
}

func TestTasksAddListShow(t *testing.T) {
	dir := t.TempDir()
	parent := addTask(t, dir, "Parent", "--container", "todo")
	child := addTask(t, dir, "Child", "--parent", parent, "--due", "2030-01-02")

	env := mustRun(t, dir, "tasks", "list")
	meta := env["meta"].(map[string]any)
	if meta["count"].(float64) != 2 {
		t.Fatalf("expected 2 tasks, got %#v", meta)
	}

	env = mustRun(t, dir, "tasks", "show", child)
	d := dataMap(t, env)
	if d["containerKey"] != "todo" || d["parentId"] != parent {
		t.Fatalf("expected child in todo under parent, got %#v", d)
	}
	anc := env["meta"].(map[string]any)["ancestors"].([]any)
	if len(anc) != 1 || anc[0] != parent {
		t.Fatalf("expected ancestors [%s], got %#v", parent, anc)
	}

	env = mustRun(t, dir, "tasks", "show", parent)
	desc := env["meta"].(map[string]any)["descendants"].([]any)
	if len(desc) != 1 || desc[0] != child {
		t.Fatalf("expected descendants [%s], got %#v", child, desc)
	}

	if _, _, err := runCLI(t, []string{"--dir", dir, "tasks", "show", "t-missing"}); err == nil {
		t.Fatalf("expected error for unknown task")
	}
}

func TestTasksCompleteAndReopen(t *testing.T) {
	dir := t.TempDir()
	id := addTask(t, dir, "Alpha", "--container", "todo")
	if d := dataMap(t, mustRun(t, dir, "tasks", "complete", id)); d["completed"] != true {
		t.Fatalf("expected completed, got %#v", d)
	}
	if d := dataMap(t, mustRun(t, dir, "tasks", "reopen", id)); d["completed"] != false {
		t.Fatalf("expected reopened, got %#v", d)
	}
	if d := dataMap(t, mustRun(t, dir, "tasks", "rename", id, "Alpha", "two")); d["title"] != "Alpha two" {
		t.Fatalf("expected renamed, got %#v", d)
	}
}

func TestDragReordersAndLogsPatch(t *testing.T) {
	dir := t.TempDir()
	a := addTask(t, dir, "A", "--container", "todo")
	b := addTask(t, dir, "B", "--container", "todo")

	d := dataMap(t, mustRun(t, dir, "drag", b, "--target", "before-sibling:"+a))
	if d["kind"] != "committed" {
		t.Fatalf("expected committed, got %#v", d)
	}
	if got := rootIDs(t, dir, "todo"); len(got) != 2 || got[0] != b || got[1] != a {
		t.Fatalf("expected [%s %s], got %v", b, a, got)
	}

	env := mustRun(t, dir, "log")
	recs := env["data"].([]any)
	if len(recs) != 1 || recs[0].(map[string]any)["taskId"] != b {
		t.Fatalf("expected one patch for %s, got %#v", b, recs)
	}
}

func TestDragMovesSubtreeAcrossContainers(t *testing.T) {
	dir := t.TempDir()
	p := addTask(t, dir, "P", "--container", "todo")
	c := addTask(t, dir, "C", "--parent", p)

	mustRun(t, dir, "drag", p, "--target", "into-empty-container:done")
	d := dataMap(t, mustRun(t, dir, "tasks", "show", c))
	if d["containerKey"] != "done" {
		t.Fatalf("expected child to follow parent into done, got %#v", d)
	}
}

func TestDragRejectsCycle(t *testing.T) {
	dir := t.TempDir()
	p := addTask(t, dir, "P", "--container", "todo")
	c := addTask(t, dir, "C", "--parent", p)

	out, _, err := runCLI(t, []string{"--dir", dir, "drag", p, "--target", "into-task:" + c})
	if err == nil {
		t.Fatalf("expected rejection to exit non-zero")
	}
	d := dataMap(t, decode(t, out))
	if d["kind"] != "rejected" || d["reason"] != "cycle" {
		t.Fatalf("expected cycle rejection, got %#v", d)
	}
	if recs := mustRun(t, dir, "log")["data"].([]any); len(recs) != 0 {
		t.Fatalf("expected no patches, got %#v", recs)
	}
}

func TestDragNoopLeavesStoreUntouched(t *testing.T) {
	dir := t.TempDir()
	a := addTask(t, dir, "A", "--container", "todo")
	b := addTask(t, dir, "B", "--container", "todo")

	d := dataMap(t, mustRun(t, dir, "drag", a, "--target", "before-sibling:"+b))
	if d["kind"] != "noop" {
		t.Fatalf("expected noop, got %#v", d)
	}
	if recs := mustRun(t, dir, "log")["data"].([]any); len(recs) != 0 {
		t.Fatalf("expected no patches, got %#v", recs)
	}
}

func TestDragDryRun(t *testing.T) {
	dir := t.TempDir()
	a := addTask(t, dir, "A", "--container", "todo")

	env := mustRun(t, dir, "drag", a, "--target", "into-container:done", "--dry-run")
	d := dataMap(t, env)
	patch, ok := d["patch"].(map[string]any)
	if !ok || patch["containerKey"] != "done" {
		t.Fatalf("expected planned container change, got %#v", d)
	}
	if got := rootIDs(t, dir, "todo"); len(got) != 1 || got[0] != a {
		t.Fatalf("expected dry run to leave %s in todo, got %v", a, got)
	}
}

func TestDragRejectsBadTarget(t *testing.T) {
	dir := t.TempDir()
	a := addTask(t, dir, "A", "--container", "todo")
	if _, _, err := runCLI(t, []string{"--dir", dir, "drag", a, "--target", "sideways:x"}); err == nil {
		t.Fatalf("expected error for unknown target kind")
	}
	if _, _, err := runCLI(t, []string{"--dir", dir, "drag", a}); err == nil {
		t.Fatalf("expected error without --target")
	}
}

func TestDragReplayReparents(t *testing.T) {
	dir := t.TempDir()
	a := addTask(t, dir, "A", "--container", "todo")
	b := addTask(t, dir, "B", "--container", "todo")

	script := map[string]any{
		"task": b,
		"zones": []any{
			map[string]any{
				"target": map[string]any{"kind": "into-task", "ref": a},
				"rect":   map[string]any{"x": 0, "y": 0, "w": 300, "h": 20},
			},
		},
		"moves": []any{
			map[string]any{"x": 0, "y": 50},
			map[string]any{"x": 90, "y": 50},
			map[string]any{"x": 95, "y": 10},
		},
	}
	raw, _ := json.Marshal(script)
	path := filepath.Join(t.TempDir(), "script.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	env := mustRun(t, dir, "drag", "replay", "--file", path)
	d := dataMap(t, env)
	if d["kind"] != "committed" {
		t.Fatalf("expected committed, got %#v", d)
	}
	steps := env["meta"].(map[string]any)["steps"].([]any)
	last := steps[len(steps)-1].(map[string]any)
	if last["intent"] != "reparent" {
		t.Fatalf("expected reparent intent at the end, got %#v", last)
	}

	show := dataMap(t, mustRun(t, dir, "tasks", "show", b))
	if show["parentId"] != a {
		t.Fatalf("expected %s under %s, got %#v", b, a, show)
	}
}

func TestDragClassify(t *testing.T) {
	dir := t.TempDir()
	env := mustRun(t, dir, "drag", "classify", "0,0", "90,10", "10,80")
	got := env["data"].([]any)
	want := []string{"reorder", "reparent", "reorder"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRenormalize(t *testing.T) {
	dir := t.TempDir()
	addTask(t, dir, "A", "--container", "todo")
	b := addTask(t, dir, "B", "--container", "todo")
	c := addTask(t, dir, "C", "--container", "todo")
	mustRun(t, dir, "drag", c, "--target", "before-sibling:"+b)

	d := dataMap(t, mustRun(t, dir, "renormalize", "--dry-run"))
	if d["changed"].(float64) != 2 {
		t.Fatalf("expected 2 planned changes, got %#v", d)
	}
	mustRun(t, dir, "renormalize")
	d = dataMap(t, mustRun(t, dir, "renormalize", "--dry-run"))
	if d["changed"].(float64) != 0 {
		t.Fatalf("expected nothing left to respace, got %#v", d)
	}
	if got := rootIDs(t, dir, "todo"); len(got) != 3 || got[1] != c || got[2] != b {
		t.Fatalf("expected order kept after renormalize, got %v", got)
	}
}

func TestImportRejectsCycles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "tasks.json")
	body := `[{"id":"x","parentId":"y","containerKey":"todo","title":"X"},{"id":"y","parentId":"x","containerKey":"todo","title":"Y"}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := runCLI(t, []string{"--dir", dir, "tasks", "import", "--file", path}); err == nil {
		t.Fatalf("expected cycle error")
	}

	body = `{"tasks":[{"id":"x","containerKey":"todo","title":"X","orderKey":1},{"id":"y","parentId":"x","containerKey":"todo","title":"Y"}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	d := dataMap(t, mustRun(t, dir, "tasks", "import", "--file", path))
	if d["imported"].(float64) != 2 {
		t.Fatalf("expected 2 imported, got %#v", d)
	}
}

func TestBoardTextFormat(t *testing.T) {
	dir := t.TempDir()
	addTask(t, dir, "Write report", "--container", "todo")
	out, errOut, err := runCLI(t, []string{"--dir", dir, "--format", "text", "board", "--width", "120"})
	if err != nil {
		t.Fatalf("board: %v (%s)", err, string(errOut))
	}
	s := string(out)
	if !strings.Contains(s, "To do") || !strings.Contains(s, "Write report") {
		t.Fatalf("expected rendered board, got:\n%s", s)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	if _, _, err := runCLI(t, []string{"--dir", t.TempDir(), "--log-level", "loud", "tasks", "list"}); err == nil {
		t.Fatalf("expected error for invalid log level")
	}
}

func TestDragIntoImportedUnkeyedGroupKeepsPosition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(t.TempDir(), "tasks.json")
	body := `[{"id":"a","containerKey":"todo","title":"A"},{"id":"b","containerKey":"todo","title":"B"},{"id":"c","containerKey":"todo","title":"C"},{"id":"x","containerKey":"done","title":"X","orderKey":1}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mustRun(t, dir, "tasks", "import", "--file", path)

	d := dataMap(t, mustRun(t, dir, "drag", "x", "--target", "before-sibling:b"))
	if d["kind"] != "committed" {
		t.Fatalf("expected committed, got %#v", d)
	}
	if filled, _ := d["filled"].(map[string]any); len(filled) != 3 {
		t.Fatalf("expected keys filled for a, b and c, got %#v", d["filled"])
	}
	got := rootIDs(t, dir, "todo")
	want := []string{"a", "x", "b", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
