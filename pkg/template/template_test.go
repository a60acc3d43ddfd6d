package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFieldPath(t *testing.T) {
	ctx := map[string]any{"Message": "Pod created"}
	out, err := Render("msg={{ .Message }}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "msg=Pod created", out)
}

func TestRenderMissingFieldYieldsEmpty(t *testing.T) {
	ctx := map[string]any{}
	out, err := Render("x={{ .Missing.Deeper }}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "x=", out)
}

func TestRenderPipeline(t *testing.T) {
	ctx := map[string]any{"Reason": "  FailedScheduling  "}
	out, err := Render("{{ .Reason | trim | upper }}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "FAILEDSCHEDULING", out)
}

func TestRenderDefault(t *testing.T) {
	ctx := map[string]any{"Namespace": ""}
	out, err := Render("{{ .Namespace | default \"default\" }}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", out)

	ctx2 := map[string]any{"Namespace": "kube-system"}
	out2, err := Render("{{ .Namespace | default \"default\" }}", ctx2)
	require.NoError(t, err)
	assert.Equal(t, "kube-system", out2)
}

func TestRenderReplace(t *testing.T) {
	ctx := map[string]any{"Name": "my.pod.name"}
	out, err := Render(`{{ .Name | replace "." "_" }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "my_pod_name", out)

	out2, err := Render(`{{ replace "." "_" .Name }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "my_pod_name", out2)
}

func TestRenderContainsHasPrefixHasSuffix(t *testing.T) {
	ctx := map[string]any{"Message": "Successfully pulled image \"nginx:latest\""}
	out, err := Render(`{{ .Message | contains "pulled" }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	out2, err := Render(`{{ .Message | hasPrefix "Successfully" }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "true", out2)
}

func TestRenderCoalesceAndEmpty(t *testing.T) {
	ctx := map[string]any{"A": "", "B": "", "C": "third"}
	out, err := Render(`{{ coalesce .A .B .C }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "third", out)

	out2, err := Render(`{{ empty .A }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "true", out2)
}

func TestRenderToJsonStripsCallables(t *testing.T) {
	ctx := map[string]any{
		"Labels": map[string]any{
			"a": "b",
			"GetTimestampMs": func() int64 {
				return 42
			},
		},
	}
	out, err := Render(`{{ .Labels | toJson }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, out)
}

func TestRenderUnknownFunctionErrors(t *testing.T) {
	ctx := map[string]any{}
	_, err := Render(`{{ .Foo | bogus }}`, ctx)
	require.Error(t, err)
}

func TestRenderLayoutPreservesStructure(t *testing.T) {
	ctx := map[string]any{
		"Message": "Pod created",
		"InvolvedObject": map[string]any{
			"Kind": "Pod",
		},
	}
	layout := map[string]any{
		"msg":   "{{ .Message }}",
		"kind":  "{{ .InvolvedObject.Kind }}",
		"count": 3,
	}
	out, err := RenderLayout(layout, ctx)
	require.NoError(t, err)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Pod created", m["msg"])
	assert.Equal(t, "Pod", m["kind"])
	assert.Equal(t, 3, m["count"])
}

func TestIndexMapAndList(t *testing.T) {
	ctx := map[string]any{
		"Labels": map[string]any{"team": "sre"},
		"Tags":   []any{"a", "b", "c"},
	}
	out, err := Render(`{{ index .Labels "team" }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "sre", out)

	out2, err := Render(`{{ index .Tags 1 }}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", out2)
}
