package remote_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/sweep/pkg/batch/infrastructure/remote"
)

func TestRenderTemplate(t *testing.T) {
	values := map[string]string{"job_name": "12_fast", "width": "3"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare placeholder", "#PBS -N %=job_name\n", "#PBS -N 12_fast\n"},
		{"braced placeholder", "run_%={width}x", "run_3x"},
		{"escaped delimiter", "echo %=%=job_name", "echo %=job_name"},
		{"no placeholders", "plain text", "plain text"},
		{"percent alone", "100% done", "100% done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := remote.RenderTemplate(tt.in, values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTemplate_Errors(t *testing.T) {
	_, err := remote.RenderTemplate("%=missing", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	_, err = remote.RenderTemplate("line one\n%={bad", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
