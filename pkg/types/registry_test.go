package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegistryPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    RegistryPath
		wantErr bool
	}{
		{
			name: "full path",
			path: "geo/gse123:v1",
			want: RegistryPath{Namespace: "geo", Name: "gse123", Tag: "v1"},
		},
		{
			name: "missing tag uses default",
			path: "geo/gse123",
			want: RegistryPath{Namespace: "geo", Name: "gse123", Tag: DefaultTag},
		},
		{
			name: "empty tag uses default",
			path: "geo/gse123:",
			want: RegistryPath{Namespace: "geo", Name: "gse123", Tag: DefaultTag},
		},
		{name: "no slash", path: "malformed", wantErr: true},
		{name: "two slashes", path: "a/b/c:tag", wantErr: true},
		{name: "empty namespace", path: "/b:tag", wantErr: true},
		{name: "empty name", path: "a/:tag", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRegistryPath(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRegistryPath)
				assert.ErrorIs(t, err, ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryPathString(t *testing.T) {
	rp := RegistryPath{Namespace: "a", Name: "b", Tag: "tag1"}
	assert.Equal(t, "a/b:tag1", rp.String())

	parsed, err := ParseRegistryPath(rp.String())
	require.NoError(t, err)
	assert.Equal(t, rp, parsed)
}
