package repourl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/dev-onboard/internal/core/apperr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOwner string
		wantName  string
		wantErr   bool
	}{
		{name: "valid", input: "https://github.com/golang/go", wantOwner: "golang", wantName: "go"},
		{name: "dotted name", input: "https://github.com/vercel/next.js", wantOwner: "vercel", wantName: "next.js"},
		{name: "http scheme", input: "http://github.com/golang/go", wantErr: true},
		{name: "extra segment", input: "https://github.com/golang/go/tree/master", wantErr: true},
		{name: "trailing slash", input: "https://github.com/golang/go/", wantErr: true},
		{name: "owner only", input: "https://github.com/golang", wantErr: true},
		{name: "other host", input: "https://gitlab.com/golang/go", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrInvalidInput)
				assert.Contains(t, err.Error(), ExpectedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, repo.Owner)
			assert.Equal(t, tt.wantName, repo.Name)
		})
	}
}

func TestRepositoryID(t *testing.T) {
	repo := Repository{Owner: "facebook", Name: "react"}
	assert.Equal(t, "facebook-react", repo.ID())
	assert.Equal(t, "https://github.com/facebook/react", repo.URL())
	assert.Equal(t, "https://github.com/facebook/react.git", repo.CloneURL())
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://github.com/golang/go", "https://github.com/golang/go"},
		{"https://github.com/golang/go.git", "https://github.com/golang/go"},
		{"git@github.com:golang/go.git", "https://github.com/golang/go"},
		{"  https://github.com/golang/go/  ", "https://github.com/golang/go"},
		{"https://github.com/golang/go/tree/master", "https://github.com/golang/go/tree/master"},
		{"https://gitlab.com/golang/go", "https://gitlab.com/golang/go"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.input))
		})
	}
}
