package engine

import (
	"testing"

	"github.com/flocknet/flock/internal/models"
)

func TestVisible(t *testing.T) {
	tests := []struct {
		name           string
		post           *models.Post
		includeDeleted bool
		expected       bool
	}{
		{
			name:     "live post",
			post:     &models.Post{ID: 1},
			expected: true,
		},
		{
			name:           "live post with include flag",
			post:           &models.Post{ID: 1},
			includeDeleted: true,
			expected:       true,
		},
		{
			name:     "deleted post",
			post:     &models.Post{ID: 1, IsDeleted: true},
			expected: false,
		},
		{
			name:           "deleted post with include flag",
			post:           &models.Post{ID: 1, IsDeleted: true},
			includeDeleted: true,
			expected:       true,
		},
		{
			name:     "missing post",
			post:     nil,
			expected: false,
		},
		{
			name:           "missing post with include flag",
			post:           nil,
			includeDeleted: true,
			expected:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Visible(tt.post, tt.includeDeleted); got != tt.expected {
				t.Errorf("Visible() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestVisibleOnly(t *testing.T) {
	posts := []*models.Post{
		{ID: 1},
		{ID: 2, IsDeleted: true},
		{ID: 3},
	}

	got := VisibleOnly(posts)
	if len(got) != 2 {
		t.Fatalf("VisibleOnly() kept %d posts, want 2", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("VisibleOnly() kept posts %d and %d, want 1 and 3", got[0].ID, got[1].ID)
	}

	if out := VisibleOnly(nil); out == nil || len(out) != 0 {
		t.Errorf("VisibleOnly(nil) = %v, want empty slice", out)
	}
}
