package mention_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3m01726/chattyChat/internal/mention"
)

type fakeChecker map[string]bool

func (f fakeChecker) UsernameExists(_ context.Context, username string) (bool, error) {
	return f[username], nil
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"Empty", "", nil},
		{"NoMentions", "just a plain message", nil},
		{"Single", "hey @bob", []string{"bob"}},
		{"DedupFirstOccurrence", "hey @bob @alice @bob @ghost", []string{"bob", "alice", "ghost"}},
		{"Hyphenated", "ping @jean-luc please", []string{"jean-luc"}},
		{"CaseSensitive", "@Bob and @bob", []string{"Bob", "bob"}},
		{"AdjacentPunctuation", "thanks @alice!", []string{"alice"}},
		{"BareAt", "meet @ noon", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mention.Extract(tt.text))
		})
	}
}

func TestValidate(t *testing.T) {
	checker := fakeChecker{"bob": true, "alice": true}

	t.Run("DropsUnknown", func(t *testing.T) {
		got, err := mention.Validate(context.Background(), checker,
			[]string{"bob", "alice", "ghost"})
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "alice"}, got)
	})

	t.Run("PreservesOrder", func(t *testing.T) {
		got, err := mention.Validate(context.Background(), checker,
			[]string{"alice", "bob"})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, got)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		got, err := mention.Validate(context.Background(), checker, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
