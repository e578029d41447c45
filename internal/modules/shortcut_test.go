package modules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/project"
)

func TestMatchesShortcut(t *testing.T) {
	assert.True(t, MatchesShortcut(KeyEvent{Key: "g", Ctrl: true}))
	assert.True(t, MatchesShortcut(KeyEvent{Key: "g", Meta: true}))
	assert.False(t, MatchesShortcut(KeyEvent{Key: "g"}))
	assert.False(t, MatchesShortcut(KeyEvent{Key: "h", Ctrl: true}))
	assert.False(t, MatchesShortcut(KeyEvent{Key: "G", Ctrl: true, Shift: true}))
}

func TestHandleShortcutWithoutAction(t *testing.T) {
	s := project.NewStore()

	res, err := HandleShortcut(context.Background(), s, KeyEvent{Key: "g", Ctrl: true})
	require.NoError(t, err)
	assert.Equal(t, ShortcutResult{Handled: false, PreventDefault: true}, res)

	res, err = HandleShortcut(context.Background(), s, KeyEvent{Key: "x", Ctrl: true})
	require.NoError(t, err)
	assert.Equal(t, ShortcutResult{}, res)
}

func TestHandleShortcutRunsRegisteredAction(t *testing.T) {
	s := project.NewStore()
	calls := 0
	s.RegisterMainAction(project.MainAction{Owner: models.ViewStudio2D, Run: func(context.Context) error {
		calls++
		return nil
	}})

	res, err := HandleShortcut(context.Background(), s, KeyEvent{Key: "g", Meta: true})
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.True(t, res.PreventDefault)
	assert.Equal(t, 1, calls)
}

func TestHandleShortcutReportsActionError(t *testing.T) {
	s := project.NewStore()
	s.RegisterMainAction(project.MainAction{Owner: models.ViewStudio2D, Run: func(context.Context) error {
		return errors.New("boom")
	}})

	res, err := HandleShortcut(context.Background(), s, KeyEvent{Key: "g", Ctrl: true})
	require.Error(t, err)
	assert.True(t, res.Handled)
	assert.Equal(t, "boom", res.Error)
}
