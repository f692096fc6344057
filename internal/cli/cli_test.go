package cli

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCodeOf(nil))
	assert.Equal(t, ExitFatal, ExitCodeOf(stderrors.New("boom")))
	assert.Equal(t, ExitSpecFailed, ExitCodeOf(Exit(ExitSpecFailed, "spec failed")))
	assert.Equal(t, ExitSpecFailed, ExitCodeOf(Code(ExitSpecFailed)))
	assert.Equal(t, ExitFatal, ExitCodeOf(Exit(0, "zero is not an error code")))

	wrapped := fmt.Errorf("run: %w", Exitf(ExitSpecFailed, stderrors.New("cause"), "spec %d", 2))
	assert.Equal(t, ExitSpecFailed, ExitCodeOf(wrapped))
	assert.Equal(t, "run: spec 2: cause", wrapped.Error())
}

func TestSilent(t *testing.T) {
	assert.True(t, Silent(Code(ExitSpecFailed)))
	assert.False(t, Silent(Exit(ExitSpecFailed, "visible")))
	assert.False(t, Silent(stderrors.New("plain")))
}

func TestStatePaths(t *testing.T) {
	assert.Equal(t, "/repo/.git/label-pr/parents.db", CachePath("", "/repo/.git"))
	assert.Equal(t, "/tmp/p.db", CachePath("/tmp/p.db", "/repo/.git"))
	assert.Equal(t, "/repo/.git/label-pr/history.db", HistoryPath("", "/repo/.git"))
}
